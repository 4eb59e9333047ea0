// Package rawcd reads audio CDs (CD-DA) directly from an optical drive by
// issuing raw SCSI commands. It opens a named drive exclusively, decodes the
// Table of Contents, and reads the PCM payload of any audio track either
// buffered into memory or streamed in fixed-size chunks with retry, adaptive
// degradation, and seek.
//
// Unlike a cdparanoia/libcdio wrapper, rawcd never shells out to a system
// library: it builds SCSI Command Descriptor Blocks (READ TOC/PMA/ATIP, READ
// CD) itself and submits them through a small per-platform transport. This
// gives callers exact control over timeouts, retry policy, and chunk sizing,
// at the cost of cdparanoia's jitter/overlap error correction.
//
// rawcd does not perform subchannel Q or CD-TEXT decoding, does not recover
// hidden pregap/track 0 audio, and only looks at the first session's TOC.
package rawcd

import "fmt"

// SampleRate is the number of PCM samples per second for Redbook audio.
const SampleRate = 44100

// Channels is the number of interleaved audio channels (stereo).
const Channels = 2

// BitsPerSample is the PCM sample depth.
const BitsPerSample = 16

// BytesPerSample is BitsPerSample/8.
const BytesPerSample = BitsPerSample / 8

// SectorsPerSecond is the number of CD-DA sectors ("frames" in MSF
// terminology) per second of audio.
const SectorsPerSecond = 75

// BytesPerSector is the size in bytes of one CD-DA audio sector: 2352.
const BytesPerSector = SampleRate * Channels * BytesPerSample / SectorsPerSecond

// msfOffsetFrames is the fixed 2-second lead-in offset applied when
// converting an LBA to an MSF address.
const msfOffsetFrames = 150

// MSF is a Minutes/Seconds/Frames disc address, offset by 150 frames (2
// seconds) from LBA 0. Frame is in 0..75.
type MSF struct {
	Minute byte
	Second byte
	Frame  byte
}

// Track is a single entry in a Table of Contents.
type Track struct {
	// Number is the track index as recorded on disc, 1..=99. The reserved
	// value 0 denotes a hidden track; the parser does not filter it out and
	// emits whatever track number the drive reports.
	Number byte
	// StartLBA is the absolute logical block address of the track's first
	// sector, 0-based after the 150-frame MSF offset.
	StartLBA uint32
	// StartMSF is StartLBA expressed as a Minutes/Seconds/Frames address.
	StartMSF MSF
	// IsAudio is true iff the descriptor's control nibble has bit 2 clear.
	IsAudio bool
}

// Toc is the decoded first-session Table of Contents.
type Toc struct {
	// FirstTrack and LastTrack are the track-number range as reported by the
	// drive. Not authoritative for iteration: gaps are possible, use Tracks.
	FirstTrack byte
	LastTrack  byte
	// Tracks is the insertion-ordered sequence of tracks. The lead-out
	// descriptor (track number 0xAA) is excluded.
	Tracks []Track
	// LeadoutLBA is the absolute LBA of the lead-out, required to bound the
	// last track's length.
	LeadoutLBA uint32
}

// lbaToMSF converts a 0-based logical block address to a Minutes/Seconds/
// Frames address, applying the fixed 150-frame lead-in offset.
func lbaToMSF(lba uint32) MSF {
	total := lba + msfOffsetFrames
	return MSF{
		Minute: byte(total / SectorsPerSecond / 60),
		Second: byte((total / SectorsPerSecond) % 60),
		Frame:  byte(total % SectorsPerSecond),
	}
}

// GetTrackBounds locates the track numbered trackNo within toc and returns
// its starting LBA and sector count. The end of the track is the next
// track's start LBA, or the lead-out LBA for the last track in toc.
func GetTrackBounds(toc *Toc, trackNo byte) (startLBA, sectors uint32, err error) {
	idx := -1
	for i, t := range toc.Tracks {
		if t.Number == trackNo {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, 0, fmt.Errorf("rawcd: track %d: %w", trackNo, ErrNotFound)
	}

	startLBA = toc.Tracks[idx].StartLBA

	var endLBA uint32
	if idx+1 < len(toc.Tracks) {
		endLBA = toc.Tracks[idx+1].StartLBA
	} else {
		endLBA = toc.LeadoutLBA
	}

	if endLBA <= startLBA {
		return 0, 0, fmt.Errorf("rawcd: track %d has non-increasing bounds: %w", trackNo, ErrInvalidData)
	}

	return startLBA, endLBA - startLBA, nil
}
