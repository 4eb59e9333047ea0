package rawcd

import (
	"fmt"
	"math"
)

// secondsPerSector mirrors SectorsPerSecond for the floating-point
// conversions used by CurrentSeconds/TotalSeconds/SeekToSeconds.
const secondsPerSector = float64(SectorsPerSecond)

// TrackStreamConfig configures an open TrackStream.
type TrackStreamConfig struct {
	// SectorsPerChunk is the sector count requested per NextChunk call,
	// floored to 1 at use. Does not affect the underlying READ CD transfer
	// cap (maxSectorsPerXfer); the retry engine still splits large chunks.
	SectorsPerChunk uint32
	Retry           RetryConfig
}

// DefaultTrackStreamConfig returns the library's default stream
// configuration: 27 sectors per chunk (63,504 bytes) and the default retry
// policy.
func DefaultTrackStreamConfig() TrackStreamConfig {
	return TrackStreamConfig{
		SectorsPerChunk: maxSectorsPerXfer,
		Retry:           DefaultRetryConfig(),
	}
}

// chunkReadFunc is the seam TrackStream reads through, letting tests supply
// a deterministic mock in place of a real submitter round-trip.
type chunkReadFunc func(lba, sectors uint32, cfg RetryConfig) ([]byte, error)

// TrackStream is a stateful iterator over a single track's sectors. It is
// created by CdReader.OpenTrackStream, mutated only by NextChunk and the
// Seek* methods, and holds no internal buffer: seeking is O(1) metadata
// only, never device I/O.
type TrackStream struct {
	read chunkReadFunc

	startLBA         uint32
	nextLBA          uint32
	remainingSectors uint32
	totalSectors     uint32
	cfg              TrackStreamConfig
}

// NextChunk reads the next chunk of the stream, up to cfg.SectorsPerChunk
// sectors (capped by whatever remains). It returns (nil, nil) once the
// stream is exhausted. On error the stream's position is left unchanged,
// so a failed call can be retried with the same semantics.
func (s *TrackStream) NextChunk() ([]byte, error) {
	if s.remainingSectors == 0 {
		return nil, nil
	}

	perChunk := s.cfg.SectorsPerChunk
	if perChunk < 1 {
		perChunk = 1
	}
	sectors := s.remainingSectors
	if sectors > perChunk {
		sectors = perChunk
	}

	chunk, err := s.read(s.nextLBA, sectors, s.cfg.Retry)
	if err != nil {
		return nil, err
	}

	s.nextLBA += sectors
	s.remainingSectors -= sectors
	return chunk, nil
}

// TotalSectors returns the track's total sector count.
func (s *TrackStream) TotalSectors() uint32 { return s.totalSectors }

// ConsumedSectors returns how many sectors have been yielded (or skipped
// past via Seek) so far.
func (s *TrackStream) ConsumedSectors() uint32 { return s.totalSectors - s.remainingSectors }

// CurrentSector is an alias for ConsumedSectors.
func (s *TrackStream) CurrentSector() uint32 { return s.ConsumedSectors() }

// CurrentSeconds returns the current position in seconds, at the fixed
// CD-DA rate of 75 sectors/second.
func (s *TrackStream) CurrentSeconds() float64 {
	return float64(s.CurrentSector()) / secondsPerSector
}

// TotalSeconds returns the track's total duration in seconds.
func (s *TrackStream) TotalSeconds() float64 {
	return float64(s.totalSectors) / secondsPerSector
}

// SeekToSector repositions the stream to the given sector offset within the
// track. It is pure metadata: no device I/O occurs and no buffer is
// flushed, because none is kept.
func (s *TrackStream) SeekToSector(sector uint32) error {
	if sector > s.totalSectors {
		return fmt.Errorf("rawcd: seek sector %d exceeds track length %d: %w", sector, s.totalSectors, ErrInvalidInput)
	}
	s.nextLBA = s.startLBA + sector
	s.remainingSectors = s.totalSectors - sector
	return nil
}

// SeekToSeconds repositions the stream to the sector nearest the given
// offset in seconds, clamped to the track's length. seconds must be finite
// and non-negative.
func (s *TrackStream) SeekToSeconds(seconds float64) error {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return fmt.Errorf("rawcd: seek seconds %v must be finite and non-negative: %w", seconds, ErrInvalidInput)
	}
	target := uint32(seconds*secondsPerSector + 0.5)
	if target > s.totalSectors {
		target = s.totalSectors
	}
	return s.SeekToSector(target)
}
