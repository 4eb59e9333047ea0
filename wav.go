package rawcd

import "encoding/binary"

// wavHeaderSize is the size of a canonical 44-byte RIFF/WAVE header.
const wavHeaderSize = 44

// CreateWAV prepends a 44-byte canonical RIFF/WAVE header (PCM, stereo,
// 44.1kHz, 16-bit) to pcm and returns the combined buffer. It performs no
// I/O; callers write the result wherever they like.
func CreateWAV(pcm []byte) []byte {
	out := make([]byte, wavHeaderSize+len(pcm))
	header := out[:wavHeaderSize]

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(pcm))+wavHeaderSize-8)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(header[22:24], Channels)
	binary.LittleEndian.PutUint32(header[24:28], SampleRate)
	binary.LittleEndian.PutUint32(header[28:32], SampleRate*Channels*BytesPerSample) // byte rate
	binary.LittleEndian.PutUint16(header[32:34], Channels*BytesPerSample)            // block align
	binary.LittleEndian.PutUint16(header[34:36], BitsPerSample)

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	copy(out[wavHeaderSize:], pcm)
	return out
}
