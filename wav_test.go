package rawcd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWAVHeader(t *testing.T) {
	pcm := make([]byte, 0x100)

	want := []byte{
		0x52, 0x49, 0x46, 0x46, 0x24, 0x01, 0x00, 0x00,
		0x57, 0x41, 0x56, 0x45, 0x66, 0x6D, 0x74, 0x20,
		0x10, 0x00, 0x00, 0x00, 0x01, 0x00, 0x02, 0x00,
		0x44, 0xAC, 0x00, 0x00, 0x10, 0xB1, 0x02, 0x00,
		0x04, 0x00, 0x10, 0x00, 0x64, 0x61, 0x74, 0x61,
		0x00, 0x01, 0x00, 0x00,
	}

	out := CreateWAV(pcm)
	require.Len(t, out, wavHeaderSize+len(pcm))
	assert.Equal(t, want, out[:wavHeaderSize])
	assert.Equal(t, pcm, out[wavHeaderSize:])
}
