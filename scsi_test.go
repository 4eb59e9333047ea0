package rawcd

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReadTOCCDB(t *testing.T) {
	cdb := buildReadTOCCDB(2048)
	assert.EqualValues(t, readTocOpcode, cdb[0])
	assert.EqualValues(t, 0, cdb[2]) // format 0
	assert.EqualValues(t, 0x08, cdb[7])
	assert.EqualValues(t, 0x00, cdb[8])
}

func TestBuildReadCDCDB(t *testing.T) {
	cdb := buildReadCDCDB(0x01020304, 27)
	assert.EqualValues(t, readCdOpcode, cdb[0])
	assert.EqualValues(t, 0x01, cdb[2])
	assert.EqualValues(t, 0x02, cdb[3])
	assert.EqualValues(t, 0x03, cdb[4])
	assert.EqualValues(t, 0x04, cdb[5])
	assert.EqualValues(t, 0x00, cdb[6])
	assert.EqualValues(t, 0x00, cdb[7])
	assert.EqualValues(t, 27, cdb[8])
	assert.EqualValues(t, 0x10, cdb[9])
}

func TestDecodeSenseFixedFormat(t *testing.T) {
	sense := make([]byte, 18)
	sense[0] = 0x70
	sense[2] = 0x03 // sense key, high nibble ignored
	sense[12] = 0x11
	sense[13] = 0x05

	key, asc, ascq := decodeSense(sense)
	require.NotNil(t, key)
	require.NotNil(t, asc)
	require.NotNil(t, ascq)
	assert.EqualValues(t, 0x03, *key)
	assert.EqualValues(t, 0x11, *asc)
	assert.EqualValues(t, 0x05, *ascq)
}

func TestDecodeSenseTooShort(t *testing.T) {
	key, asc, ascq := decodeSense(make([]byte, 10))
	assert.Nil(t, key)
	assert.Nil(t, asc)
	assert.Nil(t, ascq)
}

// stubSubmitter returns a fixed response for every submit call.
type stubSubmitter struct {
	status   byte
	sense    []byte
	residual int
	buf      []byte
	err      error
}

func (s *stubSubmitter) submit(cdb []byte, buf []byte, timeout time.Duration, dir direction) (byte, []byte, int, error) {
	if s.err != nil {
		return 0, nil, 0, s.err
	}
	if s.buf != nil {
		copy(buf, s.buf)
	}
	return s.status, s.sense, s.residual, nil
}

func TestReadTOCTruncatesResidual(t *testing.T) {
	data := []byte{0x00, 0x12, 0x01, 0x01}
	data = append(data, descriptorBytes(0x00, 1, 0)...)
	data = append(data, descriptorBytes(0x00, leadoutTrackNumber, 1000)...)

	padded := make([]byte, readTocAllocLength)
	copy(padded, data)

	s := &stubSubmitter{buf: padded, residual: readTocAllocLength - len(data)}
	toc, err := readTOC(s)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, toc.LeadoutLBA)
}

func TestReadTOCScsiError(t *testing.T) {
	sense := make([]byte, 18)
	sense[0] = 0x70
	sense[2] = 0x05
	sense[12] = 0x20
	sense[13] = 0x00

	s := &stubSubmitter{status: 0x02, sense: sense}
	_, err := readTOC(s)
	require.Error(t, err)

	var scsiErr *ScsiError
	require.True(t, errors.As(err, &scsiErr))
	assert.Equal(t, OpReadTOC, scsiErr.Op)
	require.NotNil(t, scsiErr.SenseKey)
	assert.EqualValues(t, 0x05, *scsiErr.SenseKey)
}

func TestReadCDTruncatesResidual(t *testing.T) {
	full := int(10) * BytesPerSector
	s := &stubSubmitter{residual: BytesPerSector}
	out, err := readCD(s, 500, 10)
	require.NoError(t, err)
	assert.Len(t, out, full-BytesPerSector)
}

func TestReadCDScsiErrorCarriesLBAAndSectors(t *testing.T) {
	s := &stubSubmitter{status: 0x02}
	_, err := readCD(s, 777, 4)
	require.Error(t, err)

	var scsiErr *ScsiError
	require.True(t, errors.As(err, &scsiErr))
	require.NotNil(t, scsiErr.LBA)
	require.NotNil(t, scsiErr.Sectors)
	assert.EqualValues(t, 777, *scsiErr.LBA)
	assert.EqualValues(t, 4, *scsiErr.Sectors)
}
