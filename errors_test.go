package rawcd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScsiErrorFormattingWithSense(t *testing.T) {
	key := byteptr(0x03)
	asc := byteptr(0x11)
	ascq := byteptr(0x00)
	e := &ScsiError{
		Op:         OpReadCD,
		LBA:        u32ptr(1234),
		Sectors:    u32ptr(10),
		ScsiStatus: 0x02,
		SenseKey:   key,
		Asc:        asc,
		Ascq:       ascq,
	}
	msg := e.Error()
	assert.Contains(t, msg, "READ CD")
	assert.Contains(t, msg, "lba=1234")
	assert.Contains(t, msg, "sense_key=0x3")
}

func TestScsiErrorFormattingWithoutSense(t *testing.T) {
	e := &ScsiError{Op: OpReadTOC, ScsiStatus: 0x02}
	msg := e.Error()
	assert.Contains(t, msg, "sense=none")
	assert.Contains(t, msg, "lba=none")
}

func TestParseErrorFormatting(t *testing.T) {
	e := &ParseError{Msg: "truncated"}
	assert.Equal(t, "rawcd: parse error: truncated", e.Error())
}

func TestSentinelsWrapWithErrorsIs(t *testing.T) {
	wrapped := fmt.Errorf("rawcd: track %d: %w", 7, ErrNotFound)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrInvalidData))
}

func TestScsiOpString(t *testing.T) {
	assert.Equal(t, "READ TOC/PMA/ATIP", OpReadTOC.String())
	assert.Equal(t, "READ CD", OpReadCD.String())
	assert.Equal(t, "READ SUB-CHANNEL", OpReadSubChannel.String())
}
