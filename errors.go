package rawcd

import (
	"errors"
	"fmt"
)

// Sentinel errors describing the "Io" error class from the error taxonomy:
// operating-system-level failures from open/submit/close, and malformed
// caller input. They are plain errors.New sentinels rather than a parallel
// enum; callers should prefer errors.Is.
var (
	// ErrNotFound is returned when a requested track is absent from the TOC.
	ErrNotFound = errors.New("rawcd: not found")
	// ErrInvalidData is returned when a TOC's computed bounds are nonsensical.
	ErrInvalidData = errors.New("rawcd: invalid data")
	// ErrInvalidInput is returned for malformed caller-supplied arguments,
	// e.g. seeking past the end of a track or to a non-finite time.
	ErrInvalidInput = errors.New("rawcd: invalid input")
	// ErrClosed is returned by operations attempted on a reader that has
	// already been closed. A zero-value CdReader that did not come from Open
	// is not detected.
	ErrClosed = errors.New("rawcd: device not open")
	// ErrBusy is returned by Open when a device is already held open by this
	// process; only one CdReader may be open at a time.
	ErrBusy = errors.New("rawcd: a device is already open")
)

// ScsiOp identifies which SCSI command group a ScsiError came from.
type ScsiOp int

const (
	// OpReadTOC is the READ TOC/PMA/ATIP command (opcode 0x43).
	OpReadTOC ScsiOp = iota
	// OpReadCD is the READ CD command (opcode 0xBE).
	OpReadCD
	// OpReadSubChannel is the READ SUB-CHANNEL command. rawcd never issues
	// it itself; the op exists so ScsiError can describe a caller-supplied
	// submission consistently.
	OpReadSubChannel
)

func (op ScsiOp) String() string {
	switch op {
	case OpReadTOC:
		return "READ TOC/PMA/ATIP"
	case OpReadCD:
		return "READ CD"
	case OpReadSubChannel:
		return "READ SUB-CHANNEL"
	default:
		return "unknown SCSI op"
	}
}

// ScsiError is a structured command failure: the command reached the
// device and was rejected. It carries the SCSI status byte and, when fixed-
// format sense data (type 0x70/0x71) was available, the sense key/ASC/ASCQ
// triple.
type ScsiError struct {
	Op         ScsiOp
	LBA        *uint32
	Sectors    *uint32
	ScsiStatus byte
	SenseKey   *byte
	Asc        *byte
	Ascq       *byte
}

func (e *ScsiError) Error() string {
	lba := "none"
	if e.LBA != nil {
		lba = fmt.Sprintf("%d", *e.LBA)
	}
	sectors := "none"
	if e.Sectors != nil {
		sectors = fmt.Sprintf("%d", *e.Sectors)
	}
	if e.SenseKey == nil {
		return fmt.Sprintf("rawcd: %s failed (status=0x%02x, lba=%s, sectors=%s, sense=none)",
			e.Op, e.ScsiStatus, lba, sectors)
	}
	return fmt.Sprintf("rawcd: %s failed (status=0x%02x, lba=%s, sectors=%s, sense_key=0x%x, asc=0x%02x, ascq=0x%02x)",
		e.Op, e.ScsiStatus, lba, sectors, *e.SenseKey, *e.Asc, *e.Ascq)
}

// ParseError is a failure to decode a command payload (currently, only the
// READ TOC response).
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("rawcd: parse error: %s", e.Msg)
}

func byteptr(b byte) *byte    { return &b }
func u32ptr(v uint32) *uint32 { return &v }
