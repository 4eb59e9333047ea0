package rawcd

import (
	"fmt"
	"time"
)

// direction describes which way data flows across a submit call.
type direction int

const (
	// directionIn is device-to-host (e.g. READ TOC, READ CD).
	directionIn direction = iota
	// directionOut is host-to-device. Unused by the current command set but
	// kept so the submitter contract generalizes to write commands.
	directionOut
)

// submitter is the contract each platform device adapter (§4.D) fulfills.
// The SCSI command layer is a pure builder: it never owns a device handle,
// it only submits pre-built CDBs through this interface. This is what makes
// the retry/chunk engine and the command layer deterministically mockable.
type submitter interface {
	// submit issues cdb against the device, transferring buf (filled by the
	// device for directionIn) within timeout. It returns the SCSI status
	// byte, any sense data the device wrote (may be shorter than supplied),
	// and the residual (untransferred) byte count the transport reported.
	submit(cdb []byte, buf []byte, timeout time.Duration, dir direction) (status byte, sense []byte, residual int, err error)
}

const (
	readTocOpcode = 0x43
	readCdOpcode  = 0xBE

	readTocTimeout = 10 * time.Second
	readCdTimeout  = 30 * time.Second

	readTocAllocLength = 2048
)

// buildReadTOCCDB constructs the 10-byte CDB for READ TOC/PMA/ATIP, format 0
// (TOC), starting at track 0 (first track/session), requesting allocLength
// bytes.
func buildReadTOCCDB(allocLength uint16) [10]byte {
	var cdb [10]byte
	cdb[0] = readTocOpcode
	cdb[1] = 0x00 // LBA form, MSF bit clear
	cdb[2] = 0x00 // format: TOC
	cdb[6] = 0x00 // starting track
	cdb[7] = byte(allocLength >> 8)
	cdb[8] = byte(allocLength)
	cdb[9] = 0x00
	return cdb
}

// buildReadCDCDB constructs the 12-byte CDB for READ CD, requesting sectors
// sectors of CD-DA user data (2352 bytes/sector, sub-channel selection
// 0x10) starting at the given LBA.
func buildReadCDCDB(lba uint32, sectors uint32) [12]byte {
	var cdb [12]byte
	cdb[0] = readCdOpcode
	cdb[2] = byte(lba >> 24)
	cdb[3] = byte(lba >> 16)
	cdb[4] = byte(lba >> 8)
	cdb[5] = byte(lba)
	cdb[6] = byte(sectors >> 16)
	cdb[7] = byte(sectors >> 8)
	cdb[8] = byte(sectors)
	cdb[9] = 0x10 // user data only -> 2352 bytes/sector
	cdb[10] = 0x00
	cdb[11] = 0x00
	return cdb
}

// decodeSense extracts the sense key / ASC / ASCQ triple from fixed-format
// (type 0x70/0x71) sense data. Descriptor-format sense is not supported and
// is reported as "no sense data" rather than guessed, per spec.
func decodeSense(sense []byte) (key, asc, ascq *byte) {
	if len(sense) < 14 {
		return nil, nil, nil
	}
	if code := sense[0] & 0x7F; code != 0x70 && code != 0x71 {
		return nil, nil, nil
	}
	senseKey := sense[2] & 0x0F
	return byteptr(senseKey), byteptr(sense[12]), byteptr(sense[13])
}

// readTOC issues READ TOC/PMA/ATIP through s and parses the response.
func readTOC(s submitter) (*Toc, error) {
	cdb := buildReadTOCCDB(readTocAllocLength)
	buf := make([]byte, readTocAllocLength)

	status, sense, residual, err := s.submit(cdb[:], buf, readTocTimeout, directionIn)
	if err != nil {
		return nil, err
	}
	if status != 0 {
		key, asc, ascq := decodeSense(sense)
		return nil, &ScsiError{
			Op:         OpReadTOC,
			ScsiStatus: status,
			SenseKey:   key,
			Asc:        asc,
			Ascq:       ascq,
		}
	}

	if residual > 0 && residual <= len(buf) {
		buf = buf[:len(buf)-residual]
	}

	return parseTOC(buf)
}

// readCD issues a single READ CD command for exactly sectors sectors
// starting at lba, returning the transferred payload (sectors*2352 bytes,
// or fewer if the transport reported a residual).
func readCD(s submitter, lba uint32, sectors uint32) ([]byte, error) {
	cdb := buildReadCDCDB(lba, sectors)
	buf := make([]byte, int(sectors)*BytesPerSector)

	status, sense, residual, err := s.submit(cdb[:], buf, readCdTimeout, directionIn)
	if err != nil {
		return nil, err
	}
	if status != 0 {
		key, asc, ascq := decodeSense(sense)
		return nil, &ScsiError{
			Op:         OpReadCD,
			LBA:        u32ptr(lba),
			Sectors:    u32ptr(sectors),
			ScsiStatus: status,
			SenseKey:   key,
			Asc:        asc,
			Ascq:       ascq,
		}
	}

	if residual > 0 && residual <= len(buf) {
		buf = buf[:len(buf)-residual]
	}

	return buf, nil
}

// errOpcodeUnsupported is an internal sentinel for mocks that reject an
// opcode. No current test or mock returns it.
var errOpcodeUnsupported = fmt.Errorf("rawcd: unsupported opcode")
