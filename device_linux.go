//go:build linux

package rawcd

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// sgDxferFromDev/sgDxferToDev mirror the SG_DXFER_* constants from
// <scsi/sg.h>, following the same naming the pack's SCSI generic I/O code
// (sagarkrsd-smart/scsismart/scsigeneric.go,
// open-source-firmware-go-tcg-storage/drive/sgio/sg.go) uses.
const (
	sgDxferFromDev = -3
	sgDxferToDev   = -2

	sgInfoOkMask = 0x1
	sgInfoOk     = 0x0

	sgIoIoctl = 0x2285

	senseBufferSize = 64
)

// sgIOHeader mirrors sg_io_hdr_t from <scsi/sg.h>. Field order and widths
// must match the kernel ABI exactly; see
// https://tldp.org/HOWTO/SCSI-Generic-HOWTO/sg_io_hdr_t.html.
type sgIOHeader struct {
	interfaceID    int32
	dxferDirection int32
	cmdLen         uint8
	mxSBLen        uint8
	iovecCount     uint16
	dxferLen       uint32
	dxferp         uintptr
	cmdp           uintptr
	sbp            uintptr
	timeout        uint32
	flags          uint32
	packID         int32
	usrPtr         uintptr
	status         uint8
	maskedStatus   uint8
	msgStatus      uint8
	sbLenWr        uint8
	hostStatus     uint16
	driverStatus   uint16
	resid          int32
	duration       uint32
	info           uint32
}

// linuxDevice is the §4.D Linux-family adapter: a non-blocking, read-write
// open file descriptor on a SCSI generic-capable block device (e.g.
// /dev/sr0), submitting commands via the SG_IO ioctl.
type linuxDevice struct {
	fd int
}

func openPlatformDevice(path string) (closableSubmitter, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("rawcd: open %q: %w", path, err)
	}
	return &linuxDevice{fd: fd}, nil
}

func (d *linuxDevice) Close() error {
	return unix.Close(d.fd)
}

func (d *linuxDevice) submit(cdb []byte, buf []byte, timeout time.Duration, dir direction) (status byte, sense []byte, residual int, err error) {
	dxferDirection := int32(sgDxferFromDev)
	if dir == directionOut {
		dxferDirection = sgDxferToDev
	}

	senseBuf := make([]byte, senseBufferSize)

	hdr := sgIOHeader{
		interfaceID:    'S',
		dxferDirection: dxferDirection,
		cmdLen:         uint8(len(cdb)),
		mxSBLen:        uint8(len(senseBuf)),
		dxferLen:       uint32(len(buf)),
		timeout:        uint32(timeout.Milliseconds()),
	}
	if len(buf) > 0 {
		hdr.dxferp = uintptr(unsafe.Pointer(&buf[0]))
	}
	hdr.cmdp = uintptr(unsafe.Pointer(&cdb[0]))
	hdr.sbp = uintptr(unsafe.Pointer(&senseBuf[0]))

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), sgIoIoctl, uintptr(unsafe.Pointer(&hdr)))
	if errno != 0 {
		return 0, nil, 0, fmt.Errorf("rawcd: SG_IO ioctl: %w", errno)
	}

	if hdr.info&sgInfoOkMask != sgInfoOk {
		// Non-GOOD outcome the kernel flagged; status may still be 0 for
		// host/driver-level failures, so surface as an I/O error.
		if hdr.status == 0 {
			return 0, nil, 0, fmt.Errorf("rawcd: SG_IO reported failure (host_status=0x%04x, driver_status=0x%04x)", hdr.hostStatus, hdr.driverStatus)
		}
	}

	if hdr.sbLenWr > 0 {
		sense = senseBuf[:hdr.sbLenWr]
	}

	return hdr.status, sense, int(hdr.resid), nil
}
