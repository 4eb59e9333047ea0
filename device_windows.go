//go:build windows

package rawcd

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	ioctlScsiPassThroughDirect = 0x4D014
	scsiIoctlDataIn            = 1

	windowsSenseBufferSize = 32
)

// scsiPassThroughDirect mirrors SCSI_PASS_THROUGH_DIRECT from ntddscsi.h.
// Field order/widths must match the OS ABI; this is the exact layout the
// original Rust source's windows.rs/windows_read_track.rs bind against.
type scsiPassThroughDirect struct {
	Length             uint16
	ScsiStatus         uint8
	PathID             uint8
	TargetID           uint8
	Lun                uint8
	CdbLength          uint8
	SenseInfoLength    uint8
	DataIn             uint8
	DataTransferLength uint32
	TimeOutValue       uint32
	DataBuffer         uintptr
	SenseInfoOffset    uint32
	Cdb                [16]byte
}

// sptdWithSense packs the pass-through header with its sense buffer
// immediately following, so SenseInfoOffset can point within this one
// allocation as the IOCTL requires.
type sptdWithSense struct {
	sptd  scsiPassThroughDirect
	sense [windowsSenseBufferSize]byte
}

// windowsDevice is the §4.D Windows-family adapter: a UNC-style device path
// (\\.\X:) opened with read+write, shared read+write access, submitting
// commands via the direct SCSI pass-through IOCTL.
type windowsDevice struct {
	handle windows.Handle
}

func openPlatformDevice(path string) (closableSubmitter, error) {
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, fmt.Errorf("rawcd: invalid device path %q: %w", path, err)
	}

	handle, err := windows.CreateFile(
		pathPtr,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("rawcd: open %q: %w", path, err)
	}

	return &windowsDevice{handle: handle}, nil
}

func (d *windowsDevice) Close() error {
	return windows.CloseHandle(d.handle)
}

func (d *windowsDevice) submit(cdb []byte, buf []byte, timeout time.Duration, dir direction) (status byte, sense []byte, residual int, err error) {
	var wrapper sptdWithSense
	sptd := &wrapper.sptd

	sptd.Length = uint16(unsafe.Sizeof(wrapper.sptd))
	sptd.CdbLength = uint8(len(cdb))
	sptd.DataIn = scsiIoctlDataIn
	sptd.TimeOutValue = uint32(timeout.Seconds())
	if sptd.TimeOutValue == 0 {
		sptd.TimeOutValue = 1
	}
	sptd.DataTransferLength = uint32(len(buf))
	if len(buf) > 0 {
		sptd.DataBuffer = uintptr(unsafe.Pointer(&buf[0]))
	}
	sptd.SenseInfoLength = uint8(len(wrapper.sense))
	sptd.SenseInfoOffset = uint32(unsafe.Sizeof(wrapper.sptd))
	copy(sptd.Cdb[:], cdb)

	var bytesReturned uint32
	reqSize := uint32(unsafe.Sizeof(wrapper))
	ioErr := windows.DeviceIoControl(
		d.handle,
		ioctlScsiPassThroughDirect,
		(*byte)(unsafe.Pointer(&wrapper)),
		reqSize,
		(*byte)(unsafe.Pointer(&wrapper)),
		reqSize,
		&bytesReturned,
		nil,
	)
	if ioErr != nil {
		return 0, nil, 0, fmt.Errorf("rawcd: DeviceIoControl: %w", ioErr)
	}

	if wrapper.sptd.SenseInfoLength > 0 {
		n := int(wrapper.sptd.SenseInfoLength)
		if n > len(wrapper.sense) {
			n = len(wrapper.sense)
		}
		sense = append([]byte(nil), wrapper.sense[:n]...)
	}

	return wrapper.sptd.ScsiStatus, sense, 0, nil
}
