package rawcd

import (
	"fmt"
	"sync/atomic"
)

// deviceSlot models the "one open device per process" rule (§5) without a
// global device handle: Open claims the slot, Close releases it. A second
// Open while one is live fails with ErrBusy.
var deviceSlot atomic.Bool

func acquireDeviceSlot() error {
	if !deviceSlot.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

func releaseDeviceSlot() {
	deviceSlot.Store(false)
}

// openPlatformDevice is implemented once per platform (device_linux.go,
// device_windows.go, device_darwin.go, device_other.go) and returns a
// submitter bound to the named drive path. It does not itself enforce the
// process-wide slot; that is CdReader.Open's job, so platform code stays
// focused on the transport.
//
// It is declared here, not as a build-tag-only symbol, so non-platform code
// (tests, the retry/stream engine) never needs to know it exists.
var openPlatformDeviceFn = openPlatformDevice

type closableSubmitter interface {
	submitter
	Close() error
}

func errUnsupportedPlatform(path string) error {
	return fmt.Errorf("rawcd: no device adapter for this platform (path %q)", path)
}
