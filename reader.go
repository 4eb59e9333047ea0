package rawcd

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// CdReader is the public facade (§4 "Public Facade"): a single open drive
// handle, holding the process-wide device slot for its lifetime.
type CdReader struct {
	path   string
	dev    closableSubmitter
	closed bool
}

// Open claims the process-wide device slot and opens path using the
// current platform's adapter. Only one CdReader may be open at a time;
// a second Open call fails with ErrBusy until the first is Closed.
func Open(path string) (*CdReader, error) {
	if err := acquireDeviceSlot(); err != nil {
		return nil, err
	}

	dev, err := openPlatformDeviceFn(path)
	if err != nil {
		releaseDeviceSlot()
		return nil, err
	}

	log.Debug("device opened", "path", path)
	return &CdReader{path: path, dev: dev}, nil
}

// Close releases the underlying device and the process-wide slot. It is
// safe to call more than once.
func (r *CdReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.dev.Close()
	releaseDeviceSlot()
	log.Debug("device closed", "path", r.path)
	return err
}

// ReadTOC issues READ TOC/PMA/ATIP (§4.C) and returns the parsed table of
// contents.
func (r *CdReader) ReadTOC() (*Toc, error) {
	if r.closed {
		return nil, ErrClosed
	}
	return readTOC(r.dev)
}

// ReadTrack reads an entire track's raw PCM sectors using the default
// retry policy. For anything beyond a handful of short tracks, prefer
// OpenTrackStream to avoid buffering the whole track in memory.
func (r *CdReader) ReadTrack(toc *Toc, trackNo byte) ([]byte, error) {
	return r.ReadTrackWithRetry(toc, trackNo, DefaultRetryConfig())
}

// ReadTrackWithRetry is ReadTrack with an explicit retry policy.
func (r *CdReader) ReadTrackWithRetry(toc *Toc, trackNo byte, cfg RetryConfig) ([]byte, error) {
	if r.closed {
		return nil, ErrClosed
	}

	startLBA, sectors, err := GetTrackBounds(toc, trackNo)
	if err != nil {
		return nil, err
	}

	return readSectorsWithRetry(r.dev, startLBA, sectors, cfg)
}

// OpenTrackStream opens a stateful, unbuffered iterator (§4.F) over a
// track's sectors.
func (r *CdReader) OpenTrackStream(toc *Toc, trackNo byte, cfg TrackStreamConfig) (*TrackStream, error) {
	if r.closed {
		return nil, ErrClosed
	}

	startLBA, sectors, err := GetTrackBounds(toc, trackNo)
	if err != nil {
		return nil, err
	}

	dev := r.dev
	return &TrackStream{
		read: func(lba, n uint32, retryCfg RetryConfig) ([]byte, error) {
			return readSectorsWithRetry(dev, lba, n, retryCfg)
		},
		startLBA:         startLBA,
		nextLBA:          startLBA,
		remainingSectors: sectors,
		totalSectors:     sectors,
		cfg:              cfg,
	}, nil
}

// String implements fmt.Stringer for diagnostics, e.g. in logs.
func (r *CdReader) String() string {
	return fmt.Sprintf("CdReader(%s)", r.path)
}
