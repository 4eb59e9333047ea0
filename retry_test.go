package rawcd

import (
	"encoding/binary"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSubmitter replays a scripted sequence of per-call errors (nil
// meaning success) and records every (lba, sectors) it was asked to submit,
// so tests can assert both outcome and exact chunk sizing.
type recordingSubmitter struct {
	script []error
	calls  []struct{ lba, sectors uint32 }
}

func (m *recordingSubmitter) submit(cdb []byte, buf []byte, timeout time.Duration, dir direction) (status byte, sense []byte, residual int, err error) {
	lba := binary.BigEndian.Uint32(cdb[2:6])
	sectors := uint32(cdb[6])<<16 | uint32(cdb[7])<<8 | uint32(cdb[8])
	m.calls = append(m.calls, struct{ lba, sectors uint32 }{lba, sectors})

	idx := len(m.calls) - 1
	if idx < len(m.script) && m.script[idx] != nil {
		return 0xFF, nil, 0, m.script[idx]
	}
	return 0, nil, 0, nil
}

func TestNextChunkSize(t *testing.T) {
	assert.EqualValues(t, 8, nextChunkSize(27, 1))
	assert.EqualValues(t, 1, nextChunkSize(8, 1))
	assert.EqualValues(t, 8, nextChunkSize(27, 5))
}

func TestReadSectorsWithRetrySucceedsOnKthAttempt(t *testing.T) {
	for k := byte(1); k <= 4; k++ {
		m := &recordingSubmitter{}
		for i := byte(0); i < k-1; i++ {
			m.script = append(m.script, fmt.Errorf("transient failure"))
		}

		cfg := RetryConfig{MaxAttempts: k, InitialBackoffMs: 0, MaxBackoffMs: 0, ReduceChunkOnRetry: false, MinSectorsPerRead: 1}
		restoreSleep := stubSleep(t)

		_, err := readSectorsWithRetry(m, 0, 5, cfg)
		restoreSleep()
		require.NoError(t, err)
		assert.Len(t, m.calls, int(k))
	}
}

func TestReadSectorsWithRetryChunkShrinkLadder(t *testing.T) {
	m := &recordingSubmitter{script: []error{
		fmt.Errorf("io error"),
		fmt.Errorf("io error"),
	}}

	var sleeps []uint64
	orig := sleepFn
	sleepFn = func(d time.Duration) { sleeps = append(sleeps, uint64(d.Milliseconds())) }
	defer func() { sleepFn = orig }()

	cfg := RetryConfig{
		MaxAttempts:        3,
		InitialBackoffMs:   10,
		MaxBackoffMs:       40,
		ReduceChunkOnRetry: true,
		MinSectorsPerRead:  1,
	}

	_, err := readSectorsWithRetry(m, 1000, 27, cfg)
	require.NoError(t, err)

	// The first three calls are the retry ladder of the first chunk; once the
	// 1-sector read succeeds, the remaining 26 sectors go out as a new chunk.
	require.Len(t, m.calls, 4)
	assert.EqualValues(t, 27, m.calls[0].sectors)
	assert.EqualValues(t, 8, m.calls[1].sectors)
	assert.EqualValues(t, 1, m.calls[2].sectors)
	assert.EqualValues(t, 26, m.calls[3].sectors)

	assert.Equal(t, []uint64{10, 20}, sleeps)
}

func TestReadSectorsWithRetryContiguousAndTotalBytes(t *testing.T) {
	m := &recordingSubmitter{}
	restoreSleep := stubSleep(t)
	defer restoreSleep()

	out, err := readSectorsWithRetry(m, 2000, 60, DefaultRetryConfig())
	require.NoError(t, err)
	assert.Len(t, out, 60*BytesPerSector)

	wantLBA := uint32(2000)
	for _, c := range m.calls {
		assert.Equal(t, wantLBA, c.lba)
		wantLBA += c.sectors
	}
}

func TestReadSectorsWithRetryExhaustionSurfacesLastError(t *testing.T) {
	m := &recordingSubmitter{script: []error{
		fmt.Errorf("first"),
		fmt.Errorf("second"),
		fmt.Errorf("third"),
	}}
	restoreSleep := stubSleep(t)
	defer restoreSleep()

	cfg := RetryConfig{MaxAttempts: 3, MinSectorsPerRead: 1}
	_, err := readSectorsWithRetry(m, 0, 10, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "third")
}

func stubSleep(t *testing.T) func() {
	t.Helper()
	orig := sleepFn
	sleepFn = func(time.Duration) {}
	return func() { sleepFn = orig }
}
