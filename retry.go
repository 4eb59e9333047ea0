package rawcd

import (
	"time"

	"github.com/charmbracelet/log"
)

// maxSectorsPerXfer is the hard chunk cap for a single READ CD command:
// 27 sectors * 2352 bytes = 63,504 bytes, comfortably under common 64 KiB
// transport limits.
const maxSectorsPerXfer = 27

// RetryConfig controls the per-chunk retry policy used by the chunk engine
// (§4.E) for READ CD commands.
type RetryConfig struct {
	// MaxAttempts is the maximum attempts per chunk, including the initial
	// attempt. Floored to 1.
	MaxAttempts byte
	// InitialBackoffMs is the delay before the second attempt. The first
	// attempt is always immediate. If zero, the first retry is immediate too.
	InitialBackoffMs uint64
	// MaxBackoffMs caps the exponential backoff delay.
	MaxBackoffMs uint64
	// ReduceChunkOnRetry enables adaptive sector-count reduction on retry.
	ReduceChunkOnRetry bool
	// MinSectorsPerRead is the floor for adaptive chunk shrinkage. Floored
	// to 1.
	MinSectorsPerRead uint32
}

// DefaultRetryConfig returns the library's default retry policy: 4 attempts,
// 20ms initial backoff doubling to a 300ms cap, adaptive shrinkage enabled
// down to 1 sector.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:        4,
		InitialBackoffMs:   20,
		MaxBackoffMs:       300,
		ReduceChunkOnRetry: true,
		MinSectorsPerRead:  1,
	}
}

// nextChunkSize implements the empirical step-down rule: a fast coarse step
// from the hard cap down to 8 sectors, then straight to the configured
// isolation size.
func nextChunkSize(current, minChunk uint32) uint32 {
	if current > 8 {
		if minChunk > 8 {
			return minChunk
		}
		return 8
	}
	return minChunk
}

// sleepFn is a package-level indirection so tests can avoid real sleeps.
var sleepFn = time.Sleep

// readSectorsWithRetry reads sectors sectors starting at lba through s,
// splitting the range into chunks of at most maxSectorsPerXfer and retrying
// each chunk independently per cfg. Any error from readCD is retryable; the
// engine does not itself classify sense keys. On exhaustion the last
// captured error is surfaced unchanged.
func readSectorsWithRetry(s submitter, lba uint32, sectors uint32, cfg RetryConfig) ([]byte, error) {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	minChunk := cfg.MinSectorsPerRead
	if minChunk < 1 {
		minChunk = 1
	}

	out := make([]byte, 0, int(sectors)*BytesPerSector)

	remaining := sectors
	for remaining > 0 {
		chunkSectors := remaining
		if chunkSectors > maxSectorsPerXfer {
			chunkSectors = maxSectorsPerXfer
		}
		backoffMs := cfg.InitialBackoffMs

		var lastErr error
		var chunk []byte
		for attempt := byte(1); attempt <= maxAttempts; attempt++ {
			chunk, lastErr = readCD(s, lba, chunkSectors)
			if lastErr == nil {
				retryAttemptsCounter.WithLabelValues("success").Inc()
				break
			}

			retryAttemptsCounter.WithLabelValues("failure").Inc()
			log.Debug("rawcd: chunk read failed", "lba", lba, "sectors", chunkSectors, "attempt", attempt, "err", lastErr)

			if attempt == maxAttempts {
				break
			}

			if cfg.ReduceChunkOnRetry && chunkSectors > minChunk {
				chunkSectors = nextChunkSize(chunkSectors, minChunk)
			}
			if backoffMs > 0 {
				sleepFn(time.Duration(backoffMs) * time.Millisecond)
			}
			if cfg.MaxBackoffMs > 0 {
				backoffMs *= 2
				if backoffMs > cfg.MaxBackoffMs {
					backoffMs = cfg.MaxBackoffMs
				}
			}
		}

		if lastErr != nil {
			return nil, lastErr
		}

		out = append(out, chunk...)
		lba += chunkSectors
		remaining -= chunkSectors

		retryChunkSizeGauge.Set(float64(chunkSectors))
	}

	return out, nil
}
