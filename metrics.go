package rawcd

import "github.com/prometheus/client_golang/prometheus"

// Metrics instrumentation for the retry/chunk engine. This is purely
// additive: ReadTrack and friends work identically whether or not a caller
// ever registers the collector. The gauge and counter are plain
// NewGauge/NewCounterVec metrics that the caller registers.
var (
	retryChunkSizeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rawcd",
		Name:      "read_chunk_sectors",
		Help:      "Sector count of the most recently completed READ CD chunk.",
	})

	retryAttemptsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rawcd",
		Name:      "read_attempts_total",
		Help:      "Count of READ CD command attempts, labeled by outcome.",
	}, []string{"outcome"})
)

// Collectors returns the prometheus collectors rawcd maintains internally,
// for callers that want to register them with their own registry (e.g.
// prometheus.MustRegister(rawcd.Collectors()...)). Registration is left to
// the caller so the library never mutates the default global registry on
// their behalf.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{retryChunkSizeGauge, retryAttemptsCounter}
}
