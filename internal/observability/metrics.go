package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	protocolCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vndbctl",
			Subsystem: "protocol",
			Name:      "commands_total",
			Help:      "Protocol commands sent, by verb and outcome.",
		},
		[]string{"verb", "outcome"},
	)
	protocolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vndbctl",
			Subsystem: "protocol",
			Name:      "command_duration_seconds",
			Help:      "Protocol command round-trip duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"verb"},
	)
	protocolChunkReads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vndbctl",
			Subsystem: "protocol",
			Name:      "chunk_reads_total",
			Help:      "Chunk reads performed while scanning for the frame terminator.",
		},
	)
	tagRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vndbctl",
			Subsystem: "tags",
			Name:      "refresh_total",
			Help:      "Tag dump refresh attempts, by outcome (fresh, downloaded, failed).",
		},
		[]string{"outcome"},
	)
	tagsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vndbctl",
			Subsystem: "tags",
			Name:      "loaded",
			Help:      "Number of tags in the in-memory index.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(protocolCommands, protocolDuration, protocolChunkReads, tagRefreshes, tagsLoaded)
	})
}

func RecordCommand(verb string, duration time.Duration, err error) {
	RegisterMetrics()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	protocolCommands.WithLabelValues(verb, outcome).Inc()
	protocolDuration.WithLabelValues(verb).Observe(duration.Seconds())
}

func RecordChunkRead() {
	RegisterMetrics()
	protocolChunkReads.Inc()
}

func RecordTagRefresh(outcome string) {
	RegisterMetrics()
	tagRefreshes.WithLabelValues(outcome).Inc()
}

func SetTagsLoaded(n int) {
	RegisterMetrics()
	tagsLoaded.Set(float64(n))
}
