package metrics

import "github.com/prometheus/client_golang/prometheus"

// Namespace prefixes every flagdeck metric.
const Namespace = "flagdeck"

// Image fetch, session and flagging Prometheus metrics.
var (
	ImageFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "image_fetch_total",
			Help:      "Total number of remote image fetches",
		},
		[]string{"result"}, // "ok" / "status" / "network" / "decode"
	)

	ImageFetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "image_fetch_duration_seconds",
			Help:      "Remote image fetch duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	ImageCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "image_cache_total",
			Help:      "Image cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	FlagsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "flags_total",
			Help:      "Flag actions by outcome",
		},
		[]string{"result"}, // "added" / "already_flagged"
	)

	ExportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "exports_total",
			Help:      "Export requests by outcome",
		},
		[]string{"result"}, // "ok" / "empty"
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "sessions_active",
			Help:      "Number of live sessions",
		},
	)
)
