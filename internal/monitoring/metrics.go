package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch modes
const (
	ModeDownload = "download"
	ModeSniff    = "sniff"
)

var (
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auto_ai_vision_fetches_total",
			Help: "Total number of remote image fetches",
		},
		[]string{"mode", "outcome"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auto_ai_vision_fetch_duration_seconds",
			Help:    "Remote image fetch duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"mode"},
	)

	FetchBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auto_ai_vision_fetch_body_bytes",
			Help:    "Response body bytes consumed per fetch",
			Buckets: prometheus.ExponentialBuckets(256, 4, 10),
		},
		[]string{"mode"},
	)

	MetadataCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auto_ai_vision_metadata_cache_total",
			Help: "Remote metadata cache lookups",
		},
		[]string{"result"},
	)

	SegmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auto_ai_vision_query_segments_total",
			Help: "Segments produced while parsing queries",
		},
		[]string{"kind"},
	)

	ImageTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auto_ai_vision_image_tokens_total",
			Help: "Estimated image tokens by cost algorithm version",
		},
		[]string{"version"},
	)
)

type Metrics struct {
	enabled bool
}

func New(enabled bool) *Metrics {
	return &Metrics{
		enabled: enabled,
	}
}

func (m *Metrics) isEnabled() bool {
	return m != nil && m.enabled
}

// RecordFetch records one remote fetch. outcome is a short label such as
// "ok", "resolved", "unresolved", "image_format_error" or "network_error".
func (m *Metrics) RecordFetch(mode, outcome string, bodyBytes int64, duration time.Duration) {
	if !m.isEnabled() {
		return
	}
	FetchesTotal.WithLabelValues(mode, outcome).Inc()
	FetchDuration.WithLabelValues(mode).Observe(duration.Seconds())
	FetchBytes.WithLabelValues(mode).Observe(float64(bodyBytes))
}

func (m *Metrics) RecordCacheLookup(hit bool) {
	if !m.isEnabled() {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	MetadataCacheTotal.WithLabelValues(result).Inc()
}

// RecordSegment counts a produced segment; kind is "text", "image" or "invalid_path".
func (m *Metrics) RecordSegment(kind string) {
	if !m.isEnabled() {
		return
	}
	SegmentsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordImageTokens(version string, tokens int) {
	if !m.isEnabled() {
		return
	}
	ImageTokensTotal.WithLabelValues(version).Add(float64(tokens))
}
