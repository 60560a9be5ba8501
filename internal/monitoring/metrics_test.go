package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	m := New(true)
	assert.NotNil(t, m)
	assert.True(t, m.enabled)

	m2 := New(false)
	assert.NotNil(t, m2)
	assert.False(t, m2.enabled)
}

func TestRecordFetch_Enabled(t *testing.T) {
	FetchesTotal.Reset()
	FetchDuration.Reset()
	FetchBytes.Reset()

	m := New(true)
	m.RecordFetch(ModeSniff, "resolved", 256, 20*time.Millisecond)
	m.RecordFetch(ModeSniff, "resolved", 512, 30*time.Millisecond)
	m.RecordFetch(ModeDownload, "network_error", 0, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(FetchesTotal.WithLabelValues(ModeSniff, "resolved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(FetchesTotal.WithLabelValues(ModeDownload, "network_error")))
	assert.Equal(t, 2, testutil.CollectAndCount(FetchDuration))
}

func TestRecordFetch_Disabled(t *testing.T) {
	FetchesTotal.Reset()

	m := New(false)
	m.RecordFetch(ModeDownload, "ok", 4096, time.Millisecond)

	assert.Equal(t, 0, testutil.CollectAndCount(FetchesTotal))
}

func TestNilMetricsIsDisabled(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordFetch(ModeSniff, "ok", 1, time.Millisecond)
		m.RecordCacheLookup(true)
		m.RecordSegment("text")
		m.RecordImageTokens("b", 85)
	})
}

func TestRecordCacheLookup(t *testing.T) {
	MetadataCacheTotal.Reset()

	m := New(true)
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(MetadataCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(MetadataCacheTotal.WithLabelValues("miss")))
}

func TestRecordSegmentAndTokens(t *testing.T) {
	SegmentsTotal.Reset()
	ImageTokensTotal.Reset()

	m := New(true)
	m.RecordSegment("text")
	m.RecordSegment("image")
	m.RecordSegment("image")
	m.RecordImageTokens("a", 210)
	m.RecordImageTokens("a", 350)

	assert.Equal(t, 2.0, testutil.ToFloat64(SegmentsTotal.WithLabelValues("image")))
	assert.Equal(t, 560.0, testutil.ToFloat64(ImageTokensTotal.WithLabelValues("a")))
}
