package blogauth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	MetricSignupRequested MetricID = iota
	MetricSignupDuplicate
	MetricSignupFailure
	MetricNotificationFailure
	MetricOTPVerified
	MetricOTPMismatch
	MetricOTPMissing
	MetricAccountCreated
	MetricAccountCreationFailed
	MetricLoginSuccess
	MetricLoginFailure
	MetricPasswordUpgraded
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricPasswordResetRequest
	MetricPasswordResetConfirmSuccess
	MetricPasswordResetConfirmFailure
	MetricValidateFailure
	// MetricHashLatency records time spent deriving password hashes.
	MetricHashLatency
	// MetricValidateLatency records access-token validation time.
	MetricValidateLatency
	metricIDCount
)

// latencyBounds are the finite histogram upper bounds. Observations above
// the last bound land in a final +Inf bucket.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const histBucketCount = len(latencyBounds) + 1

// padded keeps hot counters on separate cache lines.
type padded struct {
	atomic.Uint64
	_ [56]byte
}

type latencyHistogram struct {
	buckets [histBucketCount]atomic.Uint64
	sumNS   atomic.Uint64
}

func (h *latencyHistogram) observe(d time.Duration) {
	if d < 0 {
		d = 0
	}
	i := 0
	for i < len(latencyBounds) && d > latencyBounds[i] {
		i++
	}
	h.buckets[i].Add(1)
	h.sumNS.Add(uint64(d))
}

// Metrics is a fixed set of lock-free counters and latency histograms.
// All methods are safe for concurrent use and no-ops on a nil receiver.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]padded
	hash          latencyHistogram
	validate      latencyHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
// Histogram buckets are per bucket, not cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
	// LatencySum is the total observed time per histogram.
	LatencySum map[MetricID]time.Duration
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount || isHistogram(id) {
		return
	}
	m.counters[id].Add(1)
}

// Observe records d in the histogram of id. Counter ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() {
		return
	}
	if h := m.histogram(id); h != nil {
		h.observe(d)
	}
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
		LatencySum: map[MetricID]time.Duration{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if !isHistogram(id) {
			s.Counters[id] = m.counters[id].Load()
		}
	}

	if m.enableLatency {
		for _, id := range []MetricID{MetricHashLatency, MetricValidateLatency} {
			h := m.histogram(id)
			buckets := make([]uint64, histBucketCount)
			for i := range buckets {
				buckets[i] = h.buckets[i].Load()
			}
			s.Histograms[id] = buckets
			s.LatencySum[id] = time.Duration(h.sumNS.Load())
		}
	}

	return s
}

func (m *Metrics) histogram(id MetricID) *latencyHistogram {
	switch id {
	case MetricHashLatency:
		return &m.hash
	case MetricValidateLatency:
		return &m.validate
	}
	return nil
}

func isHistogram(id MetricID) bool {
	return id == MetricHashLatency || id == MetricValidateLatency
}
