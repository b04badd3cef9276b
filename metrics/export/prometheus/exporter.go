package prometheus

import (
	"net/http"

	"github.com/MrEthical07/blogauth"
	"github.com/MrEthical07/blogauth/metrics/export/internaldefs"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsSource interface {
	MetricsSnapshot() blogauth.MetricsSnapshot
	AuditDropped() uint64
}

type counterDesc struct {
	id   blogauth.MetricID
	desc *prom.Desc
}

type histogramDesc struct {
	id   blogauth.MetricID
	desc *prom.Desc
}

// Collector is a prometheus.Collector that turns each scrape into one engine
// snapshot. It holds no state of its own.
type Collector struct {
	source       metricsSource
	counters     []counterDesc
	histograms   []histogramDesc
	auditDropped *prom.Desc
}

var _ prom.Collector = (*Collector)(nil)

// NewCollector reads from the given engine.
func NewCollector(engine *blogauth.Engine) *Collector {
	return NewCollectorFromSource(engine)
}

func NewCollectorFromSource(source metricsSource) *Collector {
	c := &Collector{
		source:       source,
		counters:     make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms:   make([]histogramDesc, 0, len(internaldefs.HistogramDefs)),
		auditDropped: prom.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, counterDesc{id: def.ID, desc: prom.NewDesc(def.Name, def.Help, nil, nil)})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, histogramDesc{id: def.ID, desc: prom.NewDesc(def.Name, def.Help, nil, nil)})
	}
	return c
}

func (c *Collector) Describe(ch chan<- *prom.Desc) {
	for _, d := range c.counters {
		ch <- d.desc
	}
	for _, d := range c.histograms {
		ch <- d.desc
	}
	ch <- c.auditDropped
}

func (c *Collector) Collect(ch chan<- prom.Metric) {
	if c == nil || c.source == nil {
		return
	}

	snapshot := c.source.MetricsSnapshot()
	for _, d := range c.counters {
		ch <- prom.MustNewConstMetric(d.desc, prom.CounterValue, float64(snapshot.Counters[d.id]))
	}

	for _, d := range c.histograms {
		raw, ok := snapshot.Histograms[d.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, le := range internaldefs.HistogramUpperBounds {
			buckets[le] = cumulative[i]
		}
		sum := snapshot.LatencySum[d.id].Seconds()
		ch <- prom.MustNewConstHistogram(d.desc, cumulative[len(cumulative)-1], sum, buckets)
	}

	ch <- prom.MustNewConstMetric(c.auditDropped, prom.CounterValue, float64(c.source.AuditDropped()))
}

// Handler serves the collector from a private registry, so nothing is added
// to prometheus.DefaultRegisterer.
func (c *Collector) Handler() http.Handler {
	reg := prom.NewRegistry()
	reg.MustRegister(c)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
