package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/blogauth"
	"github.com/MrEthical07/blogauth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() blogauth.MetricsSnapshot
	AuditDropped() uint64
}

type counterBinding struct {
	id  blogauth.MetricID
	ins metric.Int64ObservableCounter
}

type histogramBinding struct {
	id      blogauth.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Exporter publishes engine counters and latency histograms as observable
// instruments. Histogram buckets share one gauge and are told apart by the
// "le" attribute, cumulative as in the Prometheus exposition.
type Exporter struct {
	source       metricsSource
	registration metric.Registration

	counters   []counterBinding
	histograms []histogramBinding
	dropped    metric.Int64ObservableCounter

	// one attribute set per bucket bound, built once
	bounds []metric.ObserveOption
}

// New registers instruments on meter and reads engine snapshots on each
// collection. Close unregisters the callback.
func New(meter metric.Meter, engine *blogauth.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewFromSource(meter, engine)
}

func NewFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	for _, b := range internaldefs.HistogramUpperBounds {
		le := strconv.FormatFloat(b, 'g', -1, 64)
		e.bounds = append(e.bounds, metric.WithAttributes(attribute.String("le", le)))
	}
	e.bounds = append(e.bounds, metric.WithAttributes(attribute.String("le", "+Inf")))

	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counterBinding{id: def.ID, ins: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket", metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("histogram %s: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription("Observations recorded in "+def.Name),
		)
		if err != nil {
			return nil, fmt.Errorf("histogram %s count: %w", def.Name, err)
		}
		e.histograms = append(e.histograms, histogramBinding{id: def.ID, buckets: buckets, count: count})
		observables = append(observables, buckets, count)
	}

	dropped, err := meter.Int64ObservableCounter(
		internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
	)
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	e.dropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	for _, c := range e.counters {
		o.ObserveInt64(c.ins, int64(snap.Counters[c.id]))
	}

	for _, h := range e.histograms {
		raw, ok := snap.Histograms[h.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, n := range cumulative {
			o.ObserveInt64(h.buckets, int64(n), e.bounds[i])
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}

	o.ObserveInt64(e.dropped, int64(e.source.AuditDropped()))
	return nil
}

func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
