// Package otel binds blogauth counters and latency histograms to
// OpenTelemetry observable instruments.
//
// Each engine counter becomes an Int64ObservableCounter. Each histogram
// becomes a "_bucket" gauge carrying an "le" attribute per cumulative bucket,
// plus a "_count" gauge. One callback reads
// [blogauth.Engine.MetricsSnapshot] per collection cycle.
//
// The caller owns the MeterProvider and supplies the Meter.
package otel
