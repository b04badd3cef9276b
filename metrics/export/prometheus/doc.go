// Package prometheus exposes blogauth engine metrics through
// github.com/prometheus/client_golang.
//
// [NewCollector] returns a prometheus.Collector that reads
// [blogauth.Engine.MetricsSnapshot] on every scrape. Counter names are
// blogauth_*_total; the hashing and validation latencies are exported as
// histograms in seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry. Callers register the
//     Collector themselves or mount [Collector.Handler].
//   - Mutate engine state.
package prometheus
