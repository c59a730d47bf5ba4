// Package metrics defines the observability port of the forecaster. Sinks
// record per-slot forecasts, predictor latency and run outcomes; optional
// capabilities are discovered with type assertions so a sink implements only
// what it exports. NewMetricsSink returns a MultiSink when several sinks are
// configured.
package metrics
