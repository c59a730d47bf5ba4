package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/shuttlecast/core/metrics"
)

// PromSink records forecast events in Prometheus metrics.
type PromSink struct {
	predicted *prometheus.GaugeVec
	capacity  *prometheus.GaugeVec
	tiers     *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	runs      *prometheus.CounterVec
	failures  *prometheus.CounterVec
}

// NewPromSink registers forecast metrics on the default Prometheus registerer.
// They are exposed by the HTTP server's /metrics route.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	predicted := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "shuttle_slot_predicted_passengers",
		Help: "Predicted boarding passengers per departure slot",
	}, []string{"service_date", "slot"})
	capacity := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "shuttle_slot_capacity_seats",
		Help: "Aggregate average seats of flights assigned to a departure slot",
	}, []string{"service_date", "slot"})
	tiers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shuttle_slot_tier_total",
		Help: "Classified departure slots per risk tier",
	}, []string{"tier", "alert"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shuttle_prediction_latency_seconds",
		Help:    "Duration of predictor calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"failed"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shuttle_forecast_runs_total",
		Help: "Service-day forecast runs by status",
	}, []string{"status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shuttle_forecast_failures_total",
		Help: "Recovered failures by kind",
	}, []string{"kind"})

	var err error
	if predicted, err = register(reg, predicted); err != nil {
		return nil, err
	}
	if capacity, err = register(reg, capacity); err != nil {
		return nil, err
	}
	if tiers, err = register(reg, tiers); err != nil {
		return nil, err
	}
	if latency, err = register(reg, latency); err != nil {
		return nil, err
	}
	if runs, err = register(reg, runs); err != nil {
		return nil, err
	}
	if failures, err = register(reg, failures); err != nil {
		return nil, err
	}
	return &PromSink{predicted: predicted, capacity: capacity, tiers: tiers, latency: latency, runs: runs, failures: failures}, nil
}

// register returns the already registered collector when c was registered
// by a previous sink.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordSlotForecasts sets the per-slot gauges and counts tiers.
func (s *PromSink) RecordSlotForecasts(slots []coremetrics.SlotForecast) error {
	for _, sl := range slots {
		label := sl.SlotTime.Format("15:04")
		s.capacity.WithLabelValues(sl.ServiceDate, label).Set(sl.Capacity)
		if sl.Available {
			s.predicted.WithLabelValues(sl.ServiceDate, label).Set(sl.Predicted)
		}
		s.tiers.WithLabelValues(sl.Tier, strconv.FormatBool(sl.Alert)).Inc()
	}
	return nil
}

// RecordPredictionLatency records the predictor latency histogram.
func (s *PromSink) RecordPredictionLatency(recs []coremetrics.PredictionLatency) error {
	for _, r := range recs {
		s.latency.WithLabelValues(strconv.FormatBool(r.Failed)).Observe(r.Latency.Seconds())
	}
	return nil
}

// RecordRun counts the run and its recovered failures.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.Status).Inc()
	s.failures.WithLabelValues("row_parse").Add(float64(ev.ParseFailures))
	s.failures.WithLabelValues("prediction").Add(float64(ev.PredictionFailures))
	s.failures.WithLabelValues("unassigned").Add(float64(ev.Unassigned))
	return nil
}
