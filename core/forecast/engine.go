// Package forecast runs the service-day pipeline: normalize flights, derive
// readiness, generate departure slots, partition flights across slots,
// aggregate capacity, predict boarding passengers and classify risk.
//
// Fatal errors (invalid input header, invalid window or thresholds) abort
// before any prediction. Row and prediction failures are recovered and
// returned in the Report. A cancelled context aborts the run without a
// report.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/shuttlecast/core/assign"
	"github.com/kilianp07/shuttlecast/core/flights"
	"github.com/kilianp07/shuttlecast/core/logger"
	"github.com/kilianp07/shuttlecast/core/metrics"
	"github.com/kilianp07/shuttlecast/core/model"
	"github.com/kilianp07/shuttlecast/core/prediction"
	"github.com/kilianp07/shuttlecast/core/saturation"
	"github.com/kilianp07/shuttlecast/core/scheduler"
	"github.com/kilianp07/shuttlecast/core/walking"
)

// DefaultConnectedLookback bounds the connected_flights feature.
const DefaultConnectedLookback = 10 * time.Minute

// Config wires the pipeline stages. Normalizer, Classifier and Predictor
// are required.
type Config struct {
	Normalizer *flights.Normalizer
	Classifier *walking.Classifier
	Features   *prediction.FeatureSet
	Predictor  prediction.Predictor
	Thresholds saturation.Table
	// ConnectedLookback defaults to DefaultConnectedLookback when zero.
	ConnectedLookback time.Duration
	Logger            logger.Logger
	Metrics           metrics.MetricsSink
}

// Params are the per-run service-day parameters.
type Params struct {
	ServiceDate time.Time
	// Window defaults to scheduler.DefaultWindow when zero.
	Window scheduler.Window
	// RunID only tags emitted metrics.
	RunID string
}

// Engine is stateless between runs and may be shared by concurrent callers
// as long as its predictor and sink are.
type Engine struct {
	normalizer *flights.Normalizer
	classifier *walking.Classifier
	features   *prediction.FeatureSet
	predictor  prediction.Predictor
	thresholds saturation.Table
	lookback   time.Duration
	log        logger.Logger
	metrics    metrics.MetricsSink
}

// NewEngine validates cfg and returns an engine. An invalid threshold table
// is reported as *saturation.ConfigurationError.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Normalizer == nil || cfg.Classifier == nil || cfg.Predictor == nil {
		return nil, errors.New("forecast: normalizer, classifier and predictor are required")
	}
	if len(cfg.Thresholds.Tiers) == 0 {
		cfg.Thresholds = saturation.DefaultTable()
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	switch {
	case cfg.ConnectedLookback < 0:
		return nil, fmt.Errorf("forecast: negative connected lookback %s", cfg.ConnectedLookback)
	case cfg.ConnectedLookback == 0:
		cfg.ConnectedLookback = DefaultConnectedLookback
	}
	if cfg.Features == nil {
		fs, err := prediction.NewFeatureSet(nil)
		if err != nil {
			return nil, err
		}
		cfg.Features = fs
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NopSink{}
	}
	return &Engine{
		normalizer: cfg.Normalizer,
		classifier: cfg.Classifier,
		features:   cfg.Features,
		predictor:  cfg.Predictor,
		thresholds: cfg.Thresholds,
		lookback:   cfg.ConnectedLookback,
		log:        cfg.Logger,
		metrics:    cfg.Metrics,
	}, nil
}

// Thresholds returns the table slots are classified with.
func (e *Engine) Thresholds() saturation.Table { return e.thresholds }

// Run computes the report for one service day.
func (e *Engine) Run(ctx context.Context, batch model.Batch, p Params) (rep *Report, err error) {
	start := time.Now()
	if p.ServiceDate.IsZero() {
		return nil, errors.New("forecast: service date is required")
	}
	if p.Window == (scheduler.Window{}) {
		p.Window = scheduler.DefaultWindow()
	}
	day := p.ServiceDate.Format("2006-01-02")
	var latencies []metrics.PredictionLatency
	defer func() {
		e.recordRun(p.RunID, day, rep, err, latencies, time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slots, err := scheduler.Generate(p.ServiceDate, p.Window)
	if err != nil {
		return nil, fmt.Errorf("generate slots: %w", err)
	}
	norm, err := e.normalizer.Normalize(batch, flights.Options{ServiceDate: p.ServiceDate})
	if err != nil {
		return nil, fmt.Errorf("normalize flights: %w", err)
	}
	ready := e.classifier.Readiness(norm.Flights)
	part, err := assign.Assign(model.SlotTimes(slots), ready)
	if err != nil {
		return nil, fmt.Errorf("assign flights: %w", err)
	}

	rep = &Report{
		ServiceDate: day,
		Timezone:    p.ServiceDate.Location().String(),
		Window: WindowInfo{
			Start:           p.Window.Start.String(),
			End:             p.Window.End.String(),
			IntervalMinutes: int(p.Window.Interval / time.Minute),
		},
		Features:           e.features.Names(),
		Slots:              make([]SlotReport, 0, len(slots)),
		Unassigned:         make([]UnassignedFlight, 0, len(part.Unassigned)),
		ParseFailures:      append([]flights.RowParseFailure{}, norm.Failures...),
		PredictionFailures: []PredictionFailure{},
	}

	var cumulative assign.Aggregate
	for i := range slots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slot := &slots[i]
		slot.Flights = part.Slots[i]
		agg := assign.AggregateFlights(slot.Flights)
		cumulative = cumulative.Add(agg)
		slot.Capacity = agg.Capacity

		sr := SlotReport{
			Index:             slot.Index,
			SlotTime:          slot.Time,
			FlightCount:       agg.Flights,
			FlightIDs:         slot.FlightIDs(),
			ShortDelayFlights: agg.ShortDelay,
			LongDelayFlights:  agg.LongDelay,
			Capacity:          agg.Capacity,
			Tier:              TierUnknown,
		}

		env := slotEnv(*slot, agg, cumulative, p.Window.Interval)
		env.ConnectedFlights = float64(part.ReadyBetween(slot.Time.Add(-e.lookback), slot.Time))
		predicted, lat, perr := e.predict(ctx, env)
		if lat != nil {
			latencies = append(latencies, *lat)
		}
		if perr != nil {
			if cerr := ctx.Err(); cerr != nil {
				return nil, fmt.Errorf("slot %s: %w", slot.Time.Format("15:04"), cerr)
			}
			f := PredictionFailure{SlotIndex: slot.Index, SlotTime: slot.Time, Reason: perr.Error()}
			rep.PredictionFailures = append(rep.PredictionFailures, f)
			sr.PredictionError = f.Reason
			slot.Tier = TierUnknown
			e.log.Warnf("prediction failed for %s: %v", slot.Time.Format("15:04"), perr)
		} else {
			tier, cerr := e.thresholds.Classify(predicted)
			if cerr != nil {
				return nil, fmt.Errorf("classify slot %s: %w", slot.Time.Format("15:04"), cerr)
			}
			v := predicted
			slot.Predicted = &v
			slot.Tier = tier.Name
			sr.Predicted = &v
			sr.Tier = tier.Name
			sr.Alert = tier.Alert
		}
		e.log.Debugw("slot forecast", map[string]any{
			"slot":      slot.Time.Format("15:04"),
			"flights":   agg.Flights,
			"capacity":  agg.Capacity,
			"tier":      sr.Tier,
			"predicted": sr.Predicted,
		})
		rep.Slots = append(rep.Slots, sr)
	}

	for _, f := range part.Unassigned {
		rep.Unassigned = append(rep.Unassigned, UnassignedFlight{ID: f.ID, Origin: f.Origin, Arrival: f.Arrival, ReadyAt: f.ReadyAt})
	}
	rep.Summary = summarize(rep)

	e.log.Infow("service day forecast", map[string]any{
		"service_date":        day,
		"slots":               rep.Summary.Slots,
		"flights":             rep.Summary.Flights,
		"unassigned":          rep.Summary.Unassigned,
		"parse_failures":      rep.Summary.ParseFailures,
		"prediction_failures": rep.Summary.PredictionFailures,
		"alert_slots":         rep.Summary.AlertSlots,
	})
	return rep, nil
}

// predict returns the passenger count for one slot. Empty-capacity slots
// short-circuit to zero without calling the predictor.
func (e *Engine) predict(ctx context.Context, env prediction.SlotEnv) (float64, *metrics.PredictionLatency, error) {
	if env.Capacity == 0 {
		return 0, nil, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	feats, err := e.features.Evaluate(env)
	if err != nil {
		return 0, nil, err
	}
	start := time.Now()
	v, err := e.predictor.Predict(ctx, feats)
	lat := &metrics.PredictionLatency{Latency: time.Since(start), Failed: err != nil}
	if err != nil {
		return 0, lat, fmt.Errorf("predictor: %w", err)
	}
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		err = fmt.Errorf("predictor returned non-finite value %v", v)
	case v < 0:
		err = fmt.Errorf("predictor returned negative value %g", v)
	}
	lat.Failed = err != nil
	return v, lat, err
}

func slotEnv(slot model.DepartureSlot, agg, cumulative assign.Aggregate, interval time.Duration) prediction.SlotEnv {
	minute := slot.Time.Hour()*60 + slot.Time.Minute()
	return prediction.SlotEnv{
		Capacity:           agg.Capacity,
		Flights:            float64(agg.Flights),
		ShortDelayFlights:  float64(agg.ShortDelay),
		LongDelayFlights:   float64(agg.LongDelay),
		CumulativeFlights:  float64(cumulative.Flights),
		CumulativeCapacity: cumulative.Capacity,
		MinuteOfDay:        float64(minute),
		Hour:               float64(minute) / 60,
		SlotIndex:          float64(slot.Index),
		IntervalMinutes:    interval.Minutes(),

		CumulativeShortDelayFlights: float64(cumulative.ShortDelay),
		CumulativeLongDelayFlights:  float64(cumulative.LongDelay),
	}
}

func (e *Engine) recordRun(runID, day string, rep *Report, err error, lat []metrics.PredictionLatency, d time.Duration) {
	ev := metrics.RunEvent{RunID: runID, ServiceDate: day, Status: "ok", Duration: d, Time: time.Now()}
	if err != nil {
		ev.Status = "failed"
	}
	if rep != nil && err == nil {
		ev.Slots = rep.Summary.Slots
		ev.Flights = rep.Summary.Flights
		ev.Unassigned = rep.Summary.Unassigned
		ev.ParseFailures = rep.Summary.ParseFailures
		ev.PredictionFailures = rep.Summary.PredictionFailures
		ev.Alerts = rep.Summary.AlertSlots

		slots := make([]metrics.SlotForecast, len(rep.Slots))
		for i, s := range rep.Slots {
			slots[i] = metrics.SlotForecast{
				ServiceDate: day,
				SlotTime:    s.SlotTime,
				SlotIndex:   s.Index,
				Flights:     s.FlightCount,
				Capacity:    s.Capacity,
				Available:   s.Predicted != nil,
				Tier:        s.Tier,
				Alert:       s.Alert,
			}
			if s.Predicted != nil {
				slots[i].Predicted = *s.Predicted
			}
		}
		if merr := e.metrics.RecordSlotForecasts(slots); merr != nil {
			e.log.Warnf("record slot metrics: %v", merr)
		}
	}
	if lr, ok := e.metrics.(metrics.LatencyRecorder); ok && len(lat) > 0 {
		if merr := lr.RecordPredictionLatency(lat); merr != nil {
			e.log.Warnf("record latency metrics: %v", merr)
		}
	}
	if rr, ok := e.metrics.(metrics.RunRecorder); ok {
		if merr := rr.RecordRun(ev); merr != nil {
			e.log.Warnf("record run metrics: %v", merr)
		}
	}
}
