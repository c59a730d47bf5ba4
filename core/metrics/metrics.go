package metrics

import "time"

// SlotForecast is the outcome of one departure slot.
type SlotForecast struct {
	ServiceDate string
	SlotTime    time.Time
	SlotIndex   int
	Flights     int
	Capacity    float64
	Predicted   float64
	// Predicted is meaningful only when Available is true.
	Available bool
	Tier      string
	Alert     bool
}

// MetricsSink records slot forecasts for observability purposes.
type MetricsSink interface {
	RecordSlotForecasts(slots []SlotForecast) error
}

// PredictionLatency measures one call into the predictor.
type PredictionLatency struct {
	SlotTime time.Time
	Latency  time.Duration
	Failed   bool
}

// LatencyRecorder is implemented by sinks able to record predictor latency.
type LatencyRecorder interface {
	RecordPredictionLatency(lat []PredictionLatency) error
}

// RunEvent summarizes one service-day run.
type RunEvent struct {
	RunID              string
	ServiceDate        string
	Status             string // "ok" or "failed"
	Slots              int
	Flights            int
	Unassigned         int
	ParseFailures      int
	PredictionFailures int
	Alerts             int
	Duration           time.Duration
	Time               time.Time
}

// RunRecorder records run summaries.
type RunRecorder interface {
	RecordRun(ev RunEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordSlotForecasts([]SlotForecast) error           { return nil }
func (NopSink) RecordPredictionLatency([]PredictionLatency) error { return nil }
func (NopSink) RecordRun(RunEvent) error                          { return nil }
