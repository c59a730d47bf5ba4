package metrics

// MultiSink fans out events to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSlotForecasts forwards the slots to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordSlotForecasts(slots []SlotForecast) error {
	for _, s := range m.Sinks {
		if err := s.RecordSlotForecasts(slots); err != nil {
			return err
		}
	}
	return nil
}

// RecordPredictionLatency forwards latency when supported by the sink.
func (m *MultiSink) RecordPredictionLatency(lat []PredictionLatency) error {
	for _, s := range m.Sinks {
		if lr, ok := s.(LatencyRecorder); ok {
			if err := lr.RecordPredictionLatency(lat); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRun forwards run summaries when supported by the sink.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	for _, s := range m.Sinks {
		if rr, ok := s.(RunRecorder); ok {
			if err := rr.RecordRun(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink that holds a connection.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
