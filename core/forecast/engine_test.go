package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/shuttlecast/core/flights"
	"github.com/kilianp07/shuttlecast/core/metrics"
	"github.com/kilianp07/shuttlecast/core/model"
	"github.com/kilianp07/shuttlecast/core/prediction"
	"github.com/kilianp07/shuttlecast/core/saturation"
	"github.com/kilianp07/shuttlecast/core/scheduler"
	"github.com/kilianp07/shuttlecast/core/walking"
)

var serviceDay = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

var header = []string{"F. Vuelo", "Real", "ORIGEN", "Asientos Promedio"}

func flightRow(date, clock, origin, seats string) model.RawRow {
	return model.RawRow{"F. Vuelo": date, "Real": clock, "ORIGEN": origin, "Asientos Promedio": seats}
}

func newEngine(t *testing.T, p prediction.Predictor, opts ...func(*Config)) *Engine {
	t.Helper()
	norm, err := flights.NewNormalizer(flights.Schema{}, nil)
	require.NoError(t, err)
	table := walking.RegionTable{}
	table.SetDefaults()
	cls, err := walking.NewClassifier(table)
	require.NoError(t, err)
	cfg := Config{Normalizer: norm, Classifier: cls, Predictor: p}
	for _, o := range opts {
		o(&cfg)
	}
	eng, err := NewEngine(cfg)
	require.NoError(t, err)
	return eng
}

func params() Params {
	return Params{ServiceDate: serviceDay, Window: scheduler.DefaultWindow()}
}

func slotAt(t *testing.T, rep *Report, clock string) SlotReport {
	t.Helper()
	for _, s := range rep.Slots {
		if s.SlotTime.Format("15:04") == clock {
			return s
		}
	}
	t.Fatalf("no slot at %s", clock)
	return SlotReport{}
}

// Scenario 1: BCN and XYZ both arrive at 10:00 and board the 10:45 slot.
func TestRun_TwoOriginsShareSlot(t *testing.T) {
	pred := prediction.NewMockPredictor(prediction.MockConfig{Ratio: 0.5})
	eng := newEngine(t, pred)
	rep, err := eng.Run(context.Background(), model.Batch{Columns: header, Rows: []model.RawRow{
		flightRow("2025-06-01", "10:00", "BCN", "80"),
		flightRow("2025-06-01", "10:00", "XYZ", "40"),
	}}, params())
	require.NoError(t, err)

	require.Len(t, rep.Slots, 71)
	slot := slotAt(t, rep, "10:45")
	assert.Equal(t, 2, slot.FlightCount)
	assert.ElementsMatch(t, []string{"row-1", "row-2"}, slot.FlightIDs)
	assert.Equal(t, 120.0, slot.Capacity)
	assert.Equal(t, 1, slot.ShortDelayFlights)
	assert.Equal(t, 1, slot.LongDelayFlights)
	require.NotNil(t, slot.Predicted)
	assert.Equal(t, 60.0, *slot.Predicted)
	assert.Equal(t, "NOMINAL", slot.Tier)

	for _, s := range rep.Slots {
		if s.SlotTime.Format("15:04") != "10:45" {
			assert.Zero(t, s.Capacity, "slot %s", s.SlotTime.Format("15:04"))
			assert.Empty(t, s.FlightIDs)
		}
	}
	// the 10:30 slot stays empty: XYZ is ready at 10:45
	assert.Zero(t, slotAt(t, rep, "10:30").FlightCount)
	// predictor only called for the non-empty slot
	calls := pred.Calls()
	require.Len(t, calls, 1)
	c, _ := calls[0].Get("capacity")
	assert.Equal(t, 120.0, c)
	assert.Equal(t, 2, rep.Summary.Flights)
	assert.Equal(t, "10:45", rep.Summary.PeakSlot)
}

// Scenario 2: ready at 23:40, after the last 23:30 departure.
func TestRun_LateFlightIsUnassigned(t *testing.T) {
	eng := newEngine(t, prediction.NewMockPredictor(prediction.MockConfig{}))
	rep, err := eng.Run(context.Background(), model.Batch{Columns: header, Rows: []model.RawRow{
		flightRow("2025-06-01", "22:55", "XYZ", "150"),
	}}, params())
	require.NoError(t, err)
	require.Len(t, rep.Unassigned, 1)
	assert.Equal(t, "row-1", rep.Unassigned[0].ID)
	assert.Equal(t, time.Date(2025, 6, 1, 23, 40, 0, 0, time.UTC), rep.Unassigned[0].ReadyAt)
	for _, s := range rep.Slots {
		assert.Zero(t, s.FlightCount)
	}
	assert.Equal(t, 1, rep.Summary.Unassigned)
	assert.Equal(t, 0, rep.Summary.Assigned)
}

// Scenario 3: no flights, every slot present with zero capacity and zero
// prediction, predictor never invoked.
func TestRun_NoFlights(t *testing.T) {
	pred := &prediction.MockPredictor{Err: errors.New("must not be called")}
	eng := newEngine(t, pred)
	rep, err := eng.Run(context.Background(), model.Batch{Columns: header}, params())
	require.NoError(t, err)
	require.Len(t, rep.Slots, 71)
	for _, s := range rep.Slots {
		assert.Zero(t, s.Capacity)
		require.NotNil(t, s.Predicted)
		assert.Zero(t, *s.Predicted)
		assert.Equal(t, "NOMINAL", s.Tier)
	}
	assert.Empty(t, pred.Calls())
	assert.Empty(t, rep.PredictionFailures)
}

// Scenario 4: unparsable date excluded and reported, other rows assigned.
func TestRun_RowParseFailure(t *testing.T) {
	eng := newEngine(t, prediction.NewMockPredictor(prediction.MockConfig{}))
	rep, err := eng.Run(context.Background(), model.Batch{Columns: header, Rows: []model.RawRow{
		flightRow("not-a-date", "10:00", "BCN", "80"),
		flightRow("2025-06-01", "08:00", "MAD", "50"),
	}}, params())
	require.NoError(t, err)
	require.Len(t, rep.ParseFailures, 1)
	assert.Equal(t, 1, rep.ParseFailures[0].Row)
	slot := slotAt(t, rep, "08:30")
	assert.Equal(t, []string{"row-2"}, slot.FlightIDs)
	assert.Equal(t, 50.0, slot.Capacity)
}

// Scenario 5: default thresholds alert at 90.
func TestRun_AlertClassification(t *testing.T) {
	cases := []struct {
		predicted float64
		tier      string
		alert     bool
	}{
		{95, "SATURATED", true},
		{89, "NOMINAL", false},
		{90, "SATURATED", true},
		{100, "OVER_CAPACITY", true},
	}
	for _, tc := range cases {
		v := tc.predicted
		eng := newEngine(t, prediction.NewMockPredictor(prediction.MockConfig{Fixed: &v}))
		rep, err := eng.Run(context.Background(), model.Batch{Columns: header, Rows: []model.RawRow{
			flightRow("2025-06-01", "12:00", "BCN", "180"),
		}}, params())
		require.NoError(t, err)
		slot := slotAt(t, rep, "12:30")
		assert.Equal(t, tc.tier, slot.Tier, "predicted %g", tc.predicted)
		assert.Equal(t, tc.alert, slot.Alert, "predicted %g", tc.predicted)
		if tc.alert {
			assert.Len(t, rep.AlertSlots(), 1)
		} else {
			assert.Empty(t, rep.AlertSlots())
		}
	}
}

func TestRun_FiveTierThresholds(t *testing.T) {
	v := 45.0
	eng := newEngine(t, prediction.NewMockPredictor(prediction.MockConfig{Fixed: &v}), func(c *Config) {
		c.Thresholds = saturation.FiveTierTable()
	})
	rep, err := eng.Run(context.Background(), model.Batch{Columns: header, Rows: []model.RawRow{
		flightRow("2025-06-01", "12:00", "BCN", "60"),
	}}, params())
	require.NoError(t, err)
	assert.Equal(t, "MODERATE", slotAt(t, rep, "12:30").Tier)
}

func TestRun_PredictionFailuresAreRecovered(t *testing.T) {
	values := map[float64]float64{10: -3, 20: math.NaN(), 30: math.Inf(1)}
	pred := prediction.PredictorFunc(func(_ context.Context, f prediction.Features) (float64, error) {
		c, _ := f.Get("capacity")
		if c == 40 {
			return 0, errors.New("model server unavailable")
		}
		if v, ok := values[c]; ok {
			return v, nil
		}
		return c, nil
	})
	eng := newEngine(t, pred)
	rep, err := eng.Run(context.Background(), model.Batch{Columns: header, Rows: []model.RawRow{
		flightRow("2025-06-01", "08:00", "BCN", "10"),
		flightRow("2025-06-01", "09:00", "BCN", "20"),
		flightRow("2025-06-01", "10:00", "BCN", "30"),
		flightRow("2025-06-01", "11:00", "BCN", "40"),
		flightRow("2025-06-01", "12:00", "BCN", "50"),
	}}, params())
	require.NoError(t, err)

	require.Len(t, rep.PredictionFailures, 4)
	for _, clock := range []string{"08:30", "09:30", "10:30", "11:30"} {
		s := slotAt(t, rep, clock)
		assert.Nil(t, s.Predicted, clock)
		assert.Equal(t, TierUnknown, s.Tier, clock)
		assert.NotEmpty(t, s.PredictionError, clock)
	}
	assert.Contains(t, slotAt(t, rep, "11:30").PredictionError, "model server unavailable")
	ok := slotAt(t, rep, "12:30")
	require.NotNil(t, ok.Predicted)
	assert.Equal(t, 50.0, *ok.Predicted)
	assert.Equal(t, 4, rep.Summary.Tiers[TierUnknown])
}

func TestRun_FatalErrors(t *testing.T) {
	eng := newEngine(t, prediction.NewMockPredictor(prediction.MockConfig{}))

	_, err := eng.Run(context.Background(), model.Batch{Columns: []string{"F. Vuelo", "Real"}}, params())
	var verr *flights.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)

	bad := params()
	bad.Window = scheduler.Window{Start: scheduler.MustTimeOfDay("12:00"), End: scheduler.MustTimeOfDay("06:00"), Interval: 15 * time.Minute}
	_, err = eng.Run(context.Background(), model.Batch{Columns: header}, bad)
	var cerr *scheduler.ConfigurationError
	require.True(t, errors.As(err, &cerr), "got %v", err)

	_, err = eng.Run(context.Background(), model.Batch{Columns: header}, Params{})
	require.Error(t, err)
}

func TestNewEngine_InvalidThresholds(t *testing.T) {
	norm, _ := flights.NewNormalizer(flights.Schema{}, nil)
	cls, _ := walking.NewClassifier(walking.RegionTable{})
	_, err := NewEngine(Config{
		Normalizer: norm,
		Classifier: cls,
		Predictor:  prediction.NewMockPredictor(prediction.MockConfig{}),
		Thresholds: saturation.Table{Tiers: []saturation.Tier{{Name: "A", Min: 10}}},
	})
	var cerr *saturation.ConfigurationError
	require.True(t, errors.As(err, &cerr))

	_, err = NewEngine(Config{Normalizer: norm})
	require.Error(t, err)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pred := prediction.PredictorFunc(func(context.Context, prediction.Features) (float64, error) {
		cancel()
		return 0, context.Canceled
	})
	eng := newEngine(t, pred)
	rep, err := eng.Run(ctx, model.Batch{Columns: header, Rows: []model.RawRow{
		flightRow("2025-06-01", "08:00", "BCN", "10"),
		flightRow("2025-06-01", "09:00", "BCN", "20"),
	}}, params())
	assert.Nil(t, rep)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_Idempotent(t *testing.T) {
	rows := []model.RawRow{
		flightRow("2025-06-01", "06:10", "ALC", "70"),
		flightRow("2025-06-01", "10:00", "BCN", "80"),
		flightRow("2025-06-01", "10:00", "XYZ", "40"),
		flightRow("2025-06-01", "bad", "XYZ", "40"),
		flightRow("2025-06-01", "23:20", "LHR", "180"),
	}
	defs, err := prediction.Contract("cumulative-region")
	require.NoError(t, err)
	fs, err := prediction.NewFeatureSet(defs)
	require.NoError(t, err)
	lin, err := prediction.NewLinearPredictor(prediction.LinearConfig{
		Intercept: 2,
		Coefficients: map[string]float64{
			"hora": 0.5, "num_vuelos_previos": 1, "suma_capacidades_previas": 0.1,
			"vuelos_origen_UE": 3, "vuelos_origen_no_UE": 4,
		},
		ClampAtZero: true,
	}, fs.Names())
	require.NoError(t, err)
	eng := newEngine(t, lin, func(c *Config) { c.Features = fs })

	run := func() []byte {
		rep, err := eng.Run(context.Background(), model.Batch{Columns: header, Rows: rows}, params())
		require.NoError(t, err)
		b, err := json.Marshal(rep)
		require.NoError(t, err)
		return b
	}
	assert.Equal(t, string(run()), string(run()))
}

type captureSink struct {
	slots []metrics.SlotForecast
	runs  []metrics.RunEvent
	lat   int
}

func (c *captureSink) RecordSlotForecasts(s []metrics.SlotForecast) error {
	c.slots = append(c.slots, s...)
	return nil
}

func (c *captureSink) RecordRun(ev metrics.RunEvent) error {
	c.runs = append(c.runs, ev)
	return nil
}

func (c *captureSink) RecordPredictionLatency(l []metrics.PredictionLatency) error {
	c.lat += len(l)
	return nil
}

func TestRun_RecordsMetrics(t *testing.T) {
	sink := &captureSink{}
	eng := newEngine(t, prediction.NewMockPredictor(prediction.MockConfig{}), func(c *Config) { c.Metrics = sink })
	p := params()
	p.RunID = "run-1"
	_, err := eng.Run(context.Background(), model.Batch{Columns: header, Rows: []model.RawRow{
		flightRow("2025-06-01", "10:00", "BCN", "95"),
	}}, p)
	require.NoError(t, err)
	assert.Len(t, sink.slots, 71)
	assert.Equal(t, 1, sink.lat)
	require.Len(t, sink.runs, 1)
	assert.Equal(t, "ok", sink.runs[0].Status)
	assert.Equal(t, "run-1", sink.runs[0].RunID)
	assert.Equal(t, 1, sink.runs[0].Alerts)

	_, err = eng.Run(context.Background(), model.Batch{}, p)
	require.Error(t, err)
	require.Len(t, sink.runs, 2)
	assert.Equal(t, "failed", sink.runs[1].Status)
	assert.Len(t, sink.slots, 71)
}

func withContract(t *testing.T, name string) func(*Config) {
	t.Helper()
	defs, err := prediction.Contract(name)
	require.NoError(t, err)
	fs, err := prediction.NewFeatureSet(defs)
	require.NoError(t, err)
	return func(c *Config) { c.Features = fs }
}

func TestRun_CumulativeRegionFeatures(t *testing.T) {
	pred := prediction.NewMockPredictor(prediction.MockConfig{Fixed: ptr(10)})
	eng := newEngine(t, pred, withContract(t, "cumulative-region"))
	_, err := eng.Run(context.Background(), model.Batch{Columns: header, Rows: []model.RawRow{
		flightRow("2025-06-01", "09:00", "BCN", "60"),
		flightRow("2025-06-01", "09:00", "XYZ", "60"),
		flightRow("2025-06-01", "10:00", "MAD", "60"),
	}}, params())
	require.NoError(t, err)

	// BCN ready 09:30, XYZ 09:45, MAD 10:30
	calls := pred.Calls()
	require.Len(t, calls, 3)
	for _, c := range calls {
		m := c.Map()
		assert.Equal(t, m["num_vuelos_previos"], m["vuelos_origen_UE"]+m["vuelos_origen_no_UE"], "hora %v", m["hora"])
	}
	assert.Equal(t, map[string]float64{
		"hora":                     10.5,
		"num_vuelos_previos":       3,
		"suma_capacidades_previas": 180,
		"vuelos_origen_UE":         2,
		"vuelos_origen_no_UE":      1,
	}, calls[2].Map())
}

func TestRun_ConnectedFlightsLookback(t *testing.T) {
	rows := []model.RawRow{
		// ready 10:18, twelve minutes before the 10:30 slot
		flightRow("2025-06-01", "09:48", "BCN", "50"),
		// ready 10:25
		flightRow("2025-06-01", "09:55", "BCN", "50"),
	}

	pred := prediction.NewMockPredictor(prediction.MockConfig{Fixed: ptr(10)})
	eng := newEngine(t, pred, withContract(t, "minute-connected"))
	rep, err := eng.Run(context.Background(), model.Batch{Columns: header, Rows: rows}, params())
	require.NoError(t, err)
	assert.Equal(t, 2, slotAt(t, rep, "10:30").FlightCount)
	calls := pred.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]float64{"minutos_dia": 630, "vuelos_conectados": 1}, calls[0].Map())

	pred = prediction.NewMockPredictor(prediction.MockConfig{Fixed: ptr(10)})
	eng = newEngine(t, pred, withContract(t, "minute-connected"), func(c *Config) {
		c.ConnectedLookback = 15 * time.Minute
	})
	_, err = eng.Run(context.Background(), model.Batch{Columns: header, Rows: rows}, params())
	require.NoError(t, err)
	calls = pred.Calls()
	require.Len(t, calls, 1)
	v, _ := calls[0].Get("vuelos_conectados")
	assert.Equal(t, 2.0, v)
}

func TestNewEngine_NegativeLookback(t *testing.T) {
	norm, err := flights.NewNormalizer(flights.Schema{}, nil)
	require.NoError(t, err)
	table := walking.RegionTable{}
	table.SetDefaults()
	cls, err := walking.NewClassifier(table)
	require.NoError(t, err)
	_, err = NewEngine(Config{
		Normalizer:        norm,
		Classifier:        cls,
		Predictor:         prediction.NewMockPredictor(prediction.MockConfig{}),
		ConnectedLookback: -time.Minute,
	})
	assert.Error(t, err)
}

func ptr(v float64) *float64 { return &v }
