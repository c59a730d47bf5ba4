package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/shuttlecast/config"
	"github.com/kilianp07/shuttlecast/core/flights"
	coremetrics "github.com/kilianp07/shuttlecast/core/metrics"
	coremon "github.com/kilianp07/shuttlecast/core/monitoring"
	"github.com/kilianp07/shuttlecast/core/model"
	"github.com/kilianp07/shuttlecast/core/prediction"
	"github.com/kilianp07/shuttlecast/core/reportlog"
	"github.com/kilianp07/shuttlecast/core/scheduler"
	"github.com/kilianp07/shuttlecast/infra/logger"
	"github.com/kilianp07/shuttlecast/infra/mqtt"
)

const flightsCSV = `F. Vuelo,Real,ORIGEN,Asientos Promedio
2024-03-04,10:05,MAD,180
2024-03-04,10:10,JFK,300
2024-03-04,bad,BCN,150
`

type recordMonitor struct {
	errs []error
	tags []map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}
func (r *recordMonitor) CapturePanic(any)    {}
func (r *recordMonitor) Flush(time.Duration) {}

func newService(t *testing.T, fixed float64) (*Service, *mqtt.MockPublisher) {
	t.Helper()
	cfg := config.Default()
	cfg.ReportLog.Path = filepath.Join(t.TempDir(), "runs.jsonl")
	pub := mqtt.NewMockPublisher()
	clock := func() time.Time { return time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC) }
	svc, err := New(cfg,
		WithPredictor(prediction.NewMockPredictor(prediction.MockConfig{Fixed: &fixed})),
		WithAlertPublisher(pub),
		WithMetrics(coremetrics.NopSink{}),
		WithLogger(logger.NopLogger{}),
		WithClock(clock),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, pub
}

func serviceDate(t *testing.T) time.Time {
	d, err := config.Default().Service.ParseDate("2024-03-04")
	require.NoError(t, err)
	return d
}

func TestService_Forecast(t *testing.T) {
	svc, pub := newService(t, 95)
	batch, err := svc.Ingest(strings.NewReader(flightsCSV), "flights.csv")
	require.NoError(t, err)

	res, err := svc.Forecast(context.Background(), batch, Request{ServiceDate: serviceDate(t), Source: "flights.csv"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "2024-03-04", res.Report.ServiceDate)
	assert.Len(t, res.Report.ParseFailures, 1)

	// MAD ready 10:35 and JFK ready 10:55 board different departures.
	assert.Equal(t, 2, res.Report.Summary.AlertSlots)
	assert.Equal(t, 2, res.AlertsPublished)
	published := pub.Published()
	require.Len(t, published, 2)
	assert.Equal(t, res.RunID, published[0].RunID)
	assert.Equal(t, "10:45", published[0].SlotTime.Format("15:04"))
	assert.Equal(t, "11:00", published[1].SlotTime.Format("15:04"))

	recs, err := svc.History(context.Background(), reportlog.Query{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, res.RunID, recs[0].RunID)
	assert.Equal(t, "flights.csv", recs[0].Source)
	assert.Equal(t, res.Report.Summary, recs[0].Report.Summary)
}

func TestService_NoAlertsBelowThreshold(t *testing.T) {
	svc, pub := newService(t, 10)
	batch, err := svc.Ingest(strings.NewReader(flightsCSV), "flights.csv")
	require.NoError(t, err)
	res, err := svc.Forecast(context.Background(), batch, Request{ServiceDate: serviceDate(t)})
	require.NoError(t, err)
	assert.Zero(t, res.AlertsPublished)
	assert.Empty(t, pub.Published())
}

func TestService_AlertFailureDoesNotFailRun(t *testing.T) {
	svc, pub := newService(t, 95)
	pub.FailSlots["10:45"] = true
	batch, err := svc.Ingest(strings.NewReader(flightsCSV), "flights.csv")
	require.NoError(t, err)
	res, err := svc.Forecast(context.Background(), batch, Request{ServiceDate: serviceDate(t)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.AlertsPublished)
	assert.Len(t, res.AlertErrors, 1)
}

func TestService_WindowOverride(t *testing.T) {
	svc, _ := newService(t, 0)
	batch, err := svc.Ingest(strings.NewReader(flightsCSV), "flights.csv")
	require.NoError(t, err)
	w := scheduler.Window{Start: scheduler.MustTimeOfDay("10:00"), End: scheduler.MustTimeOfDay("11:00"), Interval: 30 * time.Minute}
	res, err := svc.Forecast(context.Background(), batch, Request{ServiceDate: serviceDate(t), Window: &w})
	require.NoError(t, err)
	assert.Len(t, res.Report.Slots, 3)
}

func TestService_FatalErrorCaptured(t *testing.T) {
	mon := &recordMonitor{}
	coremon.Init(mon)
	defer coremon.Init(coremon.NopMonitor{})

	svc, _ := newService(t, 0)
	batch, err := svc.Ingest(strings.NewReader("Fecha,Hora\n2024-03-04,10:00\n"), "flights.csv")
	require.NoError(t, err)
	_, err = svc.Forecast(context.Background(), batch, Request{ServiceDate: serviceDate(t)})
	var ve *flights.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, mon.errs, 1)
	assert.Equal(t, "forecast", mon.tags[0]["module"])

	recs, err := svc.History(context.Background(), reportlog.Query{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestService_CancelNotCaptured(t *testing.T) {
	mon := &recordMonitor{}
	coremon.Init(mon)
	defer coremon.Init(coremon.NopMonitor{})

	svc, _ := newService(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Forecast(ctx, mustBatch(t, svc), Request{ServiceDate: serviceDate(t)})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, mon.errs)
}

func TestService_HistoryDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.ReportLog.Backend = "none"
	svc, err := New(cfg, WithMetrics(coremetrics.NopSink{}))
	require.NoError(t, err)
	defer svc.Close()
	_, err = svc.History(context.Background(), reportlog.Query{})
	require.ErrorIs(t, err, ErrNoHistory)
}

func TestService_IngestUnsupported(t *testing.T) {
	svc, _ := newService(t, 0)
	_, err := svc.Ingest(strings.NewReader(""), "flights.pdf")
	require.Error(t, err)
}

func mustBatch(t *testing.T, s *Service) model.Batch {
	t.Helper()
	b, err := s.Ingest(strings.NewReader(flightsCSV), "flights.csv")
	require.NoError(t, err)
	return b
}
