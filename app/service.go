// Package app wires configuration, adapters and the forecast engine into a
// service used by the CLI and the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/shuttlecast/app/plugins"
	"github.com/kilianp07/shuttlecast/config"
	"github.com/kilianp07/shuttlecast/core/alert"
	"github.com/kilianp07/shuttlecast/core/flights"
	"github.com/kilianp07/shuttlecast/core/forecast"
	coremetrics "github.com/kilianp07/shuttlecast/core/metrics"
	coremon "github.com/kilianp07/shuttlecast/core/monitoring"
	"github.com/kilianp07/shuttlecast/core/model"
	"github.com/kilianp07/shuttlecast/core/prediction"
	"github.com/kilianp07/shuttlecast/core/reportlog"
	"github.com/kilianp07/shuttlecast/core/scheduler"
	"github.com/kilianp07/shuttlecast/core/walking"
	"github.com/kilianp07/shuttlecast/infra/ingest"
	"github.com/kilianp07/shuttlecast/infra/logger"
	_ "github.com/kilianp07/shuttlecast/infra/metrics" // registers metrics sinks
)

// ErrNoHistory is returned by History when the report log is disabled.
var ErrNoHistory = errors.New("report history is disabled")

// Service runs forecasts with the configured adapters.
type Service struct {
	cfg     *config.Config
	engine  *forecast.Engine
	window  scheduler.Window
	store   reportlog.Store
	alerts  alert.Publisher
	metrics coremetrics.MetricsSink
	log     logger.Logger
	now     func() time.Time
}

// Option overrides an adapter built from configuration.
type Option func(*options)

type options struct {
	predictor prediction.Predictor
	store     reportlog.Store
	alerts    alert.Publisher
	metrics   coremetrics.MetricsSink
	log       logger.Logger
	now       func() time.Time
}

func WithPredictor(p prediction.Predictor) Option  { return func(o *options) { o.predictor = p } }
func WithReportStore(s reportlog.Store) Option     { return func(o *options) { o.store = s } }
func WithAlertPublisher(p alert.Publisher) Option  { return func(o *options) { o.alerts = p } }
func WithMetrics(m coremetrics.MetricsSink) Option { return func(o *options) { o.metrics = m } }
func WithLogger(l logger.Logger) Option            { return func(o *options) { o.log = l } }
func WithClock(now func() time.Time) Option        { return func(o *options) { o.now = now } }

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.New("service")
	}
	if o.now == nil {
		o.now = time.Now
	}

	window, err := cfg.Service.Window.Window()
	if err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}
	norm, err := flights.NewNormalizer(cfg.Input, logger.New("flights"))
	if err != nil {
		return nil, fmt.Errorf("input schema: %w", err)
	}
	cls, err := walking.NewClassifier(cfg.Regions)
	if err != nil {
		return nil, fmt.Errorf("regions: %w", err)
	}
	defs, err := cfg.Features.Definitions()
	if err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}
	fs, err := prediction.NewFeatureSet(defs)
	if err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}
	table, err := cfg.Thresholds.Table()
	if err != nil {
		return nil, fmt.Errorf("thresholds: %w", err)
	}

	if o.predictor == nil {
		if o.predictor, err = plugins.NewPredictor(cfg.Predictor, fs.Names()); err != nil {
			return nil, fmt.Errorf("predictor: %w", err)
		}
	}
	if o.metrics == nil {
		if o.metrics, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
	}
	if o.store == nil {
		if o.store, err = plugins.NewReportStore(cfg.ReportLog); err != nil {
			return nil, fmt.Errorf("report log: %w", err)
		}
	}
	if o.alerts == nil {
		name := "nop"
		if cfg.Alerts.Enabled {
			name = "mqtt"
		}
		if o.alerts, err = plugins.NewAlertPublisher(name, cfg); err != nil {
			if o.store != nil {
				_ = o.store.Close()
			}
			return nil, fmt.Errorf("alerts: %w", err)
		}
	}

	engine, err := forecast.NewEngine(forecast.Config{
		Normalizer: norm,
		Classifier: cls,
		Features:   fs,
		Predictor:  o.predictor,
		Thresholds: table,

		ConnectedLookback: cfg.Features.ConnectedLookback(),
		Logger:            logger.New("forecast"),
		Metrics:           o.metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:     cfg,
		engine:  engine,
		window:  window,
		store:   o.store,
		alerts:  o.alerts,
		metrics: o.metrics,
		log:     o.log,
		now:     o.now,
	}, nil
}

// Request describes one forecast invocation.
type Request struct {
	ServiceDate time.Time
	// Window overrides the configured window when set.
	Window *scheduler.Window
	// Source names the input, e.g. the uploaded file name.
	Source string
}

// Result is a completed run.
type Result struct {
	RunID       string           `json:"run_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Source      string           `json:"source,omitempty"`
	Report      *forecast.Report `json:"report"`
	// AlertsPublished counts alerts delivered to the publisher.
	AlertsPublished int      `json:"alerts_published"`
	AlertErrors     []string `json:"alert_errors,omitempty"`
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// Ingest decodes an input file using its name to pick the format.
func (s *Service) Ingest(r io.Reader, name string) (model.Batch, error) {
	format, err := ingest.DetectFormat(name)
	if err != nil {
		return model.Batch{}, err
	}
	return ingest.Read(r, format, s.cfg.Ingest)
}

// Forecast runs the engine, publishes alerts and records the run. Alert and
// history failures are logged and do not fail the run.
func (s *Service) Forecast(ctx context.Context, batch model.Batch, req Request) (*Result, error) {
	runID := uuid.NewString()
	window := s.window
	if req.Window != nil {
		window = *req.Window
	}
	day := req.ServiceDate.Format("2006-01-02")

	rep, err := s.engine.Run(ctx, batch, forecast.Params{ServiceDate: req.ServiceDate, Window: window, RunID: runID})
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			coremon.CaptureException(err, map[string]string{"module": "forecast", "service_date": day, "run_id": runID})
		}
		return nil, err
	}

	res := &Result{RunID: runID, GeneratedAt: s.now().UTC(), Source: req.Source, Report: rep}
	for _, a := range alert.FromReport(runID, rep) {
		if perr := s.alerts.PublishAlert(ctx, a); perr != nil {
			s.log.Errorf("publish alert for %s: %v", a.SlotTime.Format("15:04"), perr)
			res.AlertErrors = append(res.AlertErrors, perr.Error())
			continue
		}
		res.AlertsPublished++
	}

	if s.store != nil {
		rec := reportlog.Record{RunID: runID, GeneratedAt: res.GeneratedAt, ServiceDate: day, Source: req.Source, Report: rep}
		if serr := s.store.Append(ctx, rec); serr != nil {
			s.log.Errorf("record run %s: %v", runID, serr)
			coremon.CaptureException(serr, map[string]string{"module": "reportlog", "run_id": runID})
		}
	}
	s.log.Infow("forecast completed", map[string]any{
		"run_id":       runID,
		"service_date": day,
		"source":       req.Source,
		"alert_slots":  rep.Summary.AlertSlots,
		"alerts_sent":  res.AlertsPublished,
	})
	return res, nil
}

// History queries recorded runs.
func (s *Service) History(ctx context.Context, q reportlog.Query) ([]reportlog.Record, error) {
	if s.store == nil {
		return nil, ErrNoHistory
	}
	return s.store.Query(ctx, q)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if s.alerts != nil {
		errs = append(errs, s.alerts.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if c, ok := s.metrics.(interface{ Close() }); ok {
		c.Close()
	}
	return errors.Join(errs...)
}
