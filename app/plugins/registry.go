package plugins

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kilianp07/shuttlecast/config"
	"github.com/kilianp07/shuttlecast/core/alert"
	"github.com/kilianp07/shuttlecast/core/factory"
	"github.com/kilianp07/shuttlecast/core/prediction"
	"github.com/kilianp07/shuttlecast/core/reportlog"
)

// PredictorFactory builds a predictor from raw config for the given feature
// names.
type PredictorFactory func(conf map[string]any, features []string) (prediction.Predictor, error)

// ReportStoreFactory builds a report history store.
type ReportStoreFactory func(cfg config.ReportLogConfig) (reportlog.Store, error)

// AlertPublisherFactory builds an alert publisher.
type AlertPublisherFactory func(cfg *config.Config) (alert.Publisher, error)

var (
	Predictors      = map[string]PredictorFactory{}
	ReportStores    = map[string]ReportStoreFactory{}
	AlertPublishers = map[string]AlertPublisherFactory{}
)

func RegisterPredictor(name string, f PredictorFactory)           { Predictors[name] = f }
func RegisterReportStore(name string, f ReportStoreFactory)       { ReportStores[name] = f }
func RegisterAlertPublisher(name string, f AlertPublisherFactory) { AlertPublishers[name] = f }

// NewPredictor creates the predictor named by mc.
func NewPredictor(mc factory.ModuleConfig, features []string) (prediction.Predictor, error) {
	f, ok := Predictors[mc.Type]
	if !ok {
		return nil, fmt.Errorf("unknown predictor %q (known: %s)", mc.Type, known(Predictors))
	}
	return f(mc.Conf, features)
}

// NewReportStore creates the store selected by cfg. The "none" backend
// yields nil.
func NewReportStore(cfg config.ReportLogConfig) (reportlog.Store, error) {
	if cfg.Backend == "none" {
		return nil, nil
	}
	f, ok := ReportStores[cfg.StoreType()]
	if !ok {
		return nil, fmt.Errorf("unknown report store %q (known: %s)", cfg.StoreType(), known(ReportStores))
	}
	return f(cfg)
}

// NewAlertPublisher creates the named alert publisher.
func NewAlertPublisher(name string, cfg *config.Config) (alert.Publisher, error) {
	f, ok := AlertPublishers[name]
	if !ok {
		return nil, fmt.Errorf("unknown alert publisher %q (known: %s)", name, known(AlertPublishers))
	}
	return f(cfg)
}

func known[F any](m map[string]F) string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
