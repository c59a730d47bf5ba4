package plugins

import (
	"github.com/kilianp07/shuttlecast/config"
	"github.com/kilianp07/shuttlecast/core/alert"
	"github.com/kilianp07/shuttlecast/core/factory"
	"github.com/kilianp07/shuttlecast/core/prediction"
	"github.com/kilianp07/shuttlecast/core/reportlog"
	"github.com/kilianp07/shuttlecast/infra/mqtt"
	"github.com/kilianp07/shuttlecast/infra/predictor"
)

func init() {
	RegisterPredictor("mock", func(conf map[string]any, _ []string) (prediction.Predictor, error) {
		var mc prediction.MockConfig
		if err := factory.Decode(conf, &mc); err != nil {
			return nil, err
		}
		return prediction.NewMockPredictor(mc), nil
	})
	RegisterPredictor("linear", func(conf map[string]any, features []string) (prediction.Predictor, error) {
		var lc prediction.LinearConfig
		if err := factory.Decode(conf, &lc); err != nil {
			return nil, err
		}
		return prediction.NewLinearPredictor(lc, features)
	})
	RegisterPredictor("http", func(conf map[string]any, _ []string) (prediction.Predictor, error) {
		var hc predictor.HTTPConfig
		if err := factory.Decode(conf, &hc); err != nil {
			return nil, err
		}
		return predictor.NewHTTPPredictor(hc)
	})

	RegisterReportStore("jsonl", func(c config.ReportLogConfig) (reportlog.Store, error) {
		return reportlog.NewJSONLStore(c.Path)
	})
	RegisterReportStore("rotating", func(c config.ReportLogConfig) (reportlog.Store, error) {
		return reportlog.NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	})
	RegisterReportStore("sqlite", func(c config.ReportLogConfig) (reportlog.Store, error) {
		return reportlog.NewSQLiteStore(c.Path)
	})

	RegisterAlertPublisher("nop", func(*config.Config) (alert.Publisher, error) {
		return alert.NopPublisher{}, nil
	})
	RegisterAlertPublisher("memory", func(*config.Config) (alert.Publisher, error) {
		return mqtt.NewMockPublisher(), nil
	})
	RegisterAlertPublisher("mqtt", func(c *config.Config) (alert.Publisher, error) {
		return mqtt.NewAlertPublisher(c.MQTT)
	})
}
