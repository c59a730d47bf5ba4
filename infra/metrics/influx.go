package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/shuttlecast/core/metrics"
	"github.com/kilianp07/shuttlecast/infra/logger"
)

// InfluxConfig locates an InfluxDB v2 bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes forecast events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordSlotForecasts writes one slot_forecast point per slot, stamped with
// the slot time.
func (s *InfluxSink) RecordSlotForecasts(slots []coremetrics.SlotForecast) error {
	if len(slots) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(slots))
	for _, sl := range slots {
		p := write.NewPointWithMeasurement("slot_forecast").
			AddTag("service_date", sl.ServiceDate).
			AddTag("tier", sl.Tier).
			AddTag("alert", strconv.FormatBool(sl.Alert)).
			AddField("slot_index", sl.SlotIndex).
			AddField("flights", sl.Flights).
			AddField("capacity", round3(sl.Capacity))
		if sl.Available {
			p = p.AddField("predicted", round3(sl.Predicted))
		}
		points = append(points, p.SetTime(sl.SlotTime))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordRun writes a forecast_run point.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("forecast_run").
		AddTag("service_date", ev.ServiceDate).
		AddTag("status", ev.Status).
		AddTag("run_id", ev.RunID).
		AddField("slots", ev.Slots).
		AddField("flights", ev.Flights).
		AddField("unassigned", ev.Unassigned).
		AddField("parse_failures", ev.ParseFailures).
		AddField("prediction_failures", ev.PredictionFailures).
		AddField("alerts", ev.Alerts).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
