// Package alert defines saturation alerts raised for departures classified
// in an alert tier and the port used to publish them.
package alert

import (
	"context"
	"time"

	"github.com/kilianp07/shuttlecast/core/forecast"
)

// Alert announces one departure at risk of exceeding bus capacity.
type Alert struct {
	AlertID     string    `json:"alert_id"`
	RunID       string    `json:"run_id"`
	ServiceDate string    `json:"service_date"`
	SlotTime    time.Time `json:"slot_time"`
	Tier        string    `json:"tier"`
	Predicted   float64   `json:"predicted"`
	Capacity    float64   `json:"capacity"`
	Flights     int       `json:"flights"`
	FlightIDs   []string  `json:"flight_ids"`
}

// Publisher delivers alerts to an external channel.
type Publisher interface {
	PublishAlert(ctx context.Context, a Alert) error
	Close() error
}

// FromReport returns one alert per alert-tier slot, in slot order.
func FromReport(runID string, rep *forecast.Report) []Alert {
	if rep == nil {
		return nil
	}
	var out []Alert
	for _, s := range rep.Slots {
		if !s.Alert || s.Predicted == nil {
			continue
		}
		out = append(out, Alert{
			RunID:       runID,
			ServiceDate: rep.ServiceDate,
			SlotTime:    s.SlotTime,
			Tier:        s.Tier,
			Predicted:   *s.Predicted,
			Capacity:    s.Capacity,
			Flights:     s.FlightCount,
			FlightIDs:   append([]string(nil), s.FlightIDs...),
		})
	}
	return out
}

// NopPublisher drops every alert.
type NopPublisher struct{}

func (NopPublisher) PublishAlert(context.Context, Alert) error { return nil }
func (NopPublisher) Close() error                              { return nil }
