package forecast

import (
	"fmt"
	"time"

	"github.com/kilianp07/shuttlecast/core/flights"
)

// TierUnknown marks a slot whose prediction is unavailable.
const TierUnknown = "UNKNOWN"

// Report is the outcome of one service-day run. It holds no wall-clock data
// so identical inputs and configuration produce identical reports.
type Report struct {
	ServiceDate        string                    `json:"service_date"`
	Timezone           string                    `json:"timezone"`
	Window             WindowInfo                `json:"window"`
	Features           []string                  `json:"features"`
	Slots              []SlotReport              `json:"slots"`
	Unassigned         []UnassignedFlight        `json:"unassigned"`
	ParseFailures      []flights.RowParseFailure `json:"parse_failures"`
	PredictionFailures []PredictionFailure       `json:"prediction_failures"`
	Summary            Summary                   `json:"summary"`
}

// WindowInfo echoes the slot window the report was computed for.
type WindowInfo struct {
	Start           string `json:"start"`
	End             string `json:"end"`
	IntervalMinutes int    `json:"interval_minutes"`
}

// SlotReport describes one departure.
type SlotReport struct {
	Index             int       `json:"index"`
	SlotTime          time.Time `json:"slot_time"`
	FlightCount       int       `json:"flight_count"`
	FlightIDs         []string  `json:"flight_ids"`
	ShortDelayFlights int       `json:"short_delay_flights"`
	LongDelayFlights  int       `json:"long_delay_flights"`
	Capacity          float64   `json:"capacity"`
	Predicted         *float64  `json:"predicted"`
	Tier              string    `json:"tier"`
	Alert             bool      `json:"alert"`
	PredictionError   string    `json:"prediction_error,omitempty"`
}

// UnassignedFlight is a valid flight ready after the last departure.
type UnassignedFlight struct {
	ID      string    `json:"id"`
	Origin  string    `json:"origin"`
	Arrival time.Time `json:"arrival"`
	ReadyAt time.Time `json:"ready_at"`
}

// PredictionFailure is a recovered slot-level failure: the predictor errored
// or returned a negative or non-finite count.
type PredictionFailure struct {
	SlotIndex int       `json:"slot_index"`
	SlotTime  time.Time `json:"slot_time"`
	Reason    string    `json:"reason"`
}

func (f PredictionFailure) Error() string {
	return fmt.Sprintf("slot %s: %s", f.SlotTime.Format("15:04"), f.Reason)
}

// AlertSlots returns the slots classified in an alert tier.
func (r *Report) AlertSlots() []SlotReport {
	var out []SlotReport
	for _, s := range r.Slots {
		if s.Alert {
			out = append(out, s)
		}
	}
	return out
}
