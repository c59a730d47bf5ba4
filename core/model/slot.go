package model

import "time"

// DepartureSlot is one scheduled shuttle departure within a service day.
// Predicted stays nil until a prediction is available for the slot.
type DepartureSlot struct {
	Index     int
	Time      time.Time
	Flights   []ReadinessRecord
	Capacity  float64
	Predicted *float64
	Tier      string
}

// FlightIDs returns the identifiers of the flights boarding this slot.
func (s DepartureSlot) FlightIDs() []string {
	ids := make([]string, len(s.Flights))
	for i, f := range s.Flights {
		ids[i] = f.ID
	}
	return ids
}

// SlotTimes extracts the departure instants of slots in order.
func SlotTimes(slots []DepartureSlot) []time.Time {
	ts := make([]time.Time, len(slots))
	for i, s := range slots {
		ts[i] = s.Time
	}
	return ts
}
