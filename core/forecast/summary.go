package forecast

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates a report for dashboards and the console view.
type Summary struct {
	Slots              int            `json:"slots"`
	Flights            int            `json:"flights"`
	Assigned           int            `json:"assigned"`
	Unassigned         int            `json:"unassigned"`
	ParseFailures      int            `json:"parse_failures"`
	PredictionFailures int            `json:"prediction_failures"`
	TotalCapacity      float64        `json:"total_capacity"`
	PeakCapacity       float64        `json:"peak_capacity"`
	PeakSlot           string         `json:"peak_slot,omitempty"`
	MeanPredicted      float64        `json:"mean_predicted"`
	StdDevPredicted    float64        `json:"stddev_predicted"`
	MaxPredicted       float64        `json:"max_predicted"`
	AlertSlots         int            `json:"alert_slots"`
	Tiers              map[string]int `json:"tiers"`
}

func summarize(r *Report) Summary {
	s := Summary{
		Slots:              len(r.Slots),
		Unassigned:         len(r.Unassigned),
		ParseFailures:      len(r.ParseFailures),
		PredictionFailures: len(r.PredictionFailures),
		Tiers:              make(map[string]int),
	}
	capacities := make([]float64, len(r.Slots))
	var predicted []float64
	for i, sl := range r.Slots {
		s.Assigned += sl.FlightCount
		capacities[i] = sl.Capacity
		if sl.Predicted != nil {
			predicted = append(predicted, *sl.Predicted)
		}
		if sl.Alert {
			s.AlertSlots++
		}
		s.Tiers[sl.Tier]++
	}
	s.Flights = s.Assigned + s.Unassigned
	if len(capacities) > 0 {
		s.TotalCapacity = floats.Sum(capacities)
		peak := floats.MaxIdx(capacities)
		s.PeakCapacity = capacities[peak]
		if s.PeakCapacity > 0 {
			s.PeakSlot = r.Slots[peak].SlotTime.Format("15:04")
		}
	}
	if len(predicted) > 0 {
		s.MeanPredicted, s.StdDevPredicted = stat.PopMeanStdDev(predicted, nil)
		s.MaxPredicted = floats.Max(predicted)
	}
	return s
}
