package assign

import "github.com/kilianp07/shuttlecast/core/model"

// Aggregate summarizes the flights boarding one slot.
type Aggregate struct {
	Flights    int
	Capacity   float64
	ShortDelay int
	LongDelay  int
}

// AggregateFlights sums the average seats of flights. The result depends on
// the given flights only and is zero for an empty set.
func AggregateFlights(flights []model.ReadinessRecord) Aggregate {
	var a Aggregate
	for _, f := range flights {
		a.Flights++
		a.Capacity += f.AvgSeats
		if f.Bucket == model.BucketShort {
			a.ShortDelay++
		} else {
			a.LongDelay++
		}
	}
	return a
}

// Add returns the element-wise sum of a and b.
func (a Aggregate) Add(b Aggregate) Aggregate {
	return Aggregate{
		Flights:    a.Flights + b.Flights,
		Capacity:   a.Capacity + b.Capacity,
		ShortDelay: a.ShortDelay + b.ShortDelay,
		LongDelay:  a.LongDelay + b.LongDelay,
	}
}
