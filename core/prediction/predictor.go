package prediction

import (
	"context"
	"fmt"
)

// Predictor estimates how many passengers board one departure.
type Predictor interface {
	Predict(ctx context.Context, f Features) (float64, error)
}

// PredictorFunc adapts a function to the Predictor interface.
type PredictorFunc func(ctx context.Context, f Features) (float64, error)

// Predict calls fn.
func (fn PredictorFunc) Predict(ctx context.Context, f Features) (float64, error) {
	return fn(ctx, f)
}

// Features is an ordered, named feature vector.
type Features struct {
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`
}

// Get returns the value of the named feature.
func (f Features) Get(name string) (float64, bool) {
	for i, n := range f.Names {
		if n == name {
			return f.Values[i], true
		}
	}
	return 0, false
}

// Map returns the features keyed by name.
func (f Features) Map() map[string]float64 {
	m := make(map[string]float64, len(f.Names))
	for i, n := range f.Names {
		m[n] = f.Values[i]
	}
	return m
}

// Vector returns the values ordered by names. Missing names are an error.
func (f Features) Vector(names []string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, n := range names {
		v, ok := f.Get(n)
		if !ok {
			return nil, fmt.Errorf("feature %q not supplied", n)
		}
		out[i] = v
	}
	return out, nil
}
