package prediction

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LinearConfig describes a linear model exported from offline training.
type LinearConfig struct {
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`
	ClampAtZero  bool               `json:"clamp_at_zero"`
}

// LinearPredictor evaluates intercept + w·x over the configured features.
type LinearPredictor struct {
	names     []string
	weights   *mat.VecDense
	intercept float64
	clamp     bool
}

// NewLinearPredictor builds a predictor for the coefficients of cfg,
// evaluated in the order of names.
func NewLinearPredictor(cfg LinearConfig, names []string) (*LinearPredictor, error) {
	if len(cfg.Coefficients) == 0 {
		return nil, errors.New("linear predictor: no coefficients")
	}
	if len(names) == 0 {
		return nil, errors.New("linear predictor: no features")
	}
	w := make([]float64, len(names))
	for i, n := range names {
		c, ok := cfg.Coefficients[n]
		if !ok {
			return nil, fmt.Errorf("linear predictor: no coefficient for feature %q", n)
		}
		w[i] = c
	}
	for n := range cfg.Coefficients {
		if !contains(names, n) {
			return nil, fmt.Errorf("linear predictor: coefficient %q matches no feature", n)
		}
	}
	return &LinearPredictor{
		names:     append([]string(nil), names...),
		weights:   mat.NewVecDense(len(w), w),
		intercept: cfg.Intercept,
		clamp:     cfg.ClampAtZero,
	}, nil
}

// Predict implements Predictor.
func (p *LinearPredictor) Predict(ctx context.Context, f Features) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	x, err := f.Vector(p.names)
	if err != nil {
		return 0, err
	}
	y := p.intercept + mat.Dot(p.weights, mat.NewVecDense(len(x), x))
	if p.clamp && y < 0 {
		y = 0
	}
	return y, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
