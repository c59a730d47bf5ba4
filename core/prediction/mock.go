package prediction

import (
	"context"
	"errors"
	"sync"
)

// ErrNoCapacityFeature is returned by a ratio MockPredictor whose feature
// contract does not carry "capacity".
var ErrNoCapacityFeature = errors.New("mock predictor: ratio mode needs a \"capacity\" feature")

// MockConfig configures a MockPredictor.
type MockConfig struct {
	Fixed *float64 `json:"fixed,omitempty"`
	Ratio float64  `json:"ratio"`
}

// MockPredictor returns deterministic counts. When Fixed is set it is
// returned for every slot; otherwise the prediction is Ratio times the
// "capacity" feature (Ratio defaults to 1).
type MockPredictor struct {
	Fixed *float64
	Ratio float64
	Err   error

	mu    sync.Mutex
	calls []Features
}

// NewMockPredictor returns a predictor configured by cfg.
func NewMockPredictor(cfg MockConfig) *MockPredictor {
	return &MockPredictor{Fixed: cfg.Fixed, Ratio: cfg.Ratio}
}

// Predict implements Predictor.
func (m *MockPredictor) Predict(ctx context.Context, f Features) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	m.calls = append(m.calls, f)
	m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	if m.Fixed != nil {
		return *m.Fixed, nil
	}
	ratio := m.Ratio
	if ratio == 0 {
		ratio = 1
	}
	c, ok := f.Get("capacity")
	if !ok {
		return 0, ErrNoCapacityFeature
	}
	return c * ratio, nil
}

// Calls returns the feature vectors received so far.
func (m *MockPredictor) Calls() []Features {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Features, len(m.calls))
	copy(out, m.calls)
	return out
}
