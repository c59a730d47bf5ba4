package mqtt

import (
	"context"
	"fmt"
	"sync"

	"github.com/kilianp07/shuttlecast/core/alert"
)

// MockPublisher records alerts in memory. It is used in tests and as the
// "memory" alert publisher.
type MockPublisher struct {
	Alerts []alert.Alert
	// FailSlots makes publishing fail for the listed slot times ("15:04").
	FailSlots map[string]bool
	mu        sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{FailSlots: make(map[string]bool)}
}

// PublishAlert records a or returns an error if configured to fail.
func (m *MockPublisher) PublishAlert(ctx context.Context, a alert.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSlots[a.SlotTime.Format("15:04")] {
		return fmt.Errorf("publish failed")
	}
	m.Alerts = append(m.Alerts, a)
	return nil
}

// Published returns a copy of the recorded alerts.
func (m *MockPublisher) Published() []alert.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]alert.Alert(nil), m.Alerts...)
}

// Close is a no-op.
func (m *MockPublisher) Close() error { return nil }
