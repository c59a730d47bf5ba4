package app

import (
	"github.com/kilianp07/shuttlecast/core/scheduler"
)

// WindowOverride merges per-request window fields over base. It returns nil
// when no field is set so the configured window applies.
func WindowOverride(base scheduler.WindowConfig, start, end string, intervalMinutes int) (*scheduler.Window, error) {
	if start == "" && end == "" && intervalMinutes == 0 {
		return nil, nil
	}
	wc := base
	if start != "" {
		wc.Start = start
	}
	if end != "" {
		wc.End = end
	}
	if intervalMinutes != 0 {
		wc.IntervalMinutes = intervalMinutes
	}
	w, err := wc.Window()
	if err != nil {
		return nil, err
	}
	return &w, nil
}
