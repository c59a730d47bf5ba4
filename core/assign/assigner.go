// Package assign partitions the flights of a service day across its
// departure slots and aggregates the boarding capacity of each slot.
//
// A flight boards the earliest slot whose time is at or after its readiness
// instant. Every flight is consumed at most once; flights ready after the
// last slot are returned as unassigned.
package assign

import (
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/shuttlecast/core/model"
)

// Partition is the outcome of Assign. Slots[i] holds the flights boarding
// the i-th slot, ordered by readiness then id.
type Partition struct {
	SlotTimes  []time.Time
	Slots      [][]model.ReadinessRecord
	Unassigned []model.ReadinessRecord

	ready []model.ReadinessRecord
}

// Assign partitions flights across slots in a single merge pass. slots must
// be strictly increasing. Neither input slice is modified.
func Assign(slots []time.Time, flights []model.ReadinessRecord) (Partition, error) {
	for i := 1; i < len(slots); i++ {
		if !slots[i].After(slots[i-1]) {
			return Partition{}, fmt.Errorf("slot %d (%s) is not after slot %d (%s)",
				i, slots[i].Format(time.RFC3339), i-1, slots[i-1].Format(time.RFC3339))
		}
	}

	sorted := make([]model.ReadinessRecord, len(flights))
	copy(sorted, flights)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ReadyAt.Equal(sorted[j].ReadyAt) {
			return sorted[i].ReadyAt.Before(sorted[j].ReadyAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	p := Partition{
		SlotTimes: append([]time.Time(nil), slots...),
		Slots:     make([][]model.ReadinessRecord, len(slots)),
		ready:     sorted,
	}
	cursor := 0
	for i, slot := range slots {
		start := cursor
		for cursor < len(sorted) && !sorted[cursor].ReadyAt.After(slot) {
			cursor++
		}
		p.Slots[i] = sorted[start:cursor:cursor]
	}
	if cursor < len(sorted) {
		p.Unassigned = sorted[cursor:]
	}
	return p, nil
}

// ReadyBetween counts the flights whose readiness lies in the closed
// interval [from, to], whichever slot they board.
func (p Partition) ReadyBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	lo := sort.Search(len(p.ready), func(i int) bool { return !p.ready[i].ReadyAt.Before(from) })
	hi := sort.Search(len(p.ready), func(i int) bool { return p.ready[i].ReadyAt.After(to) })
	return hi - lo
}

// SlotOf returns the index of the slot holding flight id, or -1 when the
// flight is unassigned or unknown.
func (p Partition) SlotOf(id string) int {
	for i, fs := range p.Slots {
		for _, f := range fs {
			if f.ID == id {
				return i
			}
		}
	}
	return -1
}
