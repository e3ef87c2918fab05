package inventory

import (
	"github.com/shopspring/decimal"
)

// Limits bound the storage weight.
type Limits struct {
	Threshold decimal.Decimal
	MaxWeight decimal.Decimal
}

// Diff compares two snapshots and returns the events to notify, in order:
// threshold, amount changes, vanished items. notified is the current
// threshold flag; the updated flag is returned alongside the events.
//
// Only the amount of an item is compared. Items are visited by name so the
// output is deterministic.
func Diff(prev, curr Snapshot, limits Limits, notified bool) ([]Event, bool) {
	var events []Event

	if curr.TotalWeight.GreaterThan(limits.Threshold) && !notified {
		events = append(events, Event{
			Kind:        EventThresholdCrossed,
			TotalWeight: curr.TotalWeight,
			MaxWeight:   limits.MaxWeight,
			Remaining:   limits.MaxWeight.Sub(curr.TotalWeight),
		})
		notified = true
	}
	if curr.TotalWeight.LessThanOrEqual(limits.Threshold) {
		notified = false
	}

	for _, name := range curr.Names() {
		current := curr.Items[name].Amount
		previous := decimal.Zero
		if before, ok := prev.Items[name]; ok {
			previous = before.Amount
		}
		if current.Equal(previous) {
			continue
		}

		kind := EventItemAdded
		if current.LessThan(previous) {
			kind = EventItemRemoved
		}
		events = append(events, Event{
			Kind:        kind,
			Item:        name,
			Delta:       current.Sub(previous).Abs(),
			Previous:    previous,
			Current:     current,
			TotalWeight: curr.TotalWeight,
			MaxWeight:   limits.MaxWeight,
		})
	}

	for _, name := range prev.Names() {
		if _, ok := curr.Items[name]; ok {
			continue
		}
		events = append(events, Event{
			Kind:        EventItemVanished,
			Item:        name,
			TotalWeight: curr.TotalWeight,
			MaxWeight:   limits.MaxWeight,
		})
	}

	return events, notified
}
