package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind names a notification-worthy change.
type EventKind string

const (
	EventMonitoringStarted EventKind = "monitoring_started"
	EventThresholdCrossed  EventKind = "threshold_crossed"
	EventItemAdded         EventKind = "item_added"
	EventItemRemoved       EventKind = "item_removed"
	EventItemVanished      EventKind = "item_vanished"
)

// Valid reports whether k is a known kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventMonitoringStarted, EventThresholdCrossed, EventItemAdded, EventItemRemoved, EventItemVanished:
		return true
	}
	return false
}

// Event is one change detected between two snapshots.
type Event struct {
	Kind        EventKind
	Item        string
	Delta       decimal.Decimal
	Previous    decimal.Decimal
	Current     decimal.Decimal
	TotalWeight decimal.Decimal
	MaxWeight   decimal.Decimal
	// Remaining is MaxWeight minus TotalWeight, set on threshold events.
	Remaining decimal.Decimal
	// Info carries free-form context for monitoring_started.
	Info string
	At   time.Time
}
