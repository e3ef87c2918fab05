package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// State is the poll loop's position in its state machine.
type State string

const (
	StateRunning State = "running"
	StatePaused  State = "paused"
	// StateFailed is terminal: the loop stopped after an unexpected error
	// and only a restart brings it back.
	StateFailed State = "failed"
)

// Status is a read-only copy of the monitor state.
type Status struct {
	State             State
	ThresholdNotified bool
	BaselineWeight    decimal.Decimal
	MaxWeight         decimal.Decimal
	BaselineItems     int
	LastPoll          time.Time
	Cycles            uint64
	Interval          time.Duration
	Err               error
}

// Summary renders the status as a short human-readable block.
func (s Status) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "State: %s", strings.ToUpper(string(s.State)))
	if s.State == StateFailed && s.Err != nil {
		fmt.Fprintf(&b, " (%s)", s.Err.Error())
	}
	fmt.Fprintf(&b, "\nBaseline: %s/%s KG, %d items", s.BaselineWeight.String(), s.MaxWeight.String(), s.BaselineItems)
	if s.LastPoll.IsZero() {
		b.WriteString("\nLast poll: never")
	} else {
		fmt.Fprintf(&b, "\nLast poll: %s UTC", s.LastPoll.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "\nCycles: %d, interval %s", s.Cycles, s.Interval)
	if s.ThresholdNotified {
		b.WriteString("\nStorage alert active")
	}
	return b.String()
}
