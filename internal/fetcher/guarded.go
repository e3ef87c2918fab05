package fetcher

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"storage-watch/internal/inventory"
)

// Policy decides what a failed fetch turns into.
type Policy string

const (
	// PolicyEmpty replaces a failed fetch with the empty snapshot. The next
	// diff then reports every item as removed, and the one after as re-added.
	PolicyEmpty Policy = "empty"
	// PolicySkip drops the cycle and keeps the previous baseline.
	PolicySkip Policy = "skip"
)

// ParsePolicy validates a policy name.
func ParsePolicy(name string) (Policy, error) {
	switch Policy(name) {
	case PolicyEmpty, PolicySkip:
		return Policy(name), nil
	case "":
		return PolicyEmpty, nil
	}
	return "", fmt.Errorf("unknown fetch failure policy %q", name)
}

// Guarded applies a failure policy on top of a SnapshotFetcher. It never
// returns an error; failures are logged here and nowhere else.
type Guarded struct {
	inner  SnapshotFetcher
	policy Policy
	logger zerolog.Logger
}

// NewGuarded wraps inner with policy.
func NewGuarded(inner SnapshotFetcher, policy Policy, logger zerolog.Logger) *Guarded {
	if policy == "" {
		policy = PolicyEmpty
	}
	return &Guarded{
		inner:  inner,
		policy: policy,
		logger: logger.With().Str("component", "fetch_policy").Str("policy", string(policy)).Logger(),
	}
}

// Policy returns the active policy.
func (g *Guarded) Policy() Policy {
	return g.policy
}

// Fetch returns the snapshot to diff against and whether the caller should
// use it at all.
func (g *Guarded) Fetch(ctx context.Context) (inventory.Snapshot, bool) {
	snap, err := g.inner.FetchSnapshot(ctx)
	if err == nil {
		return snap, true
	}

	g.logger.Error().Err(err).Msg("failed to fetch data from inventory api")
	if g.policy == PolicySkip {
		return inventory.Snapshot{}, false
	}
	return inventory.Empty(), true
}
