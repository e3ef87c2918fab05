package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ErrHalt, when wrapped by a tick error, stops the scheduler for good.
var ErrHalt = errors.New("scheduler halted")

// TickFunc is invoked once per interval.
type TickFunc func(ctx context.Context, at time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval time.Duration
	// Immediate runs the first tick before waiting one interval.
	Immediate    bool
	StartupDelay time.Duration
}

// Scheduler drives a fixed-interval polling loop.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Interval returns the configured tick interval.
func (s *Scheduler) Interval() time.Duration {
	return s.opts.Interval
}

// Run blocks, invoking tick every interval until ctx is cancelled or a tick
// returns an error wrapping ErrHalt. Other tick errors are logged and the
// loop carries on. The interval is measured from the end of one tick to the
// start of the next.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		if err := sleep(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	first := true
	for {
		if !first || !s.opts.Immediate {
			s.logger.Debug().Dur("interval", s.opts.Interval).Msg("waiting for next tick")
			if err := sleep(ctx, s.opts.Interval); err != nil {
				return err
			}
		}
		first = false

		at := time.Now().UTC()
		if err := tick(ctx, at); err != nil {
			if errors.Is(err, ErrHalt) {
				s.logger.Error().Err(err).Time("tick", at).Msg("scheduler halted by tick")
				return err
			}
			s.logger.Error().Err(err).Time("tick", at).Msg("tick execution failed")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
