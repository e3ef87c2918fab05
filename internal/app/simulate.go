package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"

	"storage-watch/internal/alerting"
	"storage-watch/internal/config"
	"storage-watch/internal/inventory"
)

// SimulateEvent delivers one synthetic notification through the configured
// sink without starting the monitor.
func (a *App) SimulateEvent(ctx context.Context, opts SimulateOptions) error {
	ev, err := a.syntheticEvent(opts, time.Now().UTC())
	if err != nil {
		return err
	}

	var sender alerting.ChannelSender
	if a.Config.Alerting.Sink != config.SinkTelegram {
		if err := a.Config.ValidateDiscord(); err != nil {
			return err
		}
		session, err := discordgo.New("Bot " + a.Config.Discord.Token)
		if err != nil {
			return fmt.Errorf("create discord session: %w", err)
		}
		sender = session
	}

	if err := a.newNotifier(sender).Notify(ctx, ev); err != nil {
		return err
	}
	a.Logger.Info().Str("kind", string(ev.Kind)).Str("item", ev.Item).Msg("simulated event delivered")
	return nil
}

func (a *App) syntheticEvent(opts SimulateOptions, at time.Time) (inventory.Event, error) {
	if !opts.Kind.Valid() {
		return inventory.Event{}, fmt.Errorf("unknown event kind %q", opts.Kind)
	}

	limits := a.limits()
	weight := decimal.NewFromInt(opts.Weight)
	ev := inventory.Event{
		Kind:        opts.Kind,
		TotalWeight: weight,
		MaxWeight:   limits.MaxWeight,
		Remaining:   limits.MaxWeight.Sub(weight),
		At:          at,
	}

	switch opts.Kind {
	case inventory.EventMonitoringStarted:
		ev.Info = alerting.StartedInfo(a.Config.Monitor.DevelopmentMode, a.Config.PollInterval())
	case inventory.EventThresholdCrossed:
	default:
		if opts.Item == "" {
			return inventory.Event{}, errors.New("--item is required for item events")
		}
		ev.Item = opts.Item
		ev.Previous = decimal.NewFromInt(opts.From)
		ev.Current = decimal.NewFromInt(opts.To)
		ev.Delta = ev.Current.Sub(ev.Previous).Abs()
		if opts.Kind == inventory.EventItemVanished {
			ev.Current = decimal.Zero
			ev.Delta = ev.Previous
		}
	}
	return ev, nil
}
