package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"storage-watch/internal/alerting"
	"storage-watch/internal/bot"
	"storage-watch/internal/config"
	"storage-watch/internal/fetcher"
	"storage-watch/internal/inventory"
	"storage-watch/internal/monitor"
	"storage-watch/internal/scheduler"
	"storage-watch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() *fetcher.Inventory {
	return fetcher.NewInventory(fetcher.InventoryOptions{
		Endpoint:    a.Config.Endpoint(),
		BearerToken: a.Config.API.BearerToken,
		Timeout:     a.Config.API.RequestTimeout,
		UserAgent:   a.Config.API.UserAgent,
	}, a.Logger)
}

func (a *App) limits() inventory.Limits {
	return inventory.Limits{
		Threshold: decimal.NewFromInt(a.Config.Monitor.ThresholdWeight),
		MaxWeight: decimal.NewFromInt(a.Config.Monitor.MaxWeight),
	}
}

func (a *App) renderer() alerting.Renderer {
	return alerting.Renderer{MentionRoleID: a.Config.Discord.MentionRoleID}
}

// newNotifier builds the configured sink. sender is only used by the
// Discord sink.
func (a *App) newNotifier(sender alerting.ChannelSender) alerting.Notifier {
	if a.Config.Alerting.Sink == config.SinkTelegram {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.renderer(), a.Logger)
	}
	return alerting.NewDiscordNotifier(sender, alerting.DiscordOptions{
		ChannelID: a.Config.DestinationChannel(),
		Embeds:    a.Config.Monitor.MessageFormat == config.FormatEmbed,
		Renderer:  a.renderer(),
	}, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run connects the bot and runs the monitor until SIGINT/SIGTERM. When the
// monitor fails, the bot stays up so commands keep answering.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Config.ValidateRun(); err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}
	var journal monitor.Journal
	if store == nil {
		a.Logger.Info().Msg("database.dsn not configured; event journal disabled")
	} else {
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		journal = store
	}

	policy, err := fetcher.ParsePolicy(a.Config.Monitor.FetchFailurePolicy)
	if err != nil {
		return err
	}
	direct := a.newFetcher()
	guarded := fetcher.NewGuarded(direct, policy, a.Logger)

	sched := scheduler.New(scheduler.Options{
		Interval:  a.Config.PollInterval(),
		Immediate: true,
	}, a.Logger)

	router := bot.NewRouter(a.Config.Discord.CommandPrefix, a.Logger)
	discord, err := bot.New(a.Config.Discord.Token, router, a.Logger)
	if err != nil {
		return err
	}

	mon := monitor.New(monitor.Options{
		Limits:          a.limits(),
		Interval:        a.Config.PollInterval(),
		DevelopmentMode: a.Config.Monitor.DevelopmentMode,
	}, sched, guarded, direct, a.newNotifier(discord.Session()), journal, a.Logger)
	bot.NewHandlers(mon, a.Config.App.Name, a.Logger).Register(router)

	if err := discord.Open(); err != nil {
		return err
	}
	defer func() {
		if err := discord.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close discord session")
		}
	}()

	readyCtx, readyCancel := context.WithTimeout(ctx, time.Minute)
	err = discord.WaitReady(readyCtx)
	readyCancel()
	if err != nil {
		return err
	}

	a.Logger.Info().
		Str("endpoint", a.Config.Endpoint()).
		Dur("interval", a.Config.PollInterval()).
		Str("sink", a.Config.Alerting.Sink).
		Msg("starting monitoring service")

	mon.Start(ctx)
	err = mon.Run(ctx)
	switch {
	case errors.Is(err, scheduler.ErrHalt):
		a.Logger.Error().Err(err).Msg("monitoring stopped; commands stay available until shutdown")
		<-ctx.Done()
	case err != nil && !errors.Is(err, context.Canceled):
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// ExportOptions hold parameters for exporting the weight history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// EventsOptions configure the events command.
type EventsOptions struct {
	Limit      int
	PruneAfter time.Duration
}

// SimulateOptions describe one synthetic event.
type SimulateOptions struct {
	Kind   inventory.EventKind
	Item   string
	From   int64
	To     int64
	Weight int64
}
