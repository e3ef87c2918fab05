package bot

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"storage-watch/internal/alerting"
	"storage-watch/internal/inventory"
	"storage-watch/internal/monitor"
)

// Controller is what the commands need from the monitor.
type Controller interface {
	Pause() monitor.State
	Resume() monitor.State
	Status() monitor.Status
	Inspect(ctx context.Context) (inventory.Snapshot, error)
	Limits() inventory.Limits
}

// Handlers implements the pause, resume and info commands.
type Handlers struct {
	ctrl    Controller
	appName string
	logger  zerolog.Logger
}

// NewHandlers binds the commands to a controller.
func NewHandlers(ctrl Controller, appName string, logger zerolog.Logger) *Handlers {
	return &Handlers{
		ctrl:    ctrl,
		appName: appName,
		logger:  logger.With().Str("component", "commands").Logger(),
	}
}

// Register adds the monitor commands to r.
func (h *Handlers) Register(r *Router) {
	r.Register(Command{Name: "pause", Description: "Pause storage monitoring", Handle: h.pause})
	r.Register(Command{Name: "resume", Description: "Resume storage monitoring", Handle: h.resume})
	r.Register(Command{Name: "info", Description: "Show current storage contents", Handle: h.info})
}

func (h *Handlers) pause(ctx context.Context, req *Request) error {
	if h.ctrl.Pause() == monitor.StateFailed {
		return req.Reply.Reply(ctx, h.stoppedText())
	}
	h.logger.Info().Str("author_id", req.AuthorID).Msg("bot paused")
	return req.Reply.Reply(ctx, fmt.Sprintf("%s monitoring paused.", h.appName))
}

func (h *Handlers) resume(ctx context.Context, req *Request) error {
	if h.ctrl.Resume() == monitor.StateFailed {
		return req.Reply.Reply(ctx, h.stoppedText())
	}
	h.logger.Info().Str("author_id", req.AuthorID).Msg("bot resumed")
	return req.Reply.Reply(ctx, fmt.Sprintf("%s monitoring resumed.", h.appName))
}

func (h *Handlers) info(ctx context.Context, req *Request) error {
	snap, err := h.ctrl.Inspect(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch info")
		if replyErr := req.Reply.Reply(ctx, "Failed to fetch storage information."); replyErr != nil {
			return replyErr
		}
		return err
	}

	h.logger.Info().
		Str("total_weight", snap.TotalWeight.String()).
		Int("items", snap.Len()).
		Msg("bot info")
	msg := alerting.RenderInventory(snap, h.ctrl.Limits().MaxWeight, h.ctrl.Status().Summary())
	return req.Reply.ReplyMessage(ctx, msg)
}

func (h *Handlers) stoppedText() string {
	return fmt.Sprintf("%s monitoring has stopped after an error and needs a restart.", h.appName)
}

var _ Controller = (*monitor.Monitor)(nil)
