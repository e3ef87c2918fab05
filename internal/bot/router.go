package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"storage-watch/internal/alerting"
)

const defaultCommandTimeout = 30 * time.Second

// Replier answers in the channel a command came from.
type Replier interface {
	Reply(ctx context.Context, text string) error
	ReplyMessage(ctx context.Context, msg alerting.Message) error
}

// Request is one parsed command invocation.
type Request struct {
	Command   string
	Args      []string
	AuthorID  string
	ChannelID string
	Reply     Replier
}

// HandlerFunc runs a command.
type HandlerFunc func(ctx context.Context, req *Request) error

// Command is a registered chat command.
type Command struct {
	Name        string
	Description string
	// Timeout overrides the default per-command deadline.
	Timeout time.Duration
	Handle  HandlerFunc
}

// Router maps prefixed chat messages onto commands.
type Router struct {
	prefix   string
	commands map[string]Command
	logger   zerolog.Logger
}

// NewRouter constructs a router for prefix, with help pre-registered.
func NewRouter(prefix string, logger zerolog.Logger) *Router {
	if prefix == "" {
		prefix = "!"
	}
	r := &Router{
		prefix:   prefix,
		commands: map[string]Command{},
		logger:   logger.With().Str("component", "command_router").Logger(),
	}
	r.Register(Command{
		Name:        "help",
		Description: "List available commands",
		Handle:      r.help,
	})
	return r
}

// Prefix returns the command prefix.
func (r *Router) Prefix() string {
	return r.prefix
}

// Register adds or replaces a command. Names are case-insensitive.
func (r *Router) Register(cmd Command) {
	r.commands[strings.ToLower(cmd.Name)] = cmd
}

// Parse splits a message into command name and arguments. ok is false when
// the message is not addressed to the bot.
func (r *Router) Parse(content string) (name string, args []string, ok bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, r.prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, r.prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// Dispatch runs the command named in content. handled is false when the
// message is not a known command. A panicking handler is reported as an
// error instead of taking the process down.
func (r *Router) Dispatch(ctx context.Context, content string, req Request) (handled bool, err error) {
	name, args, ok := r.Parse(content)
	if !ok {
		return false, nil
	}
	cmd, ok := r.commands[name]
	if !ok {
		r.logger.Debug().Str("command", name).Msg("unknown command ignored")
		return false, nil
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req.Command = name
	req.Args = args

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("command %s panicked: %v", name, rec)
		}
	}()

	started := time.Now()
	err = cmd.Handle(ctx, &req)
	r.logger.Info().
		Str("command", name).
		Str("author_id", req.AuthorID).
		Str("channel_id", req.ChannelID).
		Dur("elapsed", time.Since(started)).
		AnErr("error", err).
		Msg("command handled")
	return true, err
}

func (r *Router) help(ctx context.Context, req *Request) error {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Available commands:")
	for _, name := range names {
		fmt.Fprintf(&b, "\n`%s%s` - %s", r.prefix, name, r.commands[name].Description)
	}
	return req.Reply.Reply(ctx, b.String())
}
