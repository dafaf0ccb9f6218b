// Package daemon implements the confloomd daemon lifecycle.
package daemon

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/confloom/confloom/pkg/api"
	"github.com/confloom/confloom/pkg/logging"
	"github.com/confloom/confloom/pkg/workspace"
)

const (
	defaultHistorySize = 200
	defaultEventBuffer = 1024
)

// Daemon wires the workspace, event buffer, and API server together.
type Daemon struct {
	opts   Options
	ws     *workspace.Workspace
	events *logging.EventBuffer
}

// New creates a new Daemon from resolved options.
func New(opts Options) *Daemon {
	if opts.HistorySize <= 0 {
		opts.HistorySize = defaultHistorySize
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}

	events := logging.NewEventBuffer(opts.EventBuffer)
	wsOpts := []workspace.Option{
		workspace.WithEventBuffer(events),
		workspace.WithHistorySize(opts.HistorySize),
	}
	if opts.Dir != "" {
		wsOpts = append(wsOpts, workspace.WithDir(opts.Dir))
	}
	return &Daemon{opts: opts, ws: workspace.New(wsOpts...), events: events}
}

// Workspace returns the daemon's workspace.
func (d *Daemon) Workspace() *workspace.Workspace {
	return d.ws
}

// Run starts the daemon and blocks until shutdown.
func (d *Daemon) Run(ctx context.Context) error {
	// Warning-and-above log records are mirrored into the event buffer so
	// they show up on the SSE stream next to workspace operations.
	base := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(d.opts.LogLevel),
	})
	slog.SetDefault(slog.New(logging.NewCaptureHandler(base, d.events)))

	slog.Info("starting confloomd",
		"listen", d.opts.Listen,
		"pid", os.Getpid())

	// Preload configurations; a missing or unreadable directory is not fatal
	if d.opts.Dir != "" {
		n, err := d.ws.LoadDir(d.opts.Dir)
		if err != nil {
			slog.Warn("failed to load configuration directory",
				"dir", d.opts.Dir, "err", err)
		} else {
			slog.Info("configurations loaded", "dir", d.opts.Dir, "count", n)
		}
	}

	// Handle signals for clean shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	srv := api.NewServer(api.Config{
		Addr:      d.opts.Listen,
		HTTPSAddr: d.opts.HTTPSListen,
		TLS:       d.opts.TLS,
		Auth:      d.authConfig(),
		Workspace: d.ws,
		EventBuf:  d.events,
	})

	err := srv.Run(ctx)
	slog.Info("shutdown complete")
	return err
}

// authConfig maps the option fields onto API middleware credentials.
// No users and no keys means the API runs unauthenticated.
func (d *Daemon) authConfig() *api.AuthConfig {
	if len(d.opts.Users) == 0 && len(d.opts.APIKeys) == 0 {
		return nil
	}
	keys := make(map[string]bool, len(d.opts.APIKeys))
	for _, key := range d.opts.APIKeys {
		keys[key] = true
	}
	return &api.AuthConfig{Users: d.opts.Users, APIKeys: keys}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
