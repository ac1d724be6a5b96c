package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flowponder/ponderd/internal/server"
	"github.com/flowponder/ponderd/internal/server/handler"
	"github.com/flowponder/ponderd/internal/server/ws"
)

// shutdownGrace bounds how long in-flight requests may drain on shutdown.
const shutdownGrace = 10 * time.Second

// ServeMode runs the HTTP API, the WebSocket hub, and the optional periodic
// snapshot archiver. It blocks until the context is cancelled.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	// WebSocket hub mirrors bus channels to browser clients. Without Redis
	// there is no bus to mirror, so /ws is not registered.
	var hub *ws.Hub
	if deps.Bus != nil {
		hub = ws.NewHub(deps.Bus, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})
		g.Go(func() error {
			return a.forwardSessionEvents(ctx, deps)
		})
	}

	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(a.logger),
		Ponders:     handler.NewPonderHandler(deps.Market, a.logger),
		Session:     handler.NewSessionHandler(deps.Auth, a.logger),
		Leaderboard: handler.NewLeaderboardHandler(deps.Market, a.logger),
	}
	if deps.Journal != nil {
		handlers.Operations = handler.NewOperationsHandler(deps.Journal, a.logger)
	}
	if deps.BlobReader != nil {
		handlers.Snapshots = handler.NewSnapshotsHandler(deps.BlobReader, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown failed", slog.String("error", err.Error()))
		}
		return ctx.Err()
	})

	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		g.Go(func() error {
			return a.runArchiveLoop(ctx, deps)
		})
	}

	return g.Wait()
}

// SnapshotMode uploads one snapshot of the active ponders and the leaderboard
// and exits. Suitable for cron-style scheduling.
func (a *App) SnapshotMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting snapshot mode")

	if deps.Archiver == nil {
		return fmt.Errorf("snapshot mode: s3 is not configured")
	}
	if err := deps.Archiver.ArchiveSnapshot(ctx, time.Now().UTC()); err != nil {
		return fmt.Errorf("snapshot mode: %w", err)
	}
	a.logger.InfoContext(ctx, "snapshot uploaded")
	return nil
}

// MigrateMode applies pending database migrations and exits.
func (a *App) MigrateMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting migrate mode")

	if deps.Postgres == nil {
		return fmt.Errorf("migrate mode: postgres is not configured")
	}
	if err := deps.Postgres.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrate mode: %w", err)
	}
	a.logger.InfoContext(ctx, "migrations applied")
	return nil
}

// forwardSessionEvents mirrors authentication state transitions onto the bus
// so WebSocket clients observe sign-in, sign-out, and balance changes.
func (a *App) forwardSessionEvents(ctx context.Context, deps *Dependencies) error {
	events, unsubscribe := deps.Auth.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				a.logger.ErrorContext(ctx, "marshal session event failed",
					slog.String("error", err.Error()))
				continue
			}
			if err := deps.Bus.Publish(ctx, "session", payload); err != nil {
				a.logger.WarnContext(ctx, "publish session event failed",
					slog.String("error", err.Error()))
			}
		}
	}
}

// runArchiveLoop uploads snapshots on the configured interval. Upload failures
// are logged and retried on the next tick.
func (a *App) runArchiveLoop(ctx context.Context, deps *Dependencies) error {
	interval := a.cfg.Archive.Interval.Duration
	if interval <= 0 {
		interval = time.Hour
	}
	a.logger.InfoContext(ctx, "starting archive loop",
		slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := deps.Archiver.ArchiveSnapshot(ctx, now.UTC()); err != nil {
				a.logger.WarnContext(ctx, "snapshot archive failed",
					slog.String("error", err.Error()))
			}
		}
	}
}
