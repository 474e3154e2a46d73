package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Tolujoh-n/bitcoinworld/internal/archive"
	"github.com/Tolujoh-n/bitcoinworld/internal/pricing"
	"github.com/Tolujoh-n/bitcoinworld/internal/server"
	"github.com/Tolujoh-n/bitcoinworld/internal/server/handler"
	"github.com/Tolujoh-n/bitcoinworld/internal/server/ws"
	"github.com/Tolujoh-n/bitcoinworld/internal/service"
	"github.com/Tolujoh-n/bitcoinworld/internal/workflow"
)

// ServerMode runs the HTTP/WebSocket API, the live hub, and the snapshot
// refresher. Archival is left to a separate archive-mode process.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startAPI(ctx, g, deps)
	return g.Wait()
}

// ArchiveMode runs only the cold-storage archiver. It archives once at
// startup and then on the configured schedule.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	if deps.Archiver == nil {
		return fmt.Errorf("archive mode: object storage is not configured")
	}
	runner := archive.NewRunner(deps.Archiver, a.cfg.Archive.RetentionDays, a.logger)

	if cron := strings.TrimSpace(a.cfg.Archive.Cron); cron != "" {
		return runner.RunCron(ctx, cron)
	}
	if err := runner.Run(ctx); err != nil {
		a.logger.ErrorContext(ctx, "initial archive run failed", slog.String("error", err.Error()))
	}
	return runner.RunLoop(ctx, a.cfg.Archive.Interval.Duration)
}

// FullMode runs the API server and the archiver in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	if a.cfg.Server.Enabled {
		a.startAPI(ctx, g, deps)
	}

	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		runner := archive.NewRunner(deps.Archiver, a.cfg.Archive.RetentionDays, a.logger)
		g.Go(func() error {
			if cron := strings.TrimSpace(a.cfg.Archive.Cron); cron != "" {
				return runner.RunCron(ctx, cron)
			}
			return runner.RunLoop(ctx, a.cfg.Archive.Interval.Duration)
		})
	}

	return g.Wait()
}

// startAPI builds the service layer and adds the hub, the snapshot
// refresher, and the HTTP server to the errgroup.
func (a *App) startAPI(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	pricer := pricing.NewReconciler(a.logger)
	quoter := workflow.NewQuoter(pricer)

	tradeWF := workflow.NewTradeWorkflow(
		deps.PollStore,
		deps.TradeStore,
		deps.Reader,
		deps.Writer,
		deps.Watcher,
		deps.SnapshotCache,
		deps.SignalBus,
		deps.RateLimiter,
		deps.AuditStore,
		deps.Notifier,
		quoter,
		workflow.TradeOptions{MaxPerMinute: a.cfg.Trade.MaxPerMinute},
		a.logger,
	)
	redeemWF := workflow.NewRedemptionWorkflow(
		deps.PollStore,
		deps.TradeStore,
		deps.Writer,
		deps.Watcher,
		deps.SnapshotCache,
		deps.AuditStore,
		deps.Notifier,
		a.logger,
	)

	pollSvc := service.NewPollService(
		deps.PollStore,
		deps.TradeStore,
		deps.Reader,
		deps.SnapshotCache,
		deps.SignalBus,
		deps.LockManager,
		deps.AuditStore,
		deps.Notifier,
		pricer,
		a.cfg.Snapshot.CacheTTL.Duration,
		a.logger,
	)
	tradeSvc := service.NewTradeService(
		tradeWF,
		redeemWF,
		deps.TradeStore,
		deps.PollStore,
		pricer,
		a.cfg.Trade.HistoryLimit,
		a.logger,
	)
	authSvc := service.NewAuthService(
		deps.UserStore,
		deps.SessionStore,
		a.cfg.Auth.SessionTTL.Duration,
		a.cfg.Auth.BcryptCost,
		a.logger,
	)
	commentSvc := service.NewCommentService(deps.CommentStore, deps.PollStore, a.logger)

	hub := ws.NewHub(deps.SignalBus, deps.Wallet, a.logger)

	// Refresh chain snapshots for polls with live rooms only; the hub
	// knows which polls have an audience.
	refresher := service.NewSnapshotRefresher(
		deps.PollStore,
		pollSvc,
		hub,
		a.cfg.Snapshot.RefreshInterval.Duration,
		a.logger,
	)

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(a.logger),
		Auth:     handler.NewAuthHandler(authSvc, a.logger),
		Polls:    handler.NewPollHandler(pollSvc, tradeSvc, a.logger),
		Trades:   handler.NewTradeHandler(tradeSvc, a.logger),
		Comments: handler.NewCommentHandler(commentSvc, a.logger),
		Stacks:   handler.NewStacksHandler(deps.Watcher, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:              a.cfg.Server.Port,
		CORSOrigins:       a.cfg.Server.CORSOrigins,
		RequestsPerMinute: a.cfg.Server.RequestsPerMinute,
	}, handlers, authSvc, deps.RateLimiter, hub, a.logger)

	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		return refresher.Run(ctx)
	})
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
