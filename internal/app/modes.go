package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zentrolabs/zentro-core/internal/crypto"
	"github.com/zentrolabs/zentro-core/internal/domain"
	"github.com/zentrolabs/zentro-core/internal/server"
	"github.com/zentrolabs/zentro-core/internal/server/handler"
	"github.com/zentrolabs/zentro-core/internal/server/ws"
	"github.com/zentrolabs/zentro-core/internal/service"
)

const shutdownTimeout = 5 * time.Second

// ServeMode runs the full API server: domain services, HTTP handlers, the
// WebSocket hub, and the optional settlement archiver. It blocks until the
// context is cancelled or a component fails.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	clock := service.SystemClock{}

	marketSvc := service.NewMarketService(
		deps.MarketStore,
		deps.PoolStore,
		deps.PositionStore,
		deps.BetStore,
		deps.AuditStore,
		deps.Vault,
		clock,
		deps.LockManager,
		deps.MarketCache,
		deps.Atomic,
		a.logger,
	)
	liquiditySvc := service.NewLiquidityService(
		deps.MarketStore,
		deps.PoolStore,
		deps.PositionStore,
		deps.AuditStore,
		deps.Vault,
		clock,
		deps.LockManager,
		deps.PriceCache,
		deps.Atomic,
		a.logger,
	)
	settlementSvc := service.NewSettlementService(
		deps.MarketStore,
		deps.PositionStore,
		deps.Vault,
		deps.AuditStore,
		clock,
		deps.LockManager,
		deps.Atomic,
		a.logger,
	)
	positionSvc := service.NewPositionService(deps.PositionStore, deps.PriceCache, a.logger)
	publisher := service.NewEventPublisher(deps.SignalBus, deps.Notifier, a.logger)

	hmacAuth, err := a.loadHMACAuth()
	if err != nil {
		return err
	}

	hub := ws.NewHub(deps.SignalBus, service.EventChannel, a.logger)

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": deps.PostgresPing,
			"redis":    deps.RedisPing,
		}, a.logger),
		Markets: handler.NewMarketHandler(marketSvc, publisher, handler.MarketDefaults{
			FeeRateBps: a.cfg.Market.DefaultFeeRateBps,
			MinBet:     a.cfg.Market.DefaultMinBet,
			MaxBet:     a.cfg.Market.DefaultMaxBet,
		}, a.logger),
		Bets:       handler.NewBetHandler(marketSvc, deps.BetStore, publisher, a.logger),
		Liquidity:  handler.NewLiquidityHandler(liquiditySvc, publisher, a.logger),
		Settlement: handler.NewSettlementHandler(settlementSvc, publisher, a.logger),
		Positions:  handler.NewPositionHandler(positionSvc, a.logger),
		Events:     handler.NewEventsHandler(deps.SignalBus, service.EventStream, a.logger),
		Vault:      handler.NewVaultHandler(deps.Vault, a.logger),
	}

	srv := server.New(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Auth.APIKey,
		HMAC:            hmacAuth,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		g.Go(func() error {
			a.runArchiveLoop(ctx, deps, settlementSvc)
			return nil
		})
	}

	a.logger.InfoContext(ctx, "app: serving",
		slog.Int("port", a.cfg.Server.Port),
		slog.Bool("archive_enabled", a.cfg.Archive.Enabled),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("app: serve: %w", err)
	}
	return nil
}

// MigrateMode applies pending schema migrations and exits.
func (a *App) MigrateMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "app: running migrations")
	if err := deps.Migrator(ctx); err != nil {
		return fmt.Errorf("app: migrate: %w", err)
	}
	a.logger.InfoContext(ctx, "app: migrations complete")
	return nil
}

// loadHMACAuth resolves the signing secret and builds the verifier. Returns
// nil when signed-request auth is not configured.
func (a *App) loadHMACAuth() (*crypto.HMACAuth, error) {
	if a.cfg.Auth.HMACKeyID == "" {
		return nil, nil
	}
	secret, err := crypto.LoadSecret(crypto.SecretConfig{
		RawSecret:           a.cfg.Auth.HMACSecret,
		EncryptedSecretPath: a.cfg.Auth.EncryptedSecretPath,
		SecretPassword:      a.cfg.Auth.SecretPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("app: load hmac secret: %w", err)
	}
	return &crypto.HMACAuth{KeyID: a.cfg.Auth.HMACKeyID, Secret: secret}, nil
}

// runArchiveLoop periodically snapshots settlement reports for resolved
// markets to blob storage. Writes are idempotent per market, so the
// in-process seen set only avoids redundant uploads within one run.
func (a *App) runArchiveLoop(ctx context.Context, deps *Dependencies, settlements *service.SettlementService) {
	logger := a.logger.With(slog.String("component", "archive_loop"))
	ticker := time.NewTicker(a.cfg.Archive.Interval.Duration)
	defer ticker.Stop()

	seen := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.archiveResolved(ctx, deps, settlements, seen, logger)
		}
	}
}

func (a *App) archiveResolved(
	ctx context.Context,
	deps *Dependencies,
	settlements *service.SettlementService,
	seen map[string]bool,
	logger *slog.Logger,
) {
	markets, err := deps.MarketStore.ListByStatus(ctx, domain.MarketStatusResolved, domain.ListOpts{Limit: 100})
	if err != nil {
		logger.WarnContext(ctx, "list resolved markets failed", slog.String("error", err.Error()))
		return
	}

	for _, m := range markets {
		if seen[m.ID] || m.ResolvedAt == nil {
			continue
		}

		report, err := settlements.Report(ctx, m.ID)
		if err != nil {
			logger.WarnContext(ctx, "settlement report failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := deps.Archiver.ArchiveSettlement(ctx, m.ID, report, *m.ResolvedAt); err != nil {
			logger.WarnContext(ctx, "archive failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		seen[m.ID] = true
		logger.InfoContext(ctx, "settlement archived", slog.String("market_id", m.ID))
	}
}
