package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/vietddude/stepbridge/internal/bridge"
	"github.com/vietddude/stepbridge/internal/claim"
	"github.com/vietddude/stepbridge/internal/core/config"
	"github.com/vietddude/stepbridge/internal/health"
	"github.com/vietddude/stepbridge/internal/infra/backend"
	redisclient "github.com/vietddude/stepbridge/internal/infra/redis"
	"github.com/vietddude/stepbridge/internal/infra/resolver"
	"github.com/vietddude/stepbridge/internal/infra/storage"
	"github.com/vietddude/stepbridge/internal/infra/storage/memory"
	"github.com/vietddude/stepbridge/internal/infra/storage/postgres"
	"github.com/vietddude/stepbridge/internal/nav"
	"github.com/vietddude/stepbridge/internal/recovery"
	"github.com/vietddude/stepbridge/internal/reward"
)

// Bridge is the main application struct that owns every long-lived component.
type Bridge struct {
	cfg config.AppConfig
	log *slog.Logger

	creds     *backend.StaticCredentials
	addresses *resolver.Cache
	client    *backend.Client
	catalog   *reward.Store
	scheduler *bridge.Scheduler
	orch      *claim.Orchestrator
	auto      *claim.AutoClaimer
	nav       *nav.Registry

	pending storage.PendingCommitRepository
	optIns  storage.OptInRepository

	recovery     *recovery.Worker
	pruner       *recovery.Pruner
	healthMon    *health.Monitor
	healthServer *health.Server

	db          *postgres.DB
	redisClient *redisclient.Client

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customises a Bridge.
type Option func(*options)

type options struct {
	runner claim.ActionRunner
	doer   backend.Doer
	log    *slog.Logger
}

// WithActionRunner sets how reward actions are applied. Defaults to logging them.
func WithActionRunner(r claim.ActionRunner) Option {
	return func(o *options) { o.runner = r }
}

// WithHTTPDoer replaces the pooled HTTP client.
func WithHTTPDoer(d backend.Doer) Option {
	return func(o *options) { o.doer = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// NewBridge creates a new Bridge with all dependencies initialized.
func NewBridge(ctx context.Context, cfg config.AppConfig, opts ...Option) (*Bridge, error) {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runner == nil {
		o.runner = claim.LogRunner{Log: o.log}
	}

	dayLoc := time.UTC
	if cfg.Backend.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Backend.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid backend timezone %q: %w", cfg.Backend.Timezone, err)
		}
		dayLoc = loc
	}

	b := &Bridge{cfg: cfg, log: o.log, nav: nav.NewRegistry(o.log)}

	// 1. Storage
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := postgres.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		b.db = db
		b.pending = postgres.NewPendingCommitRepo(db)
		b.optIns = postgres.NewOptInRepo(db)
		b.log.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		b.pending = memory.NewPendingCommitRepo(store)
		b.optIns = memory.NewOptInRepo(store)
		b.log.Info("Using Memory storage")
	}

	var claimOpts []claim.Option
	if cfg.Redis.Enabled() {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			b.log.Warn("Failed to connect to Redis, using local opt-in store", "error", err)
		} else {
			b.redisClient = rc
			b.optIns = redisclient.NewOptInRepo(rc)
			claimOpts = append(claimOpts, claim.WithLocker(redisclient.NewClaimLocker(rc, cfg.Backend.CallTimeout*6)))
			b.log.Info("Using Redis for opt-ins and claim locks")
		}
	}

	// 2. Backend
	b.creds = backend.NewStaticCredentials(cfg.Backend.APIKey)
	b.addresses = resolver.NewCache(net.DefaultResolver, cfg.Backend.DNSTTL,
		resolver.WithPreferIPv6(cfg.Backend.PreferIPv6),
		resolver.WithLogger(b.log),
	)
	doer := o.doer
	if doer == nil {
		doer = backend.NewHTTPClient(cfg.Backend, b.addresses)
	}
	exec := backend.NewExecutor(cfg.Backend.BaseURL, doer, b.creds,
		backend.WithRetryConfig(backend.RetryConfigFrom(cfg.Retry)),
		backend.WithLogger(b.log),
	)
	b.client = backend.NewClient(exec)
	b.catalog = reward.NewStore(b.client)

	// 3. Workflow
	b.scheduler = bridge.NewScheduler(bridge.Config{
		Workers:   cfg.Scheduler.Workers,
		QueueSize: cfg.Scheduler.QueueSize,
	}, b.log)

	claimOpts = append(claimOpts,
		claim.WithJournal(b.pending),
		claim.WithDayLocation(dayLoc),
		claim.WithLogger(b.log),
	)
	b.orch = claim.NewOrchestrator(b.client, b.catalog, b.scheduler, o.runner, claimOpts...)
	b.auto = claim.NewAutoClaimer(b.orch, b.optIns, b.creds, b.scheduler, cfg.AutoClaim.Delay, b.log)

	backoff := recovery.DefaultBackoff()
	if cfg.Recovery.MaxRetries > 0 {
		backoff.MaxRetries = cfg.Recovery.MaxRetries
	}
	b.recovery = recovery.NewWorker(b.pending, b.client, cfg.Recovery.Interval, backoff, b.log)
	b.pruner = recovery.NewPruner(b.pending, cfg.Recovery.Retention, b.log)

	// 4. Health
	b.healthMon = health.NewMonitor(b.pending)
	b.healthMon.AddCheck("backend", func(ctx context.Context) error {
		_, err := b.client.Health(ctx)
		return err
	}, true)
	if b.db != nil {
		b.healthMon.AddCheck("database", b.db.Health, false)
	}
	if b.redisClient != nil {
		b.healthMon.AddCheck("redis", b.redisClient.Ping, false)
	}
	if cfg.Server.Port > 0 {
		b.healthServer = health.NewServer(b.healthMon, cfg.Server.Port)
	}

	return b, nil
}

// Start starts the main loop and background workers.
func (b *Bridge) Start(ctx context.Context) error {
	ctx, b.cancel = context.WithCancel(ctx)

	b.scheduler.Start(ctx)

	if b.healthServer != nil {
		go func() {
			if err := b.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				b.log.Error("Health server failed", "error", err)
			}
		}()
	}

	if b.db != nil {
		b.db.StartMetricsCollector(ctx)
	}

	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		b.recovery.Start(ctx)
	}()
	go func() {
		defer b.wg.Done()
		b.pruner.Start(ctx)
	}()

	// Warm the catalog; claims refresh it anyway.
	b.scheduler.RunAsync(ctx, func(ctx context.Context) (any, error) {
		cat, err := b.catalog.Refresh(ctx)
		if err != nil {
			b.log.Warn("Initial catalog fetch failed", "error", err)
			return nil, nil
		}
		b.log.Info("Reward catalog loaded", "tiers", cat.Len())
		return nil, nil
	})

	b.log.Info("Bridge started", "backend", b.cfg.Backend.BaseURL, "api_key_set", b.creds.Configured())
	return nil
}

// Stop shuts everything down in reverse order.
func (b *Bridge) Stop(ctx context.Context) error {
	var errs []error
	if b.healthServer != nil {
		if err := b.healthServer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("health server: %w", err))
		}
	}
	if err := b.scheduler.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler: %w", err))
	}
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()

	if b.redisClient != nil {
		if err := b.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	b.log.Info("Bridge stopped")
	return errors.Join(errs...)
}

// PlayerJoined arms the auto-claim for a player when enabled.
func (b *Bridge) PlayerJoined(ctx context.Context, player string) *bridge.Timer {
	if !b.cfg.AutoClaim.Enabled {
		return nil
	}
	return b.auto.Schedule(ctx, player)
}

func (b *Bridge) Client() *backend.Client { return b.client }
func (b *Bridge) Orchestrator() *claim.Orchestrator { return b.orch }
func (b *Bridge) AutoClaimer() *claim.AutoClaimer { return b.auto }
func (b *Bridge) Scheduler() *bridge.Scheduler { return b.scheduler }
func (b *Bridge) Catalog() *reward.Store { return b.catalog }
func (b *Bridge) Nav() *nav.Registry { return b.nav }
func (b *Bridge) OptIns() storage.OptInRepository { return b.optIns }
func (b *Bridge) Pending() storage.PendingCommitRepository { return b.pending }
func (b *Bridge) Credentials() backend.CredentialStore { return b.creds }
func (b *Bridge) Health() *health.Monitor { return b.healthMon }
func (b *Bridge) Recovery() *recovery.Worker { return b.recovery }
func (b *Bridge) Config() config.AppConfig { return b.cfg }
