package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/viorhealth/pos-terminal/internal/checkout"
	"github.com/viorhealth/pos-terminal/internal/domain/cart"
	"github.com/viorhealth/pos-terminal/internal/domain/catalog"
	"github.com/viorhealth/pos-terminal/internal/domain/journal"
	"github.com/viorhealth/pos-terminal/internal/domain/pricing"
	"github.com/viorhealth/pos-terminal/internal/repository"
	"github.com/viorhealth/pos-terminal/internal/server"
	"github.com/viorhealth/pos-terminal/internal/vior"
	"github.com/viorhealth/pos-terminal/pkg/health"
	"github.com/viorhealth/pos-terminal/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the terminal API server, and handles
// graceful shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("backend", cfg.Backend.URL),
	)

	// Backend client.
	client, err := vior.NewClient(vior.Config{
		BaseURL:        cfg.Backend.URL,
		Token:          cfg.Backend.Token,
		Timeout:        cfg.Backend.Timeout,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create backend client")
	}

	// Catalog snapshot. A cold backend must not block startup: the terminal
	// comes up with an empty catalog and the readiness probe stays red until
	// the backend answers.
	cache := catalog.NewCache(client)
	if err := cache.Refresh(ctx); err != nil {
		lg.Warn("Initial catalog fetch failed", zap.Error(err))
	}

	// Optional local sales journal.
	var recorder journal.Recorder
	healthSvc := health.New()
	if cfg.Journal.DatabaseURL != "" {
		pool, err := repository.NewPool(ctx, cfg.Journal.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create journal pool")
		}
		defer pool.Close()

		if err := repository.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run journal migrations")
		}
		recorder = repository.NewJournalRepository(pool)
		healthSvc.AddReadinessCheck("journal", 5*time.Second, health.PingCheck(pool))
	}

	// Health checks.
	healthSvc.AddReadinessCheck("backend", 5*time.Second, health.PingCheck(client))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Domain.
	store := cart.NewStore()
	calc := pricing.New(cfg.VATRateDecimal())
	orchestrator := checkout.New(store, calc, client, client, cache, recorder)

	// HTTP.
	h := server.New(store, calc, cache, orchestrator)
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	srv := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Checkout holds the connection through two sequential backend
		// calls, so the write timeout must cover them.
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := srv.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
