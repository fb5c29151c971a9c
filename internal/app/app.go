// Package app wires configuration, storage, domain services, and the HTTP
// server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/verdantshop/storefront/internal/auth"
	"github.com/verdantshop/storefront/internal/domain/checkout"
	"github.com/verdantshop/storefront/internal/handler"
	"github.com/verdantshop/storefront/internal/payment"
	"github.com/verdantshop/storefront/internal/platform"
	"github.com/verdantshop/storefront/internal/repository"
	"github.com/verdantshop/storefront/pkg/health"
	"github.com/verdantshop/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := repository.NewProductRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)

	// Payment gateway: a missing secret key selects demo mode.
	var gateway payment.Gateway
	if cfg.Payment.SecretKey == "" {
		gateway = payment.NewDemoGateway(lg)
	} else {
		gateway = payment.NewStripeGateway(payment.StripeConfig{
			SecretKey:     cfg.Payment.SecretKey,
			WebhookSecret: cfg.Payment.WebhookSecret,
		}, lg)
	}

	// Commerce platform integration is optional.
	var syncer *platform.Syncer
	if cfg.Platform.StoreURL != "" && cfg.Platform.AccessToken != "" {
		client := platform.NewClient(platform.Config{
			StoreURL:    cfg.Platform.StoreURL,
			AccessToken: cfg.Platform.AccessToken,
			APIVersion:  cfg.Platform.APIVersion,
		}, lg)
		syncer = platform.NewSyncer(client, productRepo, lg)
	}

	// Domain services.
	checkoutSvc := checkout.NewService(productRepo, customerRepo, orderRepo, gateway, cfg.Currency, lg)
	authSvc := auth.NewService(customerRepo, orderRepo, cfg.JWTSecret, lg)

	// HTTP routes: health endpoints + API under /api.
	h := handler.New(handler.Config{
		ImageBaseURL:          cfg.ImageBaseURL,
		PlatformWebhookSecret: cfg.Platform.WebhookSecret,
	}, checkoutSvc, authSvc, productRepo, orderRepo, gateway, syncer, lg)

	root := chi.NewRouter()
	root.Get("/livez", healthSvc.LiveEndpoint)
	root.Get("/readyz", healthSvc.ReadyEndpoint)
	root.Mount("/api", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(root,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("storefront-api", m),
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
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
