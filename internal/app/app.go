// Package app wires configuration, storage, domain services, and the HTTP
// server into a running process.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/eminaliyev/gift-api/internal/domain/cart"
	"github.com/eminaliyev/gift-api/internal/domain/checkout"
	"github.com/eminaliyev/gift-api/internal/domain/discount"
	"github.com/eminaliyev/gift-api/internal/httpapi"
	"github.com/eminaliyev/gift-api/internal/payment"
	"github.com/eminaliyev/gift-api/internal/storage/postgres"
	redisstore "github.com/eminaliyev/gift-api/internal/storage/redis"
	"github.com/eminaliyev/gift-api/pkg/health"
	"github.com/eminaliyev/gift-api/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health probes.
	probes := health.NewTracker()
	probes.Readiness(health.Check{
		Name:    "postgres",
		Timeout: 5 * time.Second,
		Probe:   health.PingCheck(pool),
	})
	probes.Liveness(health.Check{
		Name:    "goroutines",
		Timeout: time.Second,
		Probe:   health.GoroutineCountCheck(10000),
	})

	// Redis-backed checkout replay protection, optional.
	var attempts checkout.AttemptStore
	if cfg.RedisAddr != "" {
		redisClient, err := redisstore.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			return errors.Wrap(err, "connect redis")
		}
		defer func() { _ = redisClient.Close() }()

		attempts = redisstore.NewAttemptStore(redisClient, cfg.Checkout.AttemptTTL)
		probes.Readiness(health.Check{
			Name:    "redis",
			Timeout: 5 * time.Second,
			Probe: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
	} else {
		lg.Warn("Redis not configured, checkout replay protection disabled")
	}

	probes.Run(ctx, 10*time.Second)
	probes.SetServing(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	discountRepo := postgres.NewDiscountRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	// Domain services.
	evaluator := discount.NewEvaluator(discountRepo)
	carts := cart.NewService(cartRepo, evaluator)
	gateway := payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.BaseURL)
	checkoutSvc := checkout.NewService(carts, gateway, orderRepo, orderRepo, attempts, cfg.Stripe.Currency)

	// HTTP surface.
	h := httpapi.NewHandler(productRepo, carts, checkoutSvc, orderRepo)
	api := httpapi.NewRouter(h, apikeyRepo, []byte(cfg.APIKeyPepper))

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", probes.LiveHandler)
	mux.HandleFunc("/readyz", probes.ReadyHandler)
	mux.Handle("/api/", http.StripPrefix("/api", otelhttp.NewHandler(api, "gift-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Chain(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				Origins:          cfg.CORS.Origins,
				Headers:          []string{"Content-Type", "Idempotency-Key", "api_key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
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
		probes.SetServing(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		probes.Shutdown()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
