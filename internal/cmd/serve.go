package cmd

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/fjod/cats-den/internal/auth"
	"github.com/fjod/cats-den/internal/cache"
	"github.com/fjod/cats-den/internal/cart"
	"github.com/fjod/cats-den/internal/events"
	h "github.com/fjod/cats-den/internal/http"
	"github.com/fjod/cats-den/internal/payment"
	"github.com/fjod/cats-den/internal/pricing"
	"github.com/fjod/cats-den/internal/service"
	"github.com/fjod/cats-den/internal/telemetry"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the storefront API server",
	Long: `Starts the HTTP API. The order and user store is chosen by database.driver;
Redis backs the catalog cache, carts and webhook de-duplication when
redis.addr is set, and order events go to Kafka when kafka.enabled is true.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "Create indexes or run migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	shutdownTracing, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		Enabled:      cfg.Telemetry.Enabled,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      Version,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		SampleRatio:  cfg.Telemetry.SampleRatio,
		Output:       os.Stdout,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	db, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("database connected", "driver", cfg.Database.Driver)
	if migrateOnStart {
		if err := db.Setup(ctx); err != nil {
			return fmt.Errorf("failed to set up database: %w", err)
		}
	}

	rdb, err := openRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var (
		catalogCache cache.Cache
		deduper      cache.Deduper
		cartStorage  cart.Storage
	)
	if rdb != nil {
		catalogCache = cache.NewRedisCache(rdb, cfg.Redis.CacheTTL)
		deduper = cache.NewRedisDeduper(rdb, cfg.Payment.EventDedupeTTL)
		cartStorage = cart.NewRedisStorage(rdb, cfg.Redis.CartTTL)
	} else {
		log.Warn("redis not configured, using in-process cache and carts")
		catalogCache = cache.NewMemoryCache(cfg.Redis.CacheTTL)
		deduper = cache.NewMemoryDeduper()
		cartStorage = cart.NewMemoryStorage()
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Topic, cfg.Kafka.Brokers...)
		log.Info("publishing order events", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	}

	if cfg.Payment.WebhookSecret == "" {
		log.Warn("payment webhook secret not set, webhook signatures are not checked")
	}
	payments := payment.NewMockProvider(payment.MockConfig{
		WebhookSecret: cfg.Payment.WebhookSecret,
		PublicKey:     cfg.Payment.PublishableKey,
		Tolerance:     cfg.Payment.SignatureTTL,
	})

	catalogSvc, err := newCatalog(cfg.CMS, catalogCache, log, metrics)
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to create token manager: %w", err)
	}

	orderSvc := service.NewOrderService(service.OrderDeps{
		Orders:        db.Orders(),
		Publisher:     publisher,
		Payments:      payments,
		Catalog:       catalogSvc,
		VerifyCatalog: cfg.Pricing.VerifyCatalog,
		Pricing:       pricing.Policy{ShippingFlat: cfg.Pricing.ShippingFlat, TaxRate: cfg.Pricing.TaxRate},
		Currency:      cfg.Payment.Currency,
		Logger:        log,
		Metrics:       metrics,
	})
	authSvc := service.NewAuthService(db.Users(), tokens, cfg.Auth.BcryptCost, log)
	accountSvc := service.NewAccountService(db.Users())
	webhookSvc := service.NewWebhookService(service.WebhookDeps{
		Orders:    db.Orders(),
		Deduper:   deduper,
		Publisher: publisher,
		Logger:    log,
		Metrics:   metrics,
	})

	timeout := cfg.HTTP.RequestTimeout
	webhooks := h.NewWebhookHandler(h.WebhookDeps{
		Verifier:  payments,
		Payments:  webhookSvc,
		Catalog:   catalogSvc,
		CMSSecret: cfg.CMS.WebhookSecret,
		Timeout:   timeout,
		Logger:    log,
	})
	var paymentSim *h.PaymentSimHandler
	if cfg.Payment.Simulate {
		log.Warn("payment simulation routes enabled under /api/admin/payments")
		paymentSim = h.NewPaymentSimHandler(payments, webhooks, timeout, log)
	}

	router := h.NewRouter(h.RouterConfig{
		Auth:     h.NewAuthHandler(authSvc, timeout, log),
		Orders:   h.NewOrdersHandler(orderSvc, payments.PublicKey(), timeout, log),
		Account:  h.NewAccountHandler(accountSvc, timeout, log),
		Webhooks: webhooks,
		Catalog:  h.NewCatalogHandler(catalogSvc, timeout, log),
		Cart:     h.NewCartHandler(cartStorage, catalogSvc, timeout, log),

		PaymentSim: paymentSim,

		Tokens:      tokens,
		AuthLimiter: auth.NewRateLimiter(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst),
		Metrics:     metrics,

		RequestTimeout:     timeout,
		MaxRequestBodySize: cfg.HTTP.MaxRequestBodySize,
		AdminToken:         cfg.HTTP.AdminToken,
		Tracing:            cfg.Telemetry.Enabled,
		Ready:              db.Ping,
	})

	srv := &nethttp.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("catsden starting", "port", cfg.HTTP.Port, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	if err := publisher.Close(); err != nil {
		log.Error("failed to close event publisher", "error", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error("failed to close redis client", "error", err)
		}
	}
	if err := db.Close(shutdownCtx); err != nil {
		log.Error("failed to close database", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("failed to flush traces", "error", err)
	}

	log.Info("server exited")
	return nil
}
