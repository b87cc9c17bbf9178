package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/storefront/internal/cart/cache"
	cartdomain "github.com/fjod/storefront/internal/cart/domain"
	"github.com/fjod/storefront/internal/cart/poller"
	cartrepo "github.com/fjod/storefront/internal/cart/repository"
	cartservice "github.com/fjod/storefront/internal/cart/service"
	"github.com/fjod/storefront/internal/checkout/gateway"
	checkout "github.com/fjod/storefront/internal/checkout/service"
	"github.com/fjod/storefront/internal/checkout/shipping"
	"github.com/fjod/storefront/internal/config"
	h "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/orders/publisher"
	ordersrepo "github.com/fjod/storefront/internal/orders/repository"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		panic(err)
	}

	log, err := logger.Init("storefront", cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	ctx := context.Background()

	// Cart storage: Mongo is the source of truth, Redis the read cache.
	cartRepo, closeMongo, err := cartrepo.OpenCartRepository(ctx, cartrepo.MongoConfig{
		URI:            cfg.MongoURI,
		Database:       cfg.MongoDBName,
		MaxPoolSize:    uint64(cfg.MongoMaxPoolSize),
		ConnectTimeout: cfg.MongoConnectTimeout,
	})
	if err != nil {
		log.Fatal("failed to open cart repository", zap.Error(err))
	}
	log.Info("connected to MongoDB", zap.String("db", cfg.MongoDBName))

	redisClient := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.RedisAddr},
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	cartCache := cache.NewRedisCacheWithOptions(redisClient, cache.Options{
		BaseTTL:   cfg.CartCacheTTL,
		MaxJitter: cfg.CartCacheJitter,
	})

	cartPolicy := cartdomain.Policy{FlatShipping: cfg.CartFlatShipping, TaxRate: cfg.TaxRate}
	carts := cartservice.NewCartService(cartRepo, cartCache, cartPolicy)

	// Orders
	orderRepo, err := ordersrepo.NewRepository(&cfg.Postgres)
	if err != nil {
		log.Fatal("failed to connect to orders database", zap.Error(err))
	}
	defer orderRepo.Close()
	if err := orderRepo.RunMigrations(&cfg.Postgres); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Checkout
	table := shipping.DefaultTable()
	if cfg.ShippingTablePath != "" {
		if table, err = shipping.LoadTable(cfg.ShippingTablePath); err != nil {
			log.Fatal("failed to load shipping table", zap.String("path", cfg.ShippingTablePath), zap.Error(err))
		}
	}
	if cfg.StripeSecretKey == "" {
		log.Warn("STRIPE_SECRET_KEY is not set, card checkout will fail")
	}

	checkoutSvc := checkout.NewCheckoutService(checkout.Config{
		Currency:             cfg.Currency,
		Exponent:             cfg.CurrencyExponent,
		Country:              "SA",
		TaxRate:              cfg.TaxRate,
		PublicBaseURL:        cfg.PublicBaseURL,
		MadaCheckoutURL:      cfg.MadaCheckoutURL,
		TabbyCheckoutURL:     cfg.TabbyCheckoutURL,
		TamaraCheckoutURL:    cfg.TamaraCheckoutURL,
		ApplePayMerchantID:   cfg.ApplePayMerchantID,
		ApplePayMerchantName: cfg.ApplePayMerchantName,
		GatewayTimeout:       cfg.GatewayTimeout,
		AllowCardFallback:    cfg.AllowCardFallback,
	}, orderRepo, gateway.NewStripeGateway(cfg.StripeSecretKey), shipping.NewResolver(table, cfg.StrictShipping))

	// Background workers
	workersCtx, stopWorkers := context.WithCancel(ctx)
	var wg sync.WaitGroup

	outbox := publisher.NewOutboxPoller(orderRepo, cfg.KafkaBrokers...)
	cartPoller := poller.NewPoller(carts, cfg.KafkaBrokers...)
	wg.Add(2)
	go func() {
		defer wg.Done()
		outbox.Run(workersCtx)
	}()
	go func() {
		defer wg.Done()
		cartPoller.Run(workersCtx)
	}()

	if cfg.PaymentCallbackSecret == "" {
		log.Warn("PAYMENT_CALLBACK_SECRET is not set, mada payment callbacks are disabled")
	}
	router := h.NewRouter(h.RouterConfig{
		RequestTimeout:        cfg.RequestTimeout,
		MaxRequestBodySize:    cfg.MaxRequestBodySize,
		PaymentCallbackSecret: cfg.PaymentCallbackSecret,
		CallbackTolerance:     cfg.PaymentCallbackTolerance,
	}, carts, checkoutSvc)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("storefront starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	stopWorkers()
	wg.Wait()
	outbox.Close()
	cartPoller.Close()

	if err := closeMongo(shutdownCtx); err != nil {
		log.Warn("failed to disconnect from MongoDB", zap.Error(err))
	}
	log.Info("server exited")
}
