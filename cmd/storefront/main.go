package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_storefront/internal/broadcast"
	"github.com/fjod/go_storefront/internal/cache"
	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/config"
	"github.com/fjod/go_storefront/internal/contact"
	"github.com/fjod/go_storefront/internal/detail"
	h "github.com/fjod/go_storefront/internal/http"
	"github.com/fjod/go_storefront/internal/poller"
	"github.com/fjod/go_storefront/internal/publisher"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/fjod/go_storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	feedIdle      = 30 * time.Minute
	feedPruneTick = 5 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Product collection
	products, err := repository.NewProductRepository(cfg.DBPath)
	if err != nil {
		log.Fatal("failed to open product database", zap.Error(err))
	}
	defer products.Close()
	if err := products.RunMigrations(); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	log.Info("product database ready", zap.String("path", cfg.DBPath))

	// Set up MongoDB connection
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := repository.DisconnectMongoDB(mongoDB, cfg.ShutdownTimeout); err != nil {
			log.Warn("mongo disconnect failed", zap.Error(err))
		}
	}()
	carts := repository.NewMongoCartRepository(mongoDB)
	if err := carts.CreateIndexes(ctx); err != nil {
		log.Fatal("failed to create cart indexes", zap.Error(err))
	}
	images := repository.NewImageStore(mongoDB, cfg.PublicBaseURL)
	log.Info("connected to MongoDB", zap.String("database", cfg.MongoDBName))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	log.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))

	// Cart change notifications fan out across instances through redis
	local := broadcast.New()
	relay := broadcast.NewRedisRelay(redisClient, local, log)
	relayReady := make(chan struct{})
	go func() {
		if err := relay.Run(ctx, relayReady); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("cart event relay stopped", zap.Error(err))
		}
	}()
	select {
	case <-relayReady:
	case <-time.After(5 * time.Second):
		log.Warn("cart event relay not subscribed yet, other instances will miss local changes")
	}

	store := cart.NewStore(carts, cache.NewRedisCache(redisClient), relay, log)
	catalogService := catalog.NewService(products, log)
	linker := contact.NewLinker(cfg.ContactPhone)
	slot := cache.NewRedisPurchaseSlot(redisClient, cache.DefaultSlotTTL)

	checkoutEvents := publisher.NewCheckoutPublisher(log, cfg.KafkaTopic, cfg.KafkaBrokers...)
	defer checkoutEvents.Close()

	checkoutService := checkout.NewService(
		store,
		slot,
		cache.NewRedisDrafts(redisClient, cache.DefaultDraftTTL),
		checkoutEvents,
		checkout.NewStubGateway(cfg.PaymentGatewayURL),
		linker,
		log,
	)
	assembler := detail.NewAssembler(catalogService, store, slot, linker, log)

	cartCleaner := poller.NewPoller(store, log, cfg.KafkaTopic, cfg.KafkaBrokers...)
	go cartCleaner.Run(ctx)

	go pruneFeeds(ctx, catalogService.Feeds(), log)

	router := h.NewRouter(h.Handlers{
		Products: h.NewProductHandler(catalogService, assembler, cfg.RequestTimeout, log),
		Cart:     h.NewCartHandler(store, relay, linker, cfg.RequestTimeout, log),
		Checkout: h.NewCheckoutHandler(checkoutService, cfg.RequestTimeout, log),
		Images:   h.NewImageHandler(images, cfg.MaxImageSize, cfg.RequestTimeout, log),
	}, cfg.RequestTimeout, cfg.MaxRequestBodySize)

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
	stop()
	cartCleaner.Close()

	log.Info("server exited")
}

func pruneFeeds(ctx context.Context, feeds *catalog.Feeds, log *zap.Logger) {
	ticker := time.NewTicker(feedPruneTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := feeds.Prune(feedIdle); n > 0 {
				log.Debug("pruned idle catalog feeds", zap.Int("dropped", n), zap.Int("remaining", feeds.Len()))
			}
		}
	}
}
