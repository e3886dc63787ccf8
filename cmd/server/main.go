package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/internal/auth"
	"storefront-service/internal/config"
	api "storefront-service/internal/controllers/http"
	"storefront-service/internal/events"
	"storefront-service/internal/infra"
	"storefront-service/internal/infra/cache"
	"storefront-service/internal/infra/kafka"
	mmysql "storefront-service/internal/infra/mysql"
	"storefront-service/internal/infra/rabbitmq"
	"storefront-service/internal/metrics"
	mysqlrepo "storefront-service/internal/repository/mysql"
	"storefront-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	db, err := mmysql.NewMySQL(cfg.MySQL)
	if err != nil {
		logger.Fatal("db: connect", zap.Error(err))
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	tx := mysqlrepo.NewTxManager(db)
	orderRepo := mysqlrepo.NewOrderRepository(db)
	cartRepo := mysqlrepo.NewCartRepository(db)
	productRepo := mysqlrepo.NewProductRepository(db)
	categoryRepo := mysqlrepo.NewCategoryRepository(db)
	reviewRepo := mysqlrepo.NewReviewRepository(db)
	userRepo := mysqlrepo.NewUserRepository(db)
	ledger := mysqlrepo.NewInventoryLedger(db)

	var (
		locker       cache.Locker       = cache.NewMemoryLocker()
		productCache cache.ProductCache = cache.NopProductCache{}
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			DB:           0,
			PoolSize:     200,
			MinIdleConns: 20,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("redis: ping", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		locker = cache.NewRedisLocker(redisClient, "checkout:", cfg.CheckoutLock)
		productCache = cache.NewRedisProductCache(redisClient, cfg.ProductTTL)
	} else {
		logger.Warn("REDIS_ADDR not set, using in-process checkout lock and no product cache")
	}

	hub := events.NewHub(64)
	targets := []events.Publisher{events.PublicFeed(hub)}
	switch cfg.EventBroker {
	case "amqp":
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.Exchange, logger)
		if err != nil {
			logger.Fatal("failed to init publisher", zap.Error(err))
		}
		defer publisher.Close()
		targets = append(targets, publisher)
	case "kafka":
		publisher, err := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logger.Fatal("failed to init publisher", zap.Error(err))
		}
		defer publisher.Close()
		targets = append(targets, publisher)
	}
	notifier := services.NewNotifier(events.NewFanout(logger, targets...), cfg.NotifyTimeout, logger)

	var gateway infra.PaymentGateway = infra.StubGateway{}
	if cfg.PaymentURL != "" {
		gateway = infra.NewPaymentClient(cfg.PaymentURL, cfg.PaymentAPIKey, cfg.PaymentTimeout)
	} else {
		logger.Warn("PAYMENT_BASE_URL not set, using stub payment gateway")
	}
	var images infra.ImageUploader
	if cfg.ImageUploadURL != "" {
		images = infra.NewImageClient(cfg.ImageUploadURL, 30*time.Second)
	}

	checkout, err := services.NewCheckoutService(services.CheckoutDeps{
		Tx:             tx,
		Carts:          cartRepo,
		Orders:         orderRepo,
		Ledger:         ledger,
		Gateway:        gateway,
		Locker:         locker,
		Notifier:       notifier,
		Metrics:        metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer),
		Log:            logger,
		PaymentTimeout: cfg.PaymentTimeout,
		Currency:       cfg.Currency,
	})
	if err != nil {
		logger.Fatal("checkout service", zap.Error(err))
	}
	products := services.NewProductService(productRepo, categoryRepo, productCache, images, notifier, logger)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reconciler := services.NewReconciler(checkout, orderRepo, cfg.PendingOrderTTL, cfg.ReconcileEvery, logger)
	go reconciler.Run(ctx)

	if cfg.RedisAddr != "" {
		go func() {
			list, err := products.List(ctx, 0)
			if err != nil {
				logger.Warn("failed to warm up cache", zap.Error(err))
				return
			}
			ids := make([]uint64, 0, 50)
			for i := 0; i < len(list) && i < cap(ids); i++ {
				ids = append(ids, list[i].ID)
			}
			if err := products.WarmupCache(ctx, ids); err != nil {
				logger.Warn("failed to warm up cache", zap.Error(err))
			}
		}()
	}

	handler := api.NewHandler(api.Deps{
		Checkout:      checkout,
		Carts:         services.NewCartService(cartRepo, productRepo),
		Products:      products,
		Categories:    services.NewCategoryService(categoryRepo, notifier),
		Reviews:       services.NewReviewService(reviewRepo, orderRepo, productRepo),
		Orders:        services.NewOrderService(tx, orderRepo, ledger, logger),
		Auth:          services.NewAuthService(userRepo, tokens, logger),
		Tokens:        tokens,
		Hub:           hub,
		Metrics:       metrics.NewServerMetrics(prometheus.DefaultRegisterer),
		Log:           logger,
		CallbackToken: cfg.CallbackToken,
		Ping:          sqlDB.PingContext,
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("starting storefront service", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server run", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	notifier.Wait()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
