package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RaikyD/order-lifecycle-service/internal/application"
	"github.com/RaikyD/order-lifecycle-service/internal/cache"
	"github.com/RaikyD/order-lifecycle-service/internal/config"
	"github.com/RaikyD/order-lifecycle-service/internal/kafka"
	"github.com/RaikyD/order-lifecycle-service/internal/logger"
	"github.com/RaikyD/order-lifecycle-service/internal/migrate"
	"github.com/RaikyD/order-lifecycle-service/internal/presentation"
	"github.com/RaikyD/order-lifecycle-service/internal/productclient"
	"github.com/RaikyD/order-lifecycle-service/internal/repository"
)

func main() {
	cfg, err := config.LoadConfig()
	logger.Init(cfg.App.Env)
	defer func() { _ = logger.Sync() }()
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("store init failed", "driver", cfg.Store.Driver, "err", err)
		os.Exit(1)
	}
	defer closeStore()
	logger.Info("store ready", "driver", cfg.Store.Driver)

	prod := kafka.NewProducer(cfg.Kafka.Brokers)
	defer prod.Close()

	var products application.ProductLookup = productclient.New(cfg.Product.BaseURL, cfg.Product.Timeout)
	if cfg.Redis.Addr != "" {
		rc := cache.NewRedisCache(cfg.Redis.Addr, cfg.App.Name)
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, product cache will fall through", "addr", cfg.Redis.Addr, "err", err)
		}
		products = productclient.NewCached(products, rc, cfg.Redis.CacheTTL)
	}

	svc := application.NewOrdersService(store, prod, products,
		application.WithLookupTimeout(cfg.Product.Timeout),
		application.WithPaymentWindow(cfg.Order.PaymentWindow),
	)

	dispatcher := kafka.NewDispatcher(svc)
	if _, err := kafka.StartConsumer(ctx, dispatcher, prod, kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID,
		Topics:  dispatcher.Topics(),
	}); err != nil {
		logger.Error("kafka consumer start failed", "err", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	presentation.NewOrdersHandler(svc).Register(r)

	srv := &http.Server{Addr: cfg.HTTP.Address(), Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("starting http", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server crashed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", "err", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (application.OrderStore, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		client, err := repository.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoRepository(client.Database(cfg.Mongo.Database), cfg.Mongo.Collection)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil

	case config.StorePostgres:
		if cfg.Postgres.Migrate {
			if err := migrate.Up(ctx, cfg.Postgres.DSN); err != nil {
				return nil, nil, err
			}
		}
		pcfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Postgres.MaxConns > 0 {
			pcfg.MaxConns = int32(cfg.Postgres.MaxConns)
		}
		pool, err := pgxpool.NewWithConfig(ctx, pcfg)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewOrderRepository(pool), pool.Close, nil

	default:
		return repository.NewMemoryRepository(), func() {}, nil
	}
}
