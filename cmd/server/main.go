package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/cache"
	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/logger"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/repository"
	"github.com/iliyamo/hotel-reservation/internal/router"
	"github.com/iliyamo/hotel-reservation/internal/service"
	"github.com/iliyamo/hotel-reservation/internal/storage/memory"
)

// backend is the storage selected by STORAGE_DRIVER.
type backend struct {
	store  service.Store
	outbox service.OutboxStore
	users  handler.UserStore
	tokens handler.TokenStore
	health func(ctx context.Context) error
	close  func() error
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("could not read .env")
	}

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("storage init failed")
	}
	defer be.close()

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable: caching, rate limiting and idempotency keys disabled")
	} else {
		defer rdb.Close()
	}

	var publisher service.EventPublisher = service.LogPublisher{Log: log}
	if cfg.RabbitURL != "" {
		amqpPub := service.NewAMQPPublisher(cfg.RabbitURL, log)
		defer amqpPub.Close()
		publisher = amqpPub
	}
	relay := service.NewRelay(be.outbox, publisher, cfg.OutboxPollInterval, log)

	svc, err := service.NewBookingService(be.store, service.Config{
		TaxRate:  cfg.TaxRate,
		Location: cfg.Location,
		Policy:   cfg.CancellationPolicy(),
		OnCommit: relay.Notify,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("booking service init failed")
	}

	go relay.Run(ctx)

	if cfg.RabbitURL != "" {
		consumer := queue.NewConsumer(cfg.RabbitURL, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("audit consumer stopped")
			}
		}()
	}

	e := newServer(cfg, log, svc, be, rdb)

	go func() {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "storage": cfg.StorageDriver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	if _, err := relay.FlushOnce(shutdownCtx); err != nil {
		log.WithError(err).Warn("outbox not fully flushed")
	}
	log.Info("stopped")
}

func openBackend(ctx context.Context, cfg config.Config, log *logrus.Logger) (*backend, error) {
	if cfg.StorageDriver == config.StorageMemory {
		db := memory.New(memory.Config{Log: log})
		if err := memory.Seed(ctx, db); err != nil {
			return nil, err
		}
		log.Warn("using in-memory storage; data is lost on restart")
		return &backend{
			store:  db,
			outbox: db,
			users:  db,
			tokens: db,
			close:  func() error { return nil },
		}, nil
	}

	sqlDB, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	store := repository.NewStore(sqlDB, cfg.Location, log)
	return &backend{
		store:  store,
		outbox: store,
		users:  repository.NewUserRepo(sqlDB),
		tokens: repository.NewTokenRepo(sqlDB),
		health: sqlDB.PingContext,
		close:  sqlDB.Close,
	}, nil
}

func newServer(cfg config.Config, log *logrus.Logger, svc *service.BookingService, be *backend, rdb *redis.Client) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(middleware.RequestLog(log))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))

	var idem *cache.Idempotency
	if rdb != nil {
		idem = cache.NewIdempotency(rdb, cfg.IdempotencyTTL)
	}

	bookings := handler.NewBookingHandler(svc, idem, log)

	router.RegisterRoutes(e, be.health)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, be.users, be.tokens, log), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewCatalogHandler(svc, log), bookings, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterBookings(e, bookings, cfg.JWTSecret)
	router.RegisterStaff(e, handler.NewStaffHandler(svc, log), cfg.JWTSecret)

	return e
}
