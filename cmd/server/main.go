package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"popreg/internal/auth"
	"popreg/internal/auth/store/session"
	"popreg/internal/cache"
	"popreg/internal/kv"
	"popreg/internal/platform/config"
	"popreg/internal/platform/httpserver"
	"popreg/internal/platform/logger"
	"popreg/internal/platform/metrics"
	platformredis "popreg/internal/platform/redis"
	"popreg/internal/ratelimit"
	"popreg/internal/resident"
	"popreg/internal/search"
	httptransport "popreg/internal/transport/http"
	"popreg/internal/user"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	rdb, err := platformredis.New(cfg.RedisURL, cfg.Redis)
	if err != nil {
		log.Error("connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	store := kv.NewRedisStore(rdb.Client)

	userStore, residentStore, closeDB, err := buildStores(cfg)
	if err != nil {
		log.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	var events search.Publisher = search.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := search.NewKafkaPublisher(cfg.KafkaBrokers,
			search.WithKafkaLogger(log),
			search.WithKafkaMetrics(m),
		)
		if err != nil {
			log.Error("connect to kafka", "error", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			kp.Close(ctx)
		}()
		events = kp
	} else {
		log.Warn("no kafka brokers configured, change events disabled")
	}

	userCache := cache.New[user.User]("user", store, cfg.CacheTTL,
		cache.WithLogger[user.User](log), cache.WithMetrics[user.User](m))
	residentCache := cache.New[resident.Resident]("resident", store, cfg.CacheTTL,
		cache.WithLogger[resident.Resident](log), cache.WithMetrics[resident.Resident](m))

	users := user.NewService(userStore, userCache, events, user.WithLogger(log))
	residents := resident.NewService(residentStore, residentCache, events, resident.WithLogger(log))

	sessions := session.New(store, cfg.SessionTTL)
	lockout := auth.NewLockout(store, cfg.LockThreshold, cfg.LockTTL)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	authSvc := auth.NewService(users, sessions, lockout, issuer,
		auth.WithLogger(log), auth.WithMetrics(m))

	limiter := ratelimit.New(store, cfg.RateLimit, cfg.RateWindow,
		ratelimit.WithLogger(log), ratelimit.WithMetrics(m))

	handler := httptransport.NewHandler(authSvc, users, residents, log)
	router := httptransport.NewRouter(handler, limiter)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting popreg server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// buildStores selects the system-of-record backend. Without a DSN the server
// runs on in-memory stores, which is enough for local development.
func buildStores(cfg config.Config) (user.Store, resident.Store, func(), error) {
	if cfg.PostgresDSN == "" {
		return user.NewInMemoryStore(), resident.NewInMemoryStore(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return user.NewPostgres(db), resident.NewPostgres(db), func() { db.Close() }, nil
}
