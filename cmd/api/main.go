package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/salesdesk/internal/auth"
	"github.com/geocoder89/salesdesk/internal/cache"
	"github.com/geocoder89/salesdesk/internal/config"
	"github.com/geocoder89/salesdesk/internal/db"
	httpx "github.com/geocoder89/salesdesk/internal/http"
	"github.com/geocoder89/salesdesk/internal/http/handlers"
	"github.com/geocoder89/salesdesk/internal/observability"
	"github.com/geocoder89/salesdesk/internal/repo/cached"
	"github.com/geocoder89/salesdesk/internal/repo/memory"
	"github.com/geocoder89/salesdesk/internal/repo/postgres"
	"github.com/geocoder89/salesdesk/internal/salesperson"
	"github.com/geocoder89/salesdesk/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const serviceName = "salesdesk"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: serviceName,
		Env:         cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		SampleRatio: cfg.TraceSampleRate,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	ready := map[string]handlers.Pinger{}

	var store cached.Store
	switch cfg.Store {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		store = memory.NewUsersRepo()
	default:
		pool, err := db.NewPool(ctx, db.PoolConfig{
			URL:             cfg.DBURL,
			MaxConns:        int32(cfg.DBMaxConns),
			MaxConnIdleTime: 5 * time.Minute,
		})
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		store = postgres.NewUsersRepo(pool, prom)
	}
	ready["store"] = store.Ping

	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   serviceName + ":",
			TTL:      cfg.CacheTTL,
		})
		defer rc.Close()

		if err := rc.Ping(ctx); err != nil {
			log.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "err", err)
		}
		ready["cache"] = rc.Ping
		store = cached.NewUsersRepo(store, rc).WithObserver(prom)
	} else if cfg.CacheTTL > 0 {
		store = cached.NewUsersRepo(store, cache.New(cfg.CacheTTL)).WithObserver(prom)
	}

	cipher, err := security.NewCipher(cfg.EncryptionKey)
	if err != nil {
		return err
	}
	policy := security.NewPasswordPolicy(security.NewHasher(cfg.BcryptCost), cipher).WithObserver(prom)

	seedCtx, cancelSeed := context.WithTimeout(ctx, 10*time.Second)
	err = db.EnsureAdminUser(seedCtx, store, policy, cfg)
	cancelSeed()
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	router := httpx.NewRouter(httpx.Deps{
		Env:                cfg.Env,
		ServiceName:        serviceName,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:       cfg.MaxBodyBytes,
		Auth:               auth.NewAuthenticator(store, policy, tokens).WithObserver(prom),
		Tokens:             tokens,
		Salespersons:       salesperson.NewService(store, policy),
		Ready:              ready,
		Prom:               prom,
		Gatherer:           reg,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	log.Info("server shutting down")

	sctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return err
	}

	log.Info("shutdown complete")
	return nil
}
