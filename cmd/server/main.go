// Command server runs the till API. main wires configuration, storage, and
// services together and owns the process lifecycle; business logic lives in
// the internal packages.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"till/internal/audit"
	authhandler "till/internal/auth/handler"
	authservice "till/internal/auth/service"
	sessionstore "till/internal/auth/store/session"
	userstore "till/internal/auth/store/user"
	"till/internal/auth/token"
	cataloghandler "till/internal/catalog/handler"
	catalogservice "till/internal/catalog/service"
	catalogstore "till/internal/catalog/store"
	httpapi "till/internal/http"
	"till/internal/platform/config"
	"till/internal/platform/httpserver"
	"till/internal/platform/logger"
	"till/internal/platform/metrics"
	"till/internal/platform/postgres"
	"till/internal/platform/redis"
	saleshandler "till/internal/sales/handler"
	salesservice "till/internal/sales/service"
	salesstore "till/internal/sales/store"
	"till/internal/settings"
	"till/internal/stock"
	"till/internal/vision"
	id "till/pkg/domain"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()
	storeID := id.StoreID(cfg.StoreID)

	pool, err := postgres.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
		for _, schema := range []string{
			catalogstore.Schema,
			stock.Schema,
			salesstore.Schema,
			userstore.Schema,
			settings.Schema,
		} {
			if _, err := pool.Exec(ctx, schema); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
	}

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Stores fall back to their in-memory variants when no backend is
	// configured, which keeps a single-binary demo deployment possible.
	var (
		ledger        stock.Ledger
		products      catalogservice.Store
		sales         salesservice.Store
		users         authservice.UserStore
		sessions      authservice.SessionStore
		storeSettings settings.Store
	)
	if pool != nil {
		ledger = stock.NewPostgres(pool)
		products = catalogstore.NewPostgres(pool)
		sales = salesstore.NewPostgres(pool)
		users = userstore.NewPostgres(pool)
		storeSettings = settings.NewPostgres(pool, storeID)
	} else {
		ledger = stock.NewInMemory()
		products = catalogstore.NewInMemory()
		sales = salesstore.NewInMemory()
		users = userstore.NewInMemory()
		storeSettings = settings.NewInMemory(storeID)
	}
	if redisClient != nil {
		sessions = sessionstore.NewRedis(redisClient.Client)
	} else {
		sessions = sessionstore.NewInMemory()
	}

	var sink audit.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.KafkaBrokers, log)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := kafkaSink.Close(flushCtx); err != nil {
				log.Warn("audit sink close failed", "error", err)
			}
		}()
		sink = kafkaSink
	} else {
		sink = audit.NewMemorySink()
	}
	auditor := audit.NewPublisher(sink, cfg.StoreID)

	catalog, err := catalogservice.New(products, ledger,
		catalogservice.WithLogger(log),
		catalogservice.WithAuditor(auditor),
	)
	if err != nil {
		return err
	}
	salesSvc, err := salesservice.New(sales, catalog, ledger, storeID,
		salesservice.WithLogger(log),
		salesservice.WithMetrics(m),
		salesservice.WithAuditor(auditor),
	)
	if err != nil {
		return err
	}
	tokens := token.New(cfg.JWTSigningKey, "till")
	auth, err := authservice.New(users, sessions, tokens, cfg.SessionTTL,
		authservice.WithLogger(log),
		authservice.WithMetrics(m),
		authservice.WithAuditor(auditor),
	)
	if err != nil {
		return err
	}
	recognizer, err := vision.New(catalog)
	if err != nil {
		return err
	}

	router := httpapi.New(httpapi.Deps{
		Logger:   log,
		Metrics:  m,
		Tokens:   tokens,
		Sessions: sessions,
		Auth:     authhandler.New(auth, log),
		Catalog:  cataloghandler.New(catalog, log),
		Sales:    saleshandler.New(salesSvc, log),
		Settings: settings.NewHandler(storeSettings, auditor, log),
		Vision:   vision.NewHandler(recognizer, log),
	})

	apiServer := httpserver.New(cfg.Addr, router)
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := httpserver.New(cfg.MetricsAddr, metricsMux)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting till API", "addr", cfg.Addr, "store_id", cfg.StoreID)
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		log.Info("starting metrics endpoint", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return errors.Join(
			apiServer.Shutdown(shutdownCtx),
			metricsServer.Shutdown(shutdownCtx),
		)
	})
	return group.Wait()
}
