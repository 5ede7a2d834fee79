// Command server runs the case lifecycle API: HTTP transport, Postgres-backed
// stores with an in-memory fallback for development, a Redis officer cache,
// and the Kafka audit relay. Wiring lives here; behavior lives in internal.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"casefile/internal/audit"
	casehandler "casefile/internal/cases/handler"
	"casefile/internal/cases/service"
	casestore "casefile/internal/cases/store"
	httpapi "casefile/internal/http"
	"casefile/internal/jwttoken"
	officercache "casefile/internal/officers/cache"
	officerstore "casefile/internal/officers/store"
	"casefile/internal/platform/config"
	"casefile/internal/platform/httpserver"
	"casefile/internal/platform/logger"
	"casefile/internal/platform/metrics"
	"casefile/internal/platform/postgres"
	platformredis "casefile/internal/platform/redis"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		cases    casestore.Store
		roster   officerstore.Store
		auditLog audit.OutboxStore
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.OpenPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		db, err := postgres.OpenDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		caseStore := casestore.NewPostgres(pool)
		officerStore := officerstore.NewPostgres(pool)
		auditStore := audit.NewPostgres(db)
		for _, ensure := range []func(context.Context) error{
			caseStore.EnsureSchema, officerStore.EnsureSchema, auditStore.EnsureSchema,
		} {
			if err := ensure(ctx); err != nil {
				return err
			}
		}
		cases, roster, auditLog = caseStore, officerStore, auditStore
	} else {
		log.Warn("DATABASE_URL not set; using in-memory stores")
		cases, roster, auditLog = casestore.NewMemory(), officerstore.NewMemory(), audit.NewMemory()
	}

	var directory service.OfficerDirectory = roster
	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		directory = officercache.New(roster, rdb.Client,
			officercache.WithTTL(cfg.Redis.CacheTTL),
			officercache.WithLogger(log),
		)
		log.Info("officer cache enabled", "ttl", cfg.Redis.CacheTTL)
	}

	publisherOpts := []audit.PublisherOption{audit.WithLogger(log)}
	if cfg.AuditBuffer > 0 {
		publisherOpts = append(publisherOpts, audit.WithAsyncBuffer(cfg.AuditBuffer))
	}
	publisher := audit.NewPublisher(auditLog, publisherOpts...)
	defer publisher.Close()

	engine := service.New(cases, directory,
		service.WithLogger(log),
		service.WithAuditPublisher(publisher),
		service.WithMetrics(m),
	)

	tokens := jwttoken.New(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	router := httpapi.NewRouter(httpapi.Options{
		Cases:          casehandler.New(engine, log),
		TokenValidator: tokens,
		Logger:         log,
		Metrics:        m,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if len(cfg.Kafka.Brokers) > 0 {
		broker, err := audit.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer broker.Close()

		relay := audit.NewRelay(auditLog, broker,
			audit.WithRelayInterval(cfg.Kafka.RelayInterval),
			audit.WithRelayBatchSize(cfg.Kafka.RelayBatch),
			audit.WithRelayLogger(log),
		)
		g.Go(func() error {
			log.Info("audit relay started", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
			err := relay.Run(gctx)
			if errors.Is(err, context.Canceled) {
				// Final drain so events recorded during shutdown still ship.
				return relay.DrainOnce(context.Background())
			}
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
