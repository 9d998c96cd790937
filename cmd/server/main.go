package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"rightsledger/internal/assetledger"
	"rightsledger/internal/audit"
	auditkafka "rightsledger/internal/audit/kafka"
	auditmemory "rightsledger/internal/audit/store/memory"
	auditpostgres "rightsledger/internal/audit/store/postgres"
	auditredis "rightsledger/internal/audit/store/redisstore"
	instrhandler "rightsledger/internal/instrument/handler"
	instrmetrics "rightsledger/internal/instrument/metrics"
	instrservice "rightsledger/internal/instrument/service"
	instrstore "rightsledger/internal/instrument/store"
	"rightsledger/internal/jwttoken"
	"rightsledger/internal/platform/config"
	"rightsledger/internal/platform/httpserver"
	"rightsledger/internal/platform/logger"
	platformredis "rightsledger/internal/platform/redis"
	"rightsledger/internal/registry"
	registryhandler "rightsledger/internal/registry/handler"
	registrymetrics "rightsledger/internal/registry/metrics"
	id "rightsledger/pkg/domain"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sink, cleanup, err := buildAuditSink(ctx, cfg)
	if err != nil {
		log.Error("audit sink setup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Domain operations hand events to the worker through a channel so the
	// request path never blocks on a slow sink.
	inbox := make(chan audit.Event, 256)
	publisher := audit.NewPublisher(audit.ChannelSink(inbox))
	worker := audit.NewWorker(sink, inbox)

	var feeRecipient id.AccountID
	if cfg.FeeRecipient != "" {
		feeRecipient, err = id.ParseAccountID(cfg.FeeRecipient)
		if err != nil {
			log.Error("invalid fee recipient", "error", err)
			os.Exit(1)
		}
	}

	assets := assetledger.NewInMemory()
	instruments := instrstore.NewInMemory()
	index := registry.NewInMemoryStore()

	instrumentService := instrservice.New(instruments, assets,
		instrservice.WithLogger(log),
		instrservice.WithAuditPublisher(publisher),
		instrservice.WithMetrics(instrmetrics.New()),
		instrservice.WithTracer(instrservice.Tracer()),
	)
	registryService := registry.New(index, instruments,
		registry.WithLogger(log),
		registry.WithAuditPublisher(publisher),
		registry.WithMetrics(registrymetrics.New()),
		registry.WithFeeRecipient(feeRecipient),
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "rightsledger", "rightsledger")

	router := chi.NewRouter()
	registryhandler.New(registryService, log, jwtService).Register(router)
	instrhandler.New(instrumentService, log, jwtService).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting rightsledger", "addr", cfg.Addr)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return worker.Run(groupCtx)
	})
	group.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// buildAuditSink picks the durable sink by configuration priority:
// kafka, postgres, redis, then the in-memory store for dev runs.
func buildAuditSink(ctx context.Context, cfg config.Server) (audit.Sink, func(), error) {
	noop := func() {}

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := auditkafka.New(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, noop, err
		}
		return publisher, publisher.Close, nil
	}
	if cfg.PostgresDSN != "" {
		store, err := auditpostgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		return store, func() { _ = store.Close() }, nil
	}
	if cfg.RedisURL != "" {
		client, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return auditredis.New(client), func() { _ = client.Close() }, nil
	}
	return auditmemory.New(), noop, nil
}
