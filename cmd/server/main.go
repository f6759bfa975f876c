package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"nurture/internal/analysis/gateway/openai"
	analysismetrics "nurture/internal/analysis/metrics"
	analysisservice "nurture/internal/analysis/service"
	analysisstore "nurture/internal/analysis/store/analysis"
	"nurture/internal/outbox"
	"nurture/internal/platform/config"
	"nurture/internal/platform/httpserver"
	"nurture/internal/platform/logger"
	"nurture/internal/platform/postgres"
	platformredis "nurture/internal/platform/redis"
	ratelimitmodels "nurture/internal/ratelimit/models"
	ratelimitservice "nurture/internal/ratelimit/service"
	"nurture/internal/ratelimit/store/counter"
	httptransport "nurture/internal/transport/http"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	limiter, err := ratelimitservice.New(
		counter.NewRedis(redisClient.Client),
		ratelimitmodels.Limits{Daily: cfg.RateLimits.Daily, Hourly: cfg.RateLimits.Hourly},
		ratelimitservice.WithLogger(log),
	)
	if err != nil {
		log.Error("limiter setup failed", "error", err)
		os.Exit(1)
	}

	gateway, err := openai.NewFromAPIKey(cfg.Reasoning.APIKey, openai.Config{
		Model:         cfg.Reasoning.Model,
		MaxTokens:     cfg.Reasoning.MaxTokens,
		Temperature:   cfg.Reasoning.Temperature,
		Timeout:       cfg.Reasoning.Timeout,
		RetryAttempts: cfg.Reasoning.RetryAttempts,
	}, openai.WithLogger(log))
	if err != nil {
		log.Error("gateway setup failed", "error", err)
		os.Exit(1)
	}

	outboxStore := outbox.NewPostgres(db)

	opts := []analysisservice.Option{
		analysisservice.WithLogger(log),
		analysisservice.WithMetrics(analysismetrics.New()),
		analysisservice.WithEventSink(outbox.NewSink(outboxStore)),
	}
	orchestrator, err := analysisservice.New(analysisstore.NewPostgres(db), gateway, limiter, opts...)
	if err != nil {
		log.Error("orchestrator setup failed", "error", err)
		os.Exit(1)
	}

	handler := httptransport.New(orchestrator, limiter, log)
	router := httptransport.NewRouter(handler,
		httptransport.HealthCheck{Name: "postgres", Check: db.PingContext},
		httptransport.HealthCheck{Name: "redis", Check: redisClient.Health},
	)
	srv := httpserver.New(cfg.Server.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := outbox.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka setup failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()

		dispatcher, err := outbox.NewDispatcher(outboxStore, publisher, outbox.WithLogger(log))
		if err != nil {
			log.Error("dispatcher setup failed", "error", err)
			os.Exit(1)
		}
		group.Go(func() error {
			err := dispatcher.Run(groupCtx)
			if err == context.Canceled {
				return nil
			}
			return err
		})
	}

	group.Go(func() error {
		log.Info("starting server", "addr", cfg.Server.Addr)
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
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
