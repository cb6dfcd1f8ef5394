package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/adepetun22/shopapp/internal/health"
	"github.com/adepetun22/shopapp/internal/messaging/kafka"
	"github.com/adepetun22/shopapp/internal/service/catalog"
	"github.com/adepetun22/shopapp/internal/service/idempotency"
	"github.com/adepetun22/shopapp/internal/service/outbox"
	"github.com/adepetun22/shopapp/internal/service/shop"
	transport "github.com/adepetun22/shopapp/internal/transport/http"
	"github.com/adepetun22/shopapp/internal/version"
)

// Run собирает зависимости и запускает приложение: HTTP API, сервер
// метрик, outbox worker и фоновую чистку idempotency-ключей.
// Блокируется до отмены ctx или фатальной ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if deps.closeFn != nil {
		defer func() {
			if err := deps.closeFn(); err != nil {
				logger.WithError(err).Warn("failed to close storage")
			}
		}()
	}

	// Kafka опционален: без брокеров события копятся в outbox
	// и будут опубликованы после появления publisher-а.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	shopSvc := shop.NewService(
		deps.products, deps.users, deps.orders, deps.reviews, deps.outboxRepo,
		logger.WithField("component", "shop"),
	)
	catalogSvc := catalog.NewService(deps.products, logger.WithField("component", "catalog"))

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	workersDone := startWorkers(workerCtx, cfg, deps, kafkaProducer, logger)

	tokens := transport.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	handler := transport.NewHandler(
		shopSvc, catalogSvc, deps.users, deps.idempotencyRepo, tokens,
		logger.WithField("component", "http"),
	)
	apiServer := transport.NewServer(cfg.HTTPAddr, handler, logger.WithField("component", "http"))

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("outbox", healthcheck.NewOutboxChecker(deps.outboxRepo, cfg.OutboxMaxPendingAge))
	if deps.storageChecker != nil {
		healthHandler.RegisterChecker("storage", deps.storageChecker)
	}
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	err = apiServer.Run(ctx)

	stopWorkers()
	select {
	case <-workersDone:
	case <-time.After(5 * time.Second):
		logger.Warn("background workers did not stop in time")
	}
	shutdownHTTP(metricsSrv, logger)

	if err != nil {
		return err
	}
	return ctx.Err()
}

// startWorkers запускает фоновые процессы: публикацию outbox и чистку
// истёкших idempotency-ключей. Возвращённый канал закрывается, когда
// все воркеры остановились.
func startWorkers(ctx context.Context, cfg Config, deps runtimeDependencies, producer *kafka.Producer, logger *log.Entry) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		cleanupDone := make(chan struct{})
		go func() {
			defer close(cleanupDone)
			worker := idempotency.NewCleanupWorker(
				deps.idempotencyRepo,
				idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup")),
				idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
				idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
			)
			worker.Run(ctx)
		}()

		if producer != nil {
			worker := outbox.NewWorker(
				deps.outboxRepo,
				kafka.NewOutboxPublisher(producer, kafka.TopicOrderEvents),
				outbox.WithLogger(logger.WithField("component", "outbox-worker")),
				outbox.WithDLQPublisher(kafka.NewDLQPublisher(producer)),
				outbox.WithPollInterval(cfg.OutboxPollInterval),
				outbox.WithBatchSize(cfg.OutboxBatchSize),
				outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
				outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
			)
			worker.Run(ctx)
		} else {
			logger.Info("kafka is not configured, outbox worker is disabled")
			<-ctx.Done()
		}

		<-cleanupDone
	}()

	return done
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus
// и health-эндпоинты.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
