package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/angus-lau/workout-form-optimizer/internal/domain/port"
	"github.com/angus-lau/workout-form-optimizer/internal/infra/config"
	"github.com/angus-lau/workout-form-optimizer/internal/infra/email"
	"github.com/angus-lau/workout-form-optimizer/internal/infra/metrics"
	miniostorage "github.com/angus-lau/workout-form-optimizer/internal/infra/minio"
	"github.com/angus-lau/workout-form-optimizer/internal/infra/overlay"
	"github.com/angus-lau/workout-form-optimizer/internal/infra/pose"
	"github.com/angus-lau/workout-form-optimizer/internal/infra/postgres"
	"github.com/angus-lau/workout-form-optimizer/internal/infra/rabbitmq"
	"github.com/angus-lau/workout-form-optimizer/internal/infra/tracing"
	"github.com/angus-lau/workout-form-optimizer/internal/infra/video"
	"github.com/angus-lau/workout-form-optimizer/internal/usecase"
	"github.com/angus-lau/workout-form-optimizer/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting workout-form-optimizer worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if Jaeger unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	// Migrations
	err = postgres.RunMigrations(cfg.DatabaseURL, "migrations")
	if err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     cfg.MinIOEndpoint,
		AccessKey:    cfg.MinIOAccessKey,
		SecretKey:    cfg.MinIOSecretKey,
		UseSSL:       cfg.MinIOUseSSL,
		UploadBucket: cfg.MinIOUploadBucket,
		ResultBucket: cfg.MinIOResultBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Pose provider: external service when configured, canned demo pose
	// otherwise.
	var provider port.PoseProvider
	if cfg.PoseServiceURL != "" {
		provider, err = pose.NewHTTPProvider(cfg.PoseServiceURL)
		fatalOnErr(err, "connect to pose service")
	} else {
		log.Warn("POSE_SERVICE_URL not set, using fixed demo pose provider")
		provider = pose.NewFixedProvider(pose.DemoPose())
	}

	// Infra adapters
	repo := postgres.NewJobRepository(pool)
	renderer := overlay.NewRenderer(overlay.DefaultStyle())
	annotator := video.NewAnnotator(provider, renderer, video.AnnotatorConfig{
		SamplingInterval: cfg.SamplingInterval,
		FrameWidth:       cfg.FrameWidth,
		FrameHeight:      cfg.FrameHeight,
		FrameFormat:      cfg.FrameFormat,
		FallbackText:     cfg.NoPoseFeedback,
	}, log)
	zipper := video.NewZipCreator()
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)

	// Use case
	uc := usecase.NewAnalyzeVideoUseCase(
		repo, storage, annotator, zipper,
		statusPub, dlqPub, notifier,
		log,
		usecase.AnalyzeVideoConfig{
			TempDir:    cfg.TempDir,
			MaxRetries: cfg.MaxRetries,
		},
	)

	// Metrics server
	metricsSrv := metrics.StartServer(cfg.MetricsPort, log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQAnalysisQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		StatusQueue: cfg.RabbitMQStatusQueue,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("workout-form-optimizer started, consuming messages")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	_ = metricsSrv.Shutdown(shutdownCtx)
	_ = consumer.Close()

	log.Info("worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal(msg, zap.Error(err))
	}
}
