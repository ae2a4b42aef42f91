package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"

	"github.com/stepform/stepform/cmd/mainconfig"
	"github.com/stepform/stepform/internal/app/bootstrap"
	appconfig "github.com/stepform/stepform/internal/config"
	"github.com/stepform/stepform/internal/notify"
	"github.com/stepform/stepform/internal/schema"
	"github.com/stepform/stepform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.UseMemoryQueue {
		logger.Error("notify-worker requires an SQS queue; the memory queue only exists inside the API process")
		os.Exit(1)
	}
	if cfg.NotifyQueueURL == "" {
		logger.Error("NOTIFY_QUEUE_URL is not set")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		logger.Error("redis is required for schema storage", "addr", cfg.RedisAddr)
		os.Exit(1)
	}
	schemaStore := schema.NewStore(redisClient)

	pool, err := bootstrap.BuildDatabasePool(ctx, cfg)
	if err != nil {
		logger.Error("database is required to load submissions", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	repo := bootstrap.BuildRepository(pool, logger)

	awsConfig, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	queue := notify.NewSQSQueue(sqs.NewFromConfig(awsConfig), cfg.NotifyQueueURL)
	sender := bootstrap.BuildEmailSender(cfg, awsConfig, logger)
	dispatcher := notify.NewDispatcher(sender, queue, schemaStore, repo, nil, logger)
	worker := notify.NewWorker(queue, dispatcher, cfg.WorkerCount, logger)

	done := make(chan error, 1)
	go func() {
		done <- worker.Run(ctx)
	}()

	logger.Info("notify worker started",
		"queue_url", cfg.NotifyQueueURL,
		"concurrency", cfg.WorkerCount,
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down notify worker...")
	cancel()

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("notify worker exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("notify worker stopped")
}
