package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stepform/stepform/cmd/mainconfig"
	"github.com/stepform/stepform/internal/api/router"
	"github.com/stepform/stepform/internal/app/bootstrap"
	"github.com/stepform/stepform/internal/captcha"
	appconfig "github.com/stepform/stepform/internal/config"
	"github.com/stepform/stepform/internal/notify"
	"github.com/stepform/stepform/internal/observability/metrics"
	"github.com/stepform/stepform/internal/schema"
	"github.com/stepform/stepform/internal/security"
	"github.com/stepform/stepform/internal/submission"
	"github.com/stepform/stepform/internal/uploads"
	"github.com/stepform/stepform/pkg/logging"
)

func main() {
	// Load .env if present, real environment wins
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting stepform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Schema and settings live in Redis
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		logger.Error("redis is required for schema storage", "addr", cfg.RedisAddr)
		os.Exit(1)
	}
	schemaStore := schema.NewStore(redisClient)

	// Submissions live in Postgres, with an in-memory fallback for local runs
	pool, err := bootstrap.BuildDatabasePool(ctx, cfg)
	if err != nil {
		logger.Warn("database unavailable", "error", err)
	}
	repo := bootstrap.BuildRepository(pool, logger)

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	// Upload storage and validation
	fileStore := bootstrap.BuildFileStore(cfg, awsCfg, logger)
	policy := uploads.NewPolicy(fileStore, uploads.PolicyConfig{
		MaxSizeMB:         cfg.MaxUploadSizeMB,
		AllowedExtensions: cfg.AllowedExtensions,
		SaveTimeout:       cfg.UploadTimeout,
	}, logger)
	validator := submission.NewValidator(policy)

	// Anti-forgery token for the rendered form
	var tokenIssuer *security.FormTokenIssuer
	if cfg.FormTokenSecret != "" {
		tokenIssuer = security.NewFormTokenIssuer(cfg.FormTokenSecret, cfg.FormTokenTTL)
	} else {
		logger.Warn("FORM_TOKEN_SECRET not set, form token checks disabled")
	}

	var verifier captcha.Verifier = captcha.Disabled{}
	if cfg.CaptchaEnabled {
		verifier = captcha.NewRecaptcha(captcha.RecaptchaConfig{
			SecretKey: cfg.CaptchaSecretKey,
			VerifyURL: cfg.CaptchaVerifyURL,
			Type:      cfg.CaptchaType,
			MinScore:  cfg.CaptchaMinScore,
			Timeout:   cfg.CaptchaTimeout,
			Logger:    logger,
		})
	}

	submissionMetrics := metrics.NewSubmissionMetrics(nil)

	// Notification dispatch: SQS in production, an in-process queue for
	// development, inline sending when neither is configured.
	sender := bootstrap.BuildEmailSender(cfg, awsCfg, logger)
	var dispatcher *notify.Dispatcher
	var worker *notify.Worker
	switch {
	case cfg.UseMemoryQueue:
		queue := notify.NewMemoryQueue(64)
		dispatcher = notify.NewDispatcher(sender, queue, schemaStore, repo, submissionMetrics, logger)
		worker = notify.NewWorker(queue, dispatcher, cfg.WorkerCount, logger)
		logger.Info("notification queue configured", "mode", "memory")
	case cfg.NotifyQueueURL != "":
		queue := notify.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.NotifyQueueURL)
		dispatcher = notify.NewDispatcher(sender, queue, schemaStore, repo, submissionMetrics, logger)
		logger.Info("notification queue configured", "mode", "sqs", "queue_url", cfg.NotifyQueueURL)
	default:
		dispatcher = notify.NewDispatcher(sender, nil, schemaStore, repo, submissionMetrics, logger)
		logger.Info("notification queue configured", "mode", "inline")
	}

	var tokenVerifier submission.TokenVerifier
	var tokenMinter submission.TokenMinter
	if tokenIssuer != nil {
		tokenVerifier = tokenIssuer
		tokenMinter = tokenIssuer
	}

	pipeline := submission.NewPipeline(submission.PipelineConfig{
		Schemas:   schemaStore,
		Tokens:    tokenVerifier,
		Captcha:   verifier,
		Validator: validator,
		Repo:      repo,
		Notifier:  dispatcher,
		Metrics:   submissionMetrics,
		Logger:    logger,
	})

	formHandler := submission.NewHandler(submission.HandlerConfig{
		Pipeline: pipeline,
		Repo:     repo,
		Schemas:  schemaStore,
		Tokens:   tokenMinter,
		Notifier: dispatcher,
		Captcha: submission.CaptchaInfo{
			Enabled: cfg.CaptchaEnabled,
			Type:    cfg.CaptchaType,
			SiteKey: cfg.CaptchaSiteKey,
		},
		Logger: logger,
	})

	r := router.New(&router.Config{
		Logger:              logger,
		FormHandler:         formHandler,
		MetricsHandler:      promhttp.Handler(),
		AdminJWTSecret:      cfg.AdminJWTSecret,
		SubmitRatePerSecond: cfg.SubmitRatePerSecond,
		SubmitBurst:         cfg.SubmitBurst,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	if worker != nil {
		go func() {
			if err := worker.Run(workerCtx); err != nil && err != context.Canceled {
				logger.Error("notification worker stopped", "error", err)
			}
		}()
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	stopWorker()
	if pool != nil {
		pool.Close()
	}

	logger.Info("server stopped")
}
