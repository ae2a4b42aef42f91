package submission

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stepform/stepform/internal/captcha"
	"github.com/stepform/stepform/internal/observability/metrics"
	"github.com/stepform/stepform/internal/schema"
	"github.com/stepform/stepform/pkg/logging"
)

// Meta carries the request-scoped context of a submission: the anti-abuse
// tokens and the client identity recorded alongside the row.
type Meta struct {
	FormToken    string
	CaptchaToken string
	IPAddress    string
	UserAgent    string
}

// SchemaSource provides the current form schema and settings.
type SchemaSource interface {
	Get(ctx context.Context) (schema.Schema, error)
	GetSettings(ctx context.Context) (schema.Settings, error)
}

// TokenVerifier checks the form token minted when the form was rendered.
type TokenVerifier interface {
	Verify(token string) error
}

// Notifier hands an accepted submission to the notification layer.
type Notifier interface {
	Dispatch(ctx context.Context, sub *Submission) error
}

// Pipeline runs a raw submission through token check, captcha, validation,
// persistence, and notification dispatch, in that order.
type Pipeline struct {
	schemas   SchemaSource
	tokens    TokenVerifier
	captcha   captcha.Verifier
	validator *Validator
	repo      Repository
	notifier  Notifier
	metrics   *metrics.SubmissionMetrics
	tracer    trace.Tracer
	logger    *logging.Logger
}

// PipelineConfig wires a Pipeline. Tokens, Captcha, Notifier, and Metrics are
// optional; the corresponding stage becomes a no-op when absent.
type PipelineConfig struct {
	Schemas   SchemaSource
	Tokens    TokenVerifier
	Captcha   captcha.Verifier
	Validator *Validator
	Repo      Repository
	Notifier  Notifier
	Metrics   *metrics.SubmissionMetrics
	Logger    *logging.Logger
}

// NewPipeline creates the submission pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Schemas == nil {
		panic("submission: schema source required")
	}
	if cfg.Validator == nil {
		panic("submission: validator required")
	}
	if cfg.Repo == nil {
		panic("submission: repository required")
	}
	if cfg.Captcha == nil {
		cfg.Captcha = captcha.Disabled{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Pipeline{
		schemas:   cfg.Schemas,
		tokens:    cfg.Tokens,
		captcha:   cfg.Captcha,
		validator: cfg.Validator,
		repo:      cfg.Repo,
		notifier:  cfg.Notifier,
		metrics:   cfg.Metrics,
		tracer:    otel.Tracer("stepform.internal.submission.pipeline"),
		logger:    cfg.Logger,
	}
}

// Submit processes one submission end to end. On success it returns the new
// submission id and the configured success message. Validation problems come
// back as *ValidationError; anything else is an opaque server failure.
func (p *Pipeline) Submit(ctx context.Context, raw *RawSubmission, meta Meta) (string, string, error) {
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "submission.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("stepform.ip", meta.IPAddress),
	)

	if p.tokens != nil {
		if err := p.tokens.Verify(meta.FormToken); err != nil {
			p.metrics.ObserveSubmission("rejected")
			return "", "", &ValidationError{Reason: "form_token", Message: "Security check failed"}
		}
	}

	if err := p.captcha.Verify(ctx, meta.CaptchaToken, meta.IPAddress); err != nil {
		p.metrics.ObserveSubmission("rejected")
		return "", "", &ValidationError{Reason: "captcha", Message: "CAPTCHA verification failed. Please try again."}
	}

	sch, err := p.schemas.Get(ctx)
	if err != nil {
		p.logger.Error("failed to load schema", "error", err)
		p.metrics.ObserveSubmission("error")
		return "", "", ErrSaveFailed
	}

	sub, err := p.validator.Validate(ctx, sch, raw)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			p.metrics.ObserveSubmission("rejected")
			p.metrics.ObserveValidationFailure(verr.Reason)
			return "", "", verr
		}
		p.metrics.ObserveSubmission("error")
		return "", "", err
	}

	sub.IPAddress = meta.IPAddress
	sub.UserAgent = meta.UserAgent

	if err := p.repo.Create(ctx, sub); err != nil {
		span.RecordError(err)
		p.logger.Error("failed to persist submission", "error", err)
		p.metrics.ObserveSubmission("error")
		return "", "", ErrSaveFailed
	}
	span.SetAttributes(attribute.String("stepform.submission_id", sub.ID))

	if p.notifier != nil {
		if err := p.notifier.Dispatch(ctx, sub); err != nil {
			// A persisted submission is a success regardless of email fate.
			p.logger.Error("notification dispatch failed", "submission_id", sub.ID, "error", err)
		}
	}

	settings, err := p.schemas.GetSettings(ctx)
	if err != nil {
		p.logger.Error("failed to load settings", "error", err)
		settings = schema.DefaultSettings()
	}
	message := settings.SuccessMessage
	if message == "" {
		message = schema.DefaultSettings().SuccessMessage
	}

	p.metrics.ObserveSubmission("success")
	p.metrics.ObserveSubmitDuration(time.Since(start).Seconds())
	p.logger.Info("submission accepted", "submission_id", sub.ID, "ip", meta.IPAddress)

	return sub.ID, message, nil
}
