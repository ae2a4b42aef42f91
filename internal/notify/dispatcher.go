package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/stepform/stepform/internal/observability/metrics"
	"github.com/stepform/stepform/internal/schema"
	"github.com/stepform/stepform/internal/submission"
	"github.com/stepform/stepform/pkg/logging"
)

// SchemaSource provides the current form schema and notification settings.
type SchemaSource interface {
	Get(ctx context.Context) (schema.Schema, error)
	GetSettings(ctx context.Context) (schema.Settings, error)
}

// SubmissionSource loads persisted submissions for background delivery.
type SubmissionSource interface {
	GetByID(ctx context.Context, id string) (*submission.Submission, error)
}

// Dispatcher routes the admin notification and user confirmation for a
// submission, inline or through the task queue depending on settings.
type Dispatcher struct {
	sender  EmailSender
	queue   queueClient
	schemas SchemaSource
	subs    SubmissionSource
	metrics *metrics.SubmissionMetrics
	logger  *logging.Logger
}

// NewDispatcher creates a dispatcher. queue may be nil, which forces inline
// sending regardless of the background setting; metrics may be nil.
func NewDispatcher(sender EmailSender, queue queueClient, schemas SchemaSource, subs SubmissionSource, m *metrics.SubmissionMetrics, logger *logging.Logger) *Dispatcher {
	if sender == nil {
		panic("notify: email sender required")
	}
	if schemas == nil {
		panic("notify: schema source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		sender:  sender,
		queue:   queue,
		schemas: schemas,
		subs:    subs,
		metrics: m,
		logger:  logger,
	}
}

// Dispatch sends or enqueues both emails for the submission. Delivery
// problems are logged, never returned: a submission that persisted is a
// success no matter what happens to its emails.
func (d *Dispatcher) Dispatch(ctx context.Context, sub *submission.Submission) error {
	settings, err := d.schemas.GetSettings(ctx)
	if err != nil {
		d.logger.Error("failed to load settings, using defaults", "error", err)
		settings = schema.DefaultSettings()
	}

	if settings.BackgroundEmail && d.queue != nil {
		d.enqueue(ctx, sub, taskAdminEmail)
		d.enqueue(ctx, sub, taskUserEmail)
		return nil
	}

	if err := d.sendAdmin(ctx, sub, settings); err != nil {
		d.logger.Error("admin notification failed", "submission_id", sub.ID, "error", err)
	}
	if err := d.sendUser(ctx, sub, settings); err != nil {
		d.logger.Error("user confirmation failed", "submission_id", sub.ID, "error", err)
	}
	return nil
}

// enqueue pushes one delivery task; on queue failure it falls back to an
// inline send so the email is not lost.
func (d *Dispatcher) enqueue(ctx context.Context, sub *submission.Submission, kind taskKind) {
	payload, body, err := encodeTask(taskPayload{Kind: kind, SubmissionID: sub.ID})
	if err != nil {
		d.logger.Error("failed to encode notification task", "submission_id", sub.ID, "kind", kind, "error", err)
		return
	}
	if err := d.queue.Send(ctx, body); err != nil {
		d.logger.Error("failed to enqueue notification task, sending inline", "task_id", payload.ID, "kind", kind, "error", err)
		if derr := d.deliver(ctx, payload); derr != nil {
			d.logger.Error("inline fallback send failed", "task_id", payload.ID, "kind", kind, "error", derr)
		}
		return
	}
	d.logger.Info("notification task enqueued", "task_id", payload.ID, "kind", kind, "submission_id", sub.ID)
}

// deliver executes one queued task end to end.
func (d *Dispatcher) deliver(ctx context.Context, payload taskPayload) error {
	if d.subs == nil {
		return fmt.Errorf("notify: no submission source configured")
	}
	sub, err := d.subs.GetByID(ctx, payload.SubmissionID)
	if err != nil {
		return fmt.Errorf("notify: load submission %s: %w", payload.SubmissionID, err)
	}

	settings, err := d.schemas.GetSettings(ctx)
	if err != nil {
		d.logger.Error("failed to load settings, using defaults", "error", err)
		settings = schema.DefaultSettings()
	}

	switch payload.Kind {
	case taskAdminEmail:
		return d.sendAdmin(ctx, sub, settings)
	case taskUserEmail:
		return d.sendUser(ctx, sub, settings)
	default:
		return fmt.Errorf("notify: unknown task kind %q", payload.Kind)
	}
}

func (d *Dispatcher) sendAdmin(ctx context.Context, sub *submission.Submission, settings schema.Settings) error {
	if settings.AdminEmail == "" {
		d.logger.Warn("no admin email configured, skipping admin notification", "submission_id", sub.ID)
		d.metrics.ObserveNotification("admin", "skipped")
		return nil
	}
	sch, err := d.schemas.Get(ctx)
	if err != nil {
		d.logger.Error("failed to load schema for notification, falling back to system fields", "error", err)
		sch = nil
	}
	if err := d.sender.Send(ctx, adminMessage(sub, sch, settings)); err != nil {
		d.metrics.ObserveNotification("admin", "failed")
		return err
	}
	d.metrics.ObserveNotification("admin", "sent")
	return nil
}

func (d *Dispatcher) sendUser(ctx context.Context, sub *submission.Submission, settings schema.Settings) error {
	if sub.Email == "" {
		d.metrics.ObserveNotification("user", "skipped")
		return nil
	}
	if err := d.sender.Send(ctx, userMessage(sub, settings)); err != nil {
		d.metrics.ObserveNotification("user", "failed")
		return err
	}
	d.metrics.ObserveNotification("user", "sent")
	return nil
}

// SendTest sends a synthetic admin notification so operators can verify
// their email configuration without submitting the form.
func (d *Dispatcher) SendTest(ctx context.Context) error {
	settings, err := d.schemas.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("notify: load settings: %w", err)
	}
	if settings.AdminEmail == "" {
		return fmt.Errorf("notify: no admin email configured")
	}

	sub := &submission.Submission{
		ID:        "test",
		Name:      "Test Submission",
		Email:     settings.AdminEmail,
		Message:   "This is a test notification. Your email configuration works.",
		Status:    submission.StatusNew,
		CreatedAt: time.Now().UTC(),
	}
	return d.sender.Send(ctx, adminMessage(sub, nil, settings))
}
