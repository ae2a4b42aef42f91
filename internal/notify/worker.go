package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/stepform/stepform/pkg/logging"
)

var workerTracer = otel.Tracer("stepform.internal.notify.worker")

// Worker drains the notification queue and delivers emails. Delivery is
// at-least-once: a message is deleted only after its email went out, so a
// crash mid-send redelivers.
type Worker struct {
	queue       queueClient
	dispatcher  *Dispatcher
	logger      *logging.Logger
	concurrency int
}

// NewWorker creates a worker pool over the queue.
func NewWorker(queue queueClient, dispatcher *Dispatcher, concurrency int, logger *logging.Logger) *Worker {
	if queue == nil {
		panic("notify: queue required")
	}
	if dispatcher == nil {
		panic("notify: dispatcher required")
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		queue:       queue,
		dispatcher:  dispatcher,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Run long-polls the queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	wg.Wait()
	return ctx.Err()
}

func (w *Worker) loop(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			return
		}

		messages, err := w.queue.Receive(ctx, 10, 20)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			w.logger.Error("queue receive failed", "worker", id, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range messages {
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg queueMessage) {
	ctx, span := workerTracer.Start(ctx, "notify.worker.handle")
	defer span.End()

	payload, err := decodeTask(msg.Body)
	if err != nil {
		span.RecordError(err)
		// Undecodable messages would redeliver forever; drop them.
		w.logger.Error("dropping malformed notification task", "message_id", msg.ID, "error", err)
		if derr := w.queue.Delete(ctx, msg.ReceiptHandle); derr != nil {
			w.logger.Error("failed to delete malformed task", "message_id", msg.ID, "error", derr)
		}
		return
	}

	span.SetAttributes(
		attribute.String("stepform.task_kind", string(payload.Kind)),
		attribute.String("stepform.submission_id", payload.SubmissionID),
	)

	if err := w.dispatcher.deliver(ctx, payload); err != nil {
		span.RecordError(err)
		// Leave the message for redelivery.
		w.logger.Error("notification delivery failed", "task_id", payload.ID, "kind", payload.Kind, "submission_id", payload.SubmissionID, "error", err)
		return
	}

	if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		w.logger.Error("failed to delete delivered task", "task_id", payload.ID, "error", err)
		return
	}
	w.logger.Info("notification delivered", "task_id", payload.ID, "kind", payload.Kind, "submission_id", payload.SubmissionID)
}
