package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/Shivanand-hulikatti/nsc-international/internal/lib/logger/sl"
	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
)

// OutboxStore is the outbox table as seen by the worker.
type OutboxStore interface {
	FetchUnpublished(ctx context.Context, limit int) ([]model.OutboxRecord, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id, lastError string) error
}

// PublishObserver is told about every publish attempt.
type PublishObserver interface {
	OutboxPublished(eventType string, ok bool)
}

type noObserver struct{}

func (noObserver) OutboxPublished(string, bool) {}

// OutboxWorker pulls unpublished outbox records and publishes them.
// Records that keep failing stay in the table with a growing retry count.
type OutboxWorker struct {
	log       *slog.Logger
	outbox    OutboxStore
	publisher Publisher
	observer  PublishObserver
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewOutboxWorker constructs the outbox publish loop. observer may be nil.
func NewOutboxWorker(
	log *slog.Logger,
	outbox OutboxStore,
	publisher Publisher,
	observer PublishObserver,
	interval time.Duration,
	batchSize int,
) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if observer == nil {
		observer = noObserver{}
	}
	return &OutboxWorker{
		log:       log,
		outbox:    outbox,
		publisher: publisher,
		observer:  observer,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run executes the periodic publish loop until ctx is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) error {
	const op = "events.OutboxWorker.Run"
	log := w.log.With(slog.String("op", op))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessOnce(ctx); err != nil && ctx.Err() == nil {
			log.Error("outbox iteration failed", sl.Err(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessOnce publishes one batch and returns how many records were delivered.
func (w *OutboxWorker) ProcessOnce(ctx context.Context) (int, error) {
	records, err := w.outbox.FetchUnpublished(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}

	published, failed := 0, 0
	for _, rec := range records {
		if err := w.publisher.Publish(ctx, rec.EventType, rec.Payload, rec.PartitionKey); err != nil {
			failed++
			w.observer.OutboxPublished(rec.EventType, false)
			w.log.Warn("outbox publish failed; will retry",
				slog.String("outbox_id", rec.ID),
				slog.String("event_type", rec.EventType),
				slog.Int("retry_count", rec.RetryCount+1),
				sl.Err(err),
			)
			if err := w.outbox.MarkFailed(ctx, rec.ID, err.Error()); err != nil {
				return published, err
			}
			continue
		}

		w.observer.OutboxPublished(rec.EventType, true)
		if err := w.outbox.MarkPublished(ctx, rec.ID, w.now().UTC()); err != nil {
			return published, err
		}
		published++
	}

	if len(records) > 0 {
		w.log.Info("outbox batch processed",
			slog.Int("batch_size", len(records)),
			slog.Int("published", published),
			slog.Int("failed", failed),
		)
	}
	return published, nil
}
