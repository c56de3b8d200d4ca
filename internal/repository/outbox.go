package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
)

// EnqueueOutbox stores an integration event for the outbox worker. Called on
// a transactional Queries it commits atomically with the business write.
func (q *Queries) EnqueueOutbox(ctx context.Context, eventType, partitionKey string, payload []byte) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO outbox_events (id, event_type, partition_key, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), eventType, partitionKey, payload, time.Now().UTC(),
	)
	return wrap("insert outbox event", err)
}

// FetchUnpublished returns up to limit unpublished records, oldest first.
func (q *Queries) FetchUnpublished(ctx context.Context, limit int) ([]model.OutboxRecord, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, event_type, partition_key, payload, retry_count, last_error, created_at, published_at
		 FROM outbox_events
		 WHERE published_at IS NULL
		 ORDER BY created_at
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, wrap("fetch outbox", err)
	}
	out, err := collect(rows, func(row pgx.Row) (model.OutboxRecord, error) {
		var r model.OutboxRecord
		err := row.Scan(&r.ID, &r.EventType, &r.PartitionKey, &r.Payload, &r.RetryCount, &r.LastError, &r.CreatedAt, &r.PublishedAt)
		return r, err
	})
	return out, wrap("scan outbox", err)
}

// MarkPublished stamps a record as delivered.
func (q *Queries) MarkPublished(ctx context.Context, id string, at time.Time) error {
	_, err := q.db.Exec(ctx, `UPDATE outbox_events SET published_at = $2 WHERE id = $1`, id, at)
	return wrap("mark outbox published", err)
}

// MarkFailed bumps the retry counter and records the last error.
func (q *Queries) MarkFailed(ctx context.Context, id, lastError string) error {
	_, err := q.db.Exec(ctx,
		`UPDATE outbox_events SET retry_count = retry_count + 1, last_error = $2 WHERE id = $1`,
		id, lastError,
	)
	return wrap("mark outbox failed", err)
}
