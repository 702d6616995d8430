package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type outboxRepository struct {
	db sqlx.ExtContext
}

func (r *outboxRepository) Enqueue(ctx context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO outbox_messages (
			id, aggregate_type, aggregate_id, event_type, payload,
			status, attempt_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
	`),
		msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload,
		string(domain.OutboxStatusPending), msg.CreatedAt.UTC(), now,
	)
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("enqueue outbox message: %w", err)
	}

	return msg, nil
}

func (r *outboxRepository) PullPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	result := make([]domain.OutboxMessage, 0, limit)
	if err := sqlx.SelectContext(ctx, r.db, &result, r.db.Rebind(`
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		FROM outbox_messages
		WHERE status = ?
		ORDER BY created_at, id
		LIMIT ?
	`), string(domain.OutboxStatusPending), limit); err != nil {
		return nil, fmt.Errorf("pull pending outbox messages: %w", err)
	}

	return result, nil
}

// Stats считает backlog. Самое старое сообщение читается отдельным запросом,
// так как SQLite теряет тип колонки в агрегате MIN.
func (r *outboxRepository) Stats(ctx context.Context) (domain.OutboxStats, error) {
	var stats domain.OutboxStats

	if err := sqlx.GetContext(ctx, r.db, &stats.PendingCount, r.db.Rebind(`
		SELECT COUNT(*) FROM outbox_messages WHERE status = ?
	`), string(domain.OutboxStatusPending)); err != nil {
		return domain.OutboxStats{}, fmt.Errorf("outbox stats query failed: %w", err)
	}
	if stats.PendingCount == 0 {
		return stats, nil
	}

	var oldest time.Time
	err := sqlx.GetContext(ctx, r.db, &oldest, r.db.Rebind(`
		SELECT created_at FROM outbox_messages
		WHERE status = ?
		ORDER BY created_at
		LIMIT 1
	`), string(domain.OutboxStatusPending))
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return domain.OutboxStats{}, fmt.Errorf("outbox oldest pending query failed: %w", err)
	default:
		stats.OldestPendingAt = oldest.UTC()
	}

	return stats, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, id string) error {
	return r.markStatus(ctx, id, domain.OutboxStatusSent)
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string) error {
	return r.markStatus(ctx, id, domain.OutboxStatusFailed)
}

func (r *outboxRepository) markStatus(ctx context.Context, id string, status domain.OutboxStatus) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE outbox_messages
		SET status = ?,
		    attempt_count = attempt_count + 1,
		    updated_at = ?
		WHERE id = ?
	`), string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark outbox message as %s: %w", status, err)
	}

	return expectAffected(res, domain.ErrOutboxNotFound)
}

var _ domain.OutboxRepository = (*outboxRepository)(nil)
