package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type timelineRepository struct {
	db sqlx.ExtContext
}

func (r *timelineRepository) Append(ctx context.Context, event domain.TimelineEvent) error {
	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO timeline_events (order_id, event_type, reason, occurred_at)
		VALUES (?, ?, ?, ?)
	`), event.OrderID, event.Type, event.Reason, event.Occurred.UTC()); err != nil {
		return fmt.Errorf("append timeline event: %w", err)
	}

	return nil
}

func (r *timelineRepository) List(ctx context.Context, orderID int64) ([]domain.TimelineEvent, error) {
	events := make([]domain.TimelineEvent, 0)
	if err := sqlx.SelectContext(ctx, r.db, &events, r.db.Rebind(`
		SELECT order_id, event_type, reason, occurred_at
		FROM timeline_events
		WHERE order_id = ?
		ORDER BY occurred_at ASC, id ASC
	`), orderID); err != nil {
		return nil, fmt.Errorf("list timeline events: %w", err)
	}
	return events, nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
