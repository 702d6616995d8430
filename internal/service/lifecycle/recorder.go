// Package lifecycle записывает события жизненного цикла заказа: строку timeline
// и сообщение transactional outbox в том же unit of work, что и смена состояния.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/retail/internal/metrics"
)

const aggregateOrder = "order"

// Event описывает один переход. Outbox пуст для событий, которые не уходят наружу.
type Event struct {
	Timeline string
	Outbox   kafka.EventType
	Payload  *kafka.OrderEvent
}

// Recorder пишет события через репозитории текущего unit of work.
type Recorder struct {
	metrics *metrics.WorkflowMetrics
}

// NewRecorder создаёт Recorder; m может быть nil.
func NewRecorder(m *metrics.WorkflowMetrics) *Recorder {
	return &Recorder{metrics: m}
}

// Record добавляет событие в timeline и, если задан Outbox, ставит сообщение в outbox.
// Ошибка прерывает unit of work: событие не может потеряться отдельно от перехода.
func (r *Recorder) Record(ctx context.Context, repos domain.Repositories, ev Event) error {
	payload := ev.Payload
	if payload == nil {
		return fmt.Errorf("lifecycle event %s has no payload", ev.Timeline)
	}

	if err := repos.Timeline.Append(ctx, domain.TimelineEvent{
		OrderID:  payload.OrderID,
		Type:     ev.Timeline,
		Reason:   payload.Reason,
		Occurred: payload.Timestamp,
	}); err != nil {
		return fmt.Errorf("append timeline event %s: %w", ev.Timeline, err)
	}
	r.metrics.RecordTimelineEvent()

	if ev.Outbox == "" {
		return nil
	}

	payload.EventType = ev.Outbox
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Outbox, err)
	}
	if _, err := repos.Outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: aggregateOrder,
		AggregateID:   payload.Key(),
		EventType:     string(ev.Outbox),
		Payload:       data,
		CreatedAt:     payload.Timestamp,
	}); err != nil {
		return fmt.Errorf("enqueue %s event: %w", ev.Outbox, err)
	}
	r.metrics.RecordOutboxEvent()

	return nil
}
