package kafka

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

func headerValue(msg *sarama.ProducerMessage, key string) string {
	for _, h := range msg.Headers {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestOutboxPublisher_Publish(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if got := headerValue(msg, HeaderEventType); got != domain.OutboxEventOrderPlaced {
			return errors.New("unexpected event type header " + got)
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var envelope Envelope
		if err := json.Unmarshal(value, &envelope); err != nil {
			return err
		}
		if envelope.ID != "outbox-1" || string(envelope.Payload) != `{"status":"PLACED"}` {
			return errors.New("unexpected envelope")
		}
		return nil
	})

	producer := NewProducerFromSync(mockProducer, log.WithField("component", "kafka-outbox-publisher-test"))
	publisher := NewOutboxPublisher(producer, "")

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: "order",
		AggregateID:   "123",
		EventType:     domain.OutboxEventOrderPlaced,
		Payload:       []byte(`{"status":"PLACED"}`),
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishProducerError(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := NewProducerFromSync(mockProducer, nil)
	publisher := NewOutboxPublisher(producer, TopicOrderEvents)

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-2",
		AggregateType: "order",
		AggregateID:   "234",
		EventType:     domain.OutboxEventOrderCancelled,
		Payload:       []byte(`{"status":"CANCELLED"}`),
	})
	if err == nil {
		t.Fatal("expected publish error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishNilProducer(t *testing.T) {
	t.Parallel()

	publisher := NewOutboxPublisher(nil, TopicOrderEvents)
	if err := publisher.Publish(domain.OutboxMessage{ID: "outbox-3"}); err == nil {
		t.Fatal("expected error for nil producer")
	}
}

func TestDLQPublisher_Headers(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != TopicDeadLetterQueue {
			return errors.New("unexpected topic " + msg.Topic)
		}
		if got := headerValue(msg, HeaderOriginalTopic); got != TopicOrderEvents {
			return errors.New("unexpected original topic " + got)
		}
		if got := headerValue(msg, HeaderErrorMessage); got != "broker unavailable" {
			return errors.New("unexpected error header " + got)
		}
		if headerValue(msg, HeaderFailedAt) == "" {
			return errors.New("failed-at header is empty")
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "outbox-4" {
			return errors.New("expected message id as key, got " + string(key))
		}
		return nil
	})

	publisher := NewDLQPublisher(NewProducerFromSync(mockProducer, nil), "", "")
	err := publisher.Publish(domain.OutboxMessage{
		ID:        "outbox-4",
		EventType: domain.OutboxEventPaymentPaid,
		Payload:   []byte(`{"publish_error":"broker unavailable"}`),
	})
	if err != nil {
		t.Fatalf("dlq publish failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDLQPublisher_PublishNilProducer(t *testing.T) {
	t.Parallel()

	publisher := NewDLQPublisher(nil, TopicDeadLetterQueue, TopicOrderEvents)
	if err := publisher.Publish(domain.OutboxMessage{ID: "outbox-5"}); err == nil {
		t.Fatal("expected error for nil producer")
	}
}
