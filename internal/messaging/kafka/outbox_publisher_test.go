package kafka

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/adepetun22/shopapp/internal/domain"
)

// publisherWithMock собирает OutboxPublisher поверх sarama-мока,
// предварительно настроенного через expect.
func publisherWithMock(t *testing.T, expect func(*mocks.SyncProducer)) (domain.OutboxPublisher, *mocks.SyncProducer) {
	t.Helper()

	mockProducer := mocks.NewSyncProducer(t, nil)
	expect(mockProducer)
	t.Cleanup(func() {
		if err := mockProducer.Close(); err != nil {
			t.Errorf("close mock producer: %v", err)
		}
	})

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-outbox-publisher-test"),
	}
	return NewOutboxPublisher(producer, TopicOrderEvents), mockProducer
}

func orderPaidMessage(id string) domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:            id,
		AggregateType: "order",
		AggregateID:   "order-123",
		EventType:     "order.paid",
		Payload:       []byte(`{"status":"paid"}`),
	}
}

func TestOutboxPublisher_Publish(t *testing.T) {
	t.Parallel()

	t.Run("delivers to broker", func(t *testing.T) {
		publisher, _ := publisherWithMock(t, func(m *mocks.SyncProducer) {
			m.ExpectSendMessageAndSucceed()
		})
		if err := publisher.Publish(orderPaidMessage("outbox-1")); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	})

	t.Run("propagates broker error", func(t *testing.T) {
		publisher, _ := publisherWithMock(t, func(m *mocks.SyncProducer) {
			m.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
		})
		if err := publisher.Publish(orderPaidMessage("outbox-2")); err == nil {
			t.Fatal("expected publish error, got nil")
		}
	})
}

func TestOutboxPublisher_PublishNilProducer(t *testing.T) {
	t.Parallel()

	publisher := NewOutboxPublisher(nil, TopicOrderEvents)
	if err := publisher.Publish(domain.OutboxMessage{ID: "outbox-3"}); err == nil {
		t.Fatal("expected error for nil producer")
	}
}

func TestOutboxPublisher_TopicRouting(t *testing.T) {
	t.Parallel()

	publisher := &OutboxTopicPublisher{defaultTopic: TopicDeadLetterQueue}

	cases := []struct {
		aggregateType string
		want          string
	}{
		{"order", TopicOrderEvents},
		{"product", TopicCatalogEvents},
		{"unknown", TopicDeadLetterQueue},
	}
	for _, tc := range cases {
		got := publisher.topicFor(domain.OutboxMessage{AggregateType: tc.aggregateType})
		if got != tc.want {
			t.Errorf("topicFor(%q) = %q, want %q", tc.aggregateType, got, tc.want)
		}
	}
}

func TestDLQPublisher_IgnoresAggregateRouting(t *testing.T) {
	t.Parallel()

	publisher, ok := NewDLQPublisher(nil).(*OutboxTopicPublisher)
	if !ok {
		t.Fatal("unexpected publisher type")
	}
	got := publisher.topicFor(domain.OutboxMessage{AggregateType: "order"})
	if got != TopicDeadLetterQueue {
		t.Errorf("topicFor(order) = %q, want %q", got, TopicDeadLetterQueue)
	}
}
