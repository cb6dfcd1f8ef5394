package kafka

import (
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

// producerWithMock оборачивает sarama-мок в Producer и закрывает его
// по окончании теста, проверяя невыполненные ожидания.
func producerWithMock(t *testing.T) (*Producer, *mocks.SyncProducer) {
	t.Helper()

	mockProducer := mocks.NewSyncProducer(t, nil)
	t.Cleanup(func() {
		if err := mockProducer.Close(); err != nil {
			t.Errorf("close mock producer: %v", err)
		}
	})

	return &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}, mockProducer
}

func TestProducer_PublishEvent(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		producer, mockProducer := producerWithMock(t)
		mockProducer.ExpectSendMessageAndSucceed()

		event := NewOrderEvent(EventTypeOrderCreated, "order-123", "user-1", "pending", 126.5,
			map[string]interface{}{"items": 2})
		if err := producer.PublishEvent(TopicOrderEvents, "order-123", event); err != nil {
			t.Fatalf("publish event: %v", err)
		}
	})

	t.Run("broker error", func(t *testing.T) {
		producer, mockProducer := producerWithMock(t)
		mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

		event := NewOrderEvent(EventTypeOrderCreated, "order-123", "user-1", "pending", 10, nil)
		if err := producer.PublishEvent(TopicOrderEvents, "order-123", event); err == nil {
			t.Fatal("publish succeeded, want broker error")
		}
	})

	t.Run("unmarshalable event", func(t *testing.T) {
		producer, _ := producerWithMock(t)

		// Каналы не сериализуются в JSON, SendMessage вызываться не должен.
		if err := producer.PublishEvent(TopicOrderEvents, "key", make(chan int)); err == nil {
			t.Fatal("publish succeeded, want marshal error")
		}
	})
}

func TestNewProducerConfig(t *testing.T) {
	config := newProducerConfig()

	if config.ClientID != "shop-server" {
		t.Errorf("ClientID = %s, want shop-server", config.ClientID)
	}
	if config.Producer.RequiredAcks != sarama.WaitForAll {
		t.Error("RequiredAcks must wait for all in-sync replicas")
	}
	if !config.Producer.Idempotent {
		t.Error("producer must be idempotent")
	}
	if config.Net.MaxOpenRequests != 1 {
		t.Errorf("MaxOpenRequests = %d, idempotent producer requires 1", config.Net.MaxOpenRequests)
	}
	if config.Producer.Compression != sarama.CompressionSnappy {
		t.Error("Compression must be snappy")
	}
}

func TestNewOrderEvent(t *testing.T) {
	metadata := map[string]interface{}{"payment_id": "pay-1"}

	event := NewOrderEvent(EventTypeOrderPaid, "order-123", "user-1", "paid", 45.9, metadata)

	if event.EventType != EventTypeOrderPaid {
		t.Errorf("EventType = %s, want %s", event.EventType, EventTypeOrderPaid)
	}
	if event.OrderID != "order-123" || event.UserID != "user-1" {
		t.Errorf("identifiers = %s/%s, want order-123/user-1", event.OrderID, event.UserID)
	}
	if event.Status != "paid" {
		t.Errorf("Status = %s, want paid", event.Status)
	}
	if event.Total != 45.9 {
		t.Errorf("Total = %v, want 45.9", event.Total)
	}
	if event.Metadata["payment_id"] != "pay-1" {
		t.Error("metadata was not carried over")
	}
	if event.Timestamp.IsZero() || time.Since(event.Timestamp) > time.Second {
		t.Errorf("Timestamp = %s, want close to now", event.Timestamp)
	}
}
