package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/adepetun22/shopapp/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в Kafka. Топик
// выбирается по типу агрегата: события заказов и события каталога
// идут в разные топики, defaultTopic — для остальных.
type OutboxTopicPublisher struct {
	producer     *Producer
	defaultTopic string
	// fixedTopic отключает маршрутизацию: все сообщения идут
	// в defaultTopic. Используется для DLQ.
	fixedTopic bool
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, defaultTopic string) domain.OutboxPublisher {
	if defaultTopic == "" {
		defaultTopic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{
		producer:     producer,
		defaultTopic: defaultTopic,
	}
}

// NewDLQPublisher создаёт паблишер, который пишет все сообщения
// в dead letter топик без маршрутизации по агрегату.
func NewDLQPublisher(producer *Producer) domain.OutboxPublisher {
	return &OutboxTopicPublisher{
		producer:     producer,
		defaultTopic: TopicDeadLetterQueue,
		fixedTopic:   true,
	}
}

// topicFor возвращает топик для сообщения по его типу агрегата.
func (p *OutboxTopicPublisher) topicFor(event domain.OutboxMessage) string {
	if p.fixedTopic {
		return p.defaultTopic
	}
	switch event.AggregateType {
	case "order":
		return TopicOrderEvents
	case "product":
		return TopicCatalogEvents
	default:
		return p.defaultTopic
	}
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	envelope := struct {
		ID            string          `json:"id"`
		AggregateType string          `json:"aggregate_type"`
		AggregateID   string          `json:"aggregate_id"`
		EventType     string          `json:"event_type"`
		Payload       json.RawMessage `json:"payload"`
		PublishedAt   time.Time       `json:"published_at"`
	}{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	}

	return p.producer.PublishEvent(p.topicFor(event), key, envelope)
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
