package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// MessageHandler обрабатывает одно сообщение из Kafka.
type MessageHandler func(ctx context.Context, message *sarama.ConsumerMessage) error

// Consumer — групповой Kafka-консьюмер с retry и Dead Letter Queue.
// Сообщение, которое handler не смог обработать за maxRetries попыток,
// уходит в DLQ и помечается обработанным, чтобы не блокировать partition.
type Consumer struct {
	group      sarama.ConsumerGroup
	topics     []string
	handle     MessageHandler
	logger     *log.Entry
	wg         sync.WaitGroup
	dlq        *Producer
	maxRetries int
	retryDelay time.Duration
}

// NewConsumer создаёт консьюмер без DLQ с тремя попытками обработки.
func NewConsumer(brokers []string, groupID string, topics []string, handler MessageHandler) (*Consumer, error) {
	return NewConsumerWithDLQ(brokers, groupID, topics, handler, nil, 3)
}

// NewConsumerWithDLQ создаёт консьюмер с отправкой необработанных
// сообщений в Dead Letter Queue.
func NewConsumerWithDLQ(brokers []string, groupID string, topics []string, handler MessageHandler, dlqProducer *Producer, maxRetries int) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	return &Consumer{
		group:      group,
		topics:     topics,
		handle:     handler,
		logger:     log.WithField("component", "kafka-consumer"),
		dlq:        dlqProducer,
		maxRetries: maxRetries,
		retryDelay: time.Second,
	}, nil
}

// Start запускает цикл потребления в фоне; повторный Consume нужен,
// потому что при rebalance вызов завершается без ошибки.
func (c *Consumer) Start(ctx context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			if err := c.group.Consume(ctx, c.topics, c); err != nil {
				c.logger.WithError(err).Error("error from consumer")
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.group.Errors() {
			c.logger.WithError(err).Error("consumer error")
		}
	}()

	c.logger.WithField("topics", c.topics).Info("kafka consumer started")
	return nil
}

// Stop закрывает группу и дожидается фоновых горутин.
func (c *Consumer) Stop() error {
	if err := c.group.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	c.wg.Wait()
	c.logger.Info("kafka consumer stopped")
	return nil
}

// Setup — часть sarama.ConsumerGroupHandler.
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup — часть sarama.ConsumerGroupHandler.
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim читает partition до закрытия канала или отмены сессии.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}
			c.processMessage(session, message)
		case <-session.Context().Done():
			return nil
		}
	}
}

func (c *Consumer) processMessage(session sarama.ConsumerGroupSession, message *sarama.ConsumerMessage) {
	fields := log.Fields{
		"topic":     message.Topic,
		"partition": message.Partition,
		"offset":    message.Offset,
	}
	c.logger.WithFields(fields).Debug("received message")

	if err := c.processWithRetry(session.Context(), message); err != nil {
		// Offset не двигаем: сообщение либо уже в DLQ, либо будет
		// прочитано снова после рестарта.
		c.logger.WithError(err).WithFields(fields).Error("message processing failed after all retries")
		return
	}

	session.MarkMessage(message, "")
}

// processWithRetry повторяет обработку с паузой retryDelay. Счётчик из
// заголовка x-retry-count уменьшает число локальных попыток, чтобы
// переигранное сообщение не жило вечно.
func (c *Consumer) processWithRetry(ctx context.Context, message *sarama.ConsumerMessage) error {
	attempts := c.maxRetries - headerRetryCount(message)
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 && c.retryDelay > 0 {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if lastErr = c.handle(ctx, message); lastErr == nil {
			return nil
		}

		c.logger.WithError(lastErr).WithFields(log.Fields{
			"topic":       message.Topic,
			"retry_count": headerRetryCount(message) + attempt,
			"max_retries": c.maxRetries,
		}).Warn("message processing failed")
	}

	if c.dlq == nil {
		return lastErr
	}

	if dlqErr := c.sendToDLQ(message, lastErr); dlqErr != nil {
		c.logger.WithError(dlqErr).Error("failed to send message to DLQ")
		return fmt.Errorf("failed to send to DLQ: %w", dlqErr)
	}
	c.logger.WithFields(log.Fields{
		"topic":       message.Topic,
		"retry_count": headerRetryCount(message),
	}).Info("message sent to DLQ after max retries")
	return nil
}

// headerRetryCount достаёт счётчик попыток из заголовков сообщения.
func headerRetryCount(message *sarama.ConsumerMessage) int {
	for _, header := range message.Headers {
		if string(header.Key) != HeaderRetryCount {
			continue
		}
		if count, err := strconv.Atoi(string(header.Value)); err == nil {
			return count
		}
	}
	return 0
}

// sendToDLQ заворачивает исходное сообщение вместе с координатами и
// причиной отказа; dlq-reprocess полагается на original_* поля.
func (c *Consumer) sendToDLQ(message *sarama.ConsumerMessage, processingErr error) error {
	payload := map[string]interface{}{
		"original_topic":     message.Topic,
		"original_partition": message.Partition,
		"original_offset":    message.Offset,
		"original_key":       string(message.Key),
		"original_value":     string(message.Value),
		"error_message":      processingErr.Error(),
		"failed_at":          time.Now().UTC().Format(time.RFC3339),
		"retry_count":        headerRetryCount(message),
	}

	return c.dlq.PublishEvent(TopicDeadLetterQueue, string(message.Key), payload)
}

// ParseOrderEvent декодирует OrderEvent из тела сообщения.
func ParseOrderEvent(message *sarama.ConsumerMessage) (*OrderEvent, error) {
	var event OrderEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order event: %w", err)
	}
	return &event, nil
}
