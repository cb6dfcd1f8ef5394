package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/adepetun22/shopapp/internal/messaging/kafka"
)

// splitBrokers разбирает строку KAFKA_BROKERS в список адресов,
// отбрасывая пробелы и пустые элементы.
func splitBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if addr := strings.TrimSpace(part); addr != "" {
			result = append(result, addr)
		}
	}
	return result
}

// initKafkaProducer создаёт producer, если заданы брокеры.
// Kafka опциональна: при пустом списке возвращается nil без ошибки,
// и события остаются накапливаться в outbox.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	brokerList := splitBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

// closeKafka закрывает producer; nil-producer допустим.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	logger.Info("kafka producer closed")
}
