package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alimikegami/marketplace/payment-service/config"
	"github.com/alimikegami/marketplace/payment-service/internal/dto"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const maxRetries = 3

type messageWriter interface {
	WriteMessages(msgs ...kafka.Message) (int, error)
}

type EventPublisher struct {
	writer  messageWriter
	backoff time.Duration
}

func CreateKafkaProducer(config *config.Config) (*kafka.Conn, error) {
	return kafka.DialLeader(context.Background(), "tcp", config.KafkaConfig.BrokerAddress, config.KafkaConfig.BrokerTopic, config.KafkaConfig.BrokerPartition)
}

// CreateEventPublisher returns a publisher writing to conn. A nil conn gives
// a publisher that only logs, for setups without a broker.
func CreateEventPublisher(conn *kafka.Conn) *EventPublisher {
	p := &EventPublisher{backoff: time.Second}
	if conn != nil {
		p.writer = conn
	}
	return p
}

func (p *EventPublisher) Publish(ctx context.Context, key string, message dto.KafkaMessage) (err error) {
	if p.writer == nil {
		log.Ctx(ctx).Debug().Str("component", "Publish").Str("event_type", message.EventType).Str("key", key).Msg("no broker configured, event dropped")
		return nil
	}

	jsonMsg, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal Kafka message: %w", err)
	}

	for i := 0; i < maxRetries; i++ {
		_, err = p.writer.WriteMessages(kafka.Message{
			Key:   []byte(key),
			Value: jsonMsg,
		})
		if err == nil {
			return nil
		}
		log.Ctx(ctx).Error().Err(err).Str("component", "Publish").Int("attempt", i+1).Msg("")
		time.Sleep(p.backoff * time.Duration(i+1))
	}

	return fmt.Errorf("failed to write Kafka message after %d attempts: %w", maxRetries, err)
}
