package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alimikegami/marketplace/payment-service/internal/dto"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	failures int
	calls    int
	messages []kafka.Message
}

func (w *fakeWriter) WriteMessages(msgs ...kafka.Message) (int, error) {
	w.calls++
	if w.calls <= w.failures {
		return 0, errors.New("leader not available")
	}
	w.messages = append(w.messages, msgs...)
	return len(msgs), nil
}

func TestPublishRetries(t *testing.T) {
	writer := &fakeWriter{failures: 2}
	publisher := &EventPublisher{writer: writer}

	err := publisher.Publish(context.Background(), "TRX-1", dto.KafkaMessage{
		EventType: dto.EventPaymentPaid,
		Data:      dto.PaymentEvent{TransactionCode: "TRX-1", CurrentStatus: "paid"},
	})

	require.NoError(t, err)
	assert.Equal(t, 3, writer.calls)
	require.Len(t, writer.messages, 1)
	assert.Equal(t, "TRX-1", string(writer.messages[0].Key))

	var decoded dto.KafkaMessage
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &decoded))
	assert.Equal(t, dto.EventPaymentPaid, decoded.EventType)
}

func TestPublishGivesUp(t *testing.T) {
	writer := &fakeWriter{failures: 5}
	publisher := &EventPublisher{writer: writer}

	err := publisher.Publish(context.Background(), "TRX-1", dto.KafkaMessage{EventType: dto.EventPaymentStatusChanged})

	assert.ErrorContains(t, err, "after 3 attempts")
	assert.Equal(t, 3, writer.calls)
}

func TestPublishWithoutBroker(t *testing.T) {
	publisher := CreateEventPublisher(nil)

	assert.NoError(t, publisher.Publish(context.Background(), "TRX-1", dto.KafkaMessage{EventType: dto.EventPaymentPaid}))
}
