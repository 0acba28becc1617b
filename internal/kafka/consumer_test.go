package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tour-booking/internal/logger"
	"tour-booking/internal/models"
)

// Mock implementations for Sarama interfaces
type MockConsumerGroupSession struct {
	mock.Mock
}

func (m *MockConsumerGroupSession) Claims() map[string][]int32 {
	args := m.Called()
	return args.Get(0).(map[string][]int32)
}

func (m *MockConsumerGroupSession) MemberID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConsumerGroupSession) GenerationID() int32 {
	args := m.Called()
	return int32(args.Int(0))
}

func (m *MockConsumerGroupSession) MarkOffset(topic string, partition int32, offset int64, metadata string) {
	m.Called(topic, partition, offset, metadata)
}

func (m *MockConsumerGroupSession) Commit() {
	m.Called()
}

func (m *MockConsumerGroupSession) ResetOffset(topic string, partition int32, offset int64, metadata string) {
	m.Called(topic, partition, offset, metadata)
}

func (m *MockConsumerGroupSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) {
	m.Called(msg, metadata)
}

func (m *MockConsumerGroupSession) Context() context.Context {
	args := m.Called()
	return args.Get(0).(context.Context)
}

type MockConsumerGroupClaim struct {
	mock.Mock
}

func (m *MockConsumerGroupClaim) Topic() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConsumerGroupClaim) Partition() int32 {
	args := m.Called()
	return int32(args.Int(0))
}

func (m *MockConsumerGroupClaim) InitialOffset() int64 {
	args := m.Called()
	return int64(args.Int(0))
}

func (m *MockConsumerGroupClaim) HighWaterMarkOffset() int64 {
	args := m.Called()
	return int64(args.Int(0))
}

func (m *MockConsumerGroupClaim) Messages() <-chan *sarama.ConsumerMessage {
	args := m.Called()
	return args.Get(0).(chan *sarama.ConsumerMessage)
}

func webhookMessage(t *testing.T, offset int64, hook models.PaymentWebhook) *sarama.ConsumerMessage {
	t.Helper()
	data, err := json.Marshal(hook)
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: "payment-webhooks", Offset: offset, Value: data}
}

func recordingHandler(handled *[]string) *WebhookConsumerHandler {
	return &WebhookConsumerHandler{
		Log: logger.NewNop(),
		Handler: func(ctx context.Context, hook *models.PaymentWebhook) error {
			if hook.TransactionID == "pi_fail" {
				return errors.New("store unavailable")
			}
			*handled = append(*handled, hook.TransactionID+":"+string(hook.Status))
			return nil
		},
	}
}

func TestWebhookConsumerHandler(t *testing.T) {
	var handled []string
	handler := recordingHandler(&handled)

	ok := webhookMessage(t, 0, models.PaymentWebhook{TransactionID: "pi_1", Status: models.PaymentRefunded})
	malformed := &sarama.ConsumerMessage{Topic: "payment-webhooks", Offset: 1, Value: []byte("{not json")}
	other := webhookMessage(t, 2, models.PaymentWebhook{TransactionID: "pi_2", Status: models.PaymentFailed})

	msgChan := make(chan *sarama.ConsumerMessage, 3)
	msgChan <- ok
	msgChan <- malformed
	msgChan <- other
	close(msgChan)

	mockClaim := &MockConsumerGroupClaim{}
	mockClaim.On("Messages").Return(msgChan)

	mockSession := &MockConsumerGroupSession{}
	mockSession.On("Context").Return(context.Background())
	mockSession.On("MarkMessage", mock.Anything, "").Return()

	err := handler.ConsumeClaim(mockSession, mockClaim)

	require.NoError(t, err)
	assert.Equal(t, []string{"pi_1:refunded", "pi_2:failed"}, handled)
	mockSession.AssertCalled(t, "MarkMessage", ok, "")
	mockSession.AssertCalled(t, "MarkMessage", malformed, "")
	mockSession.AssertCalled(t, "MarkMessage", other, "")
	assert.False(t, handler.failed.Load())
	mockClaim.AssertExpectations(t)
}

func TestWebhookConsumerHandlerStopsOnFailure(t *testing.T) {
	var handled []string
	handler := recordingHandler(&handled)

	ok := webhookMessage(t, 1, models.PaymentWebhook{TransactionID: "pi_1", Status: models.PaymentRefunded})
	failing := webhookMessage(t, 2, models.PaymentWebhook{TransactionID: "pi_fail", Status: models.PaymentRefunded})
	later := webhookMessage(t, 3, models.PaymentWebhook{TransactionID: "pi_3", Status: models.PaymentFailed})

	msgChan := make(chan *sarama.ConsumerMessage, 3)
	msgChan <- ok
	msgChan <- failing
	msgChan <- later
	close(msgChan)

	mockClaim := &MockConsumerGroupClaim{}
	mockClaim.On("Messages").Return(msgChan)

	var marked []int64
	mockSession := &MockConsumerGroupSession{}
	mockSession.On("Context").Return(context.Background())
	mockSession.On("MarkMessage", mock.Anything, "").Run(func(args mock.Arguments) {
		marked = append(marked, args.Get(0).(*sarama.ConsumerMessage).Offset)
	}).Return()

	err := handler.ConsumeClaim(mockSession, mockClaim)

	// the committed offset must never move past the failed message
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offset 2")
	assert.Equal(t, []int64{1}, marked)
	assert.Equal(t, []string{"pi_1:refunded"}, handled, "messages after the failure wait for the next session")
	assert.True(t, handler.failed.Load())
}

// TestWebhookConsumerIntegration requires a running Kafka broker
func TestWebhookConsumerIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		t.Skip("KAFKA_BROKERS not set")
	}
	brokers := strings.Split(kafkaBrokers, ",")

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Net.DialTimeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		t.Skip("Skipping test because Kafka is not available:", err)
	}
	defer producer.Close()

	topic := "payment-webhooks-test"
	consumer, err := NewWebhookConsumer(brokers, "test-webhooks-"+time.Now().Format("20060102150405"), topic, logger.NewNop())
	require.NoError(t, err)
	defer consumer.Close()

	txID := "pi_it_" + time.Now().Format("150405.000")
	received := make(chan *models.PaymentWebhook, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = consumer.Consume(ctx, func(ctx context.Context, hook *models.PaymentWebhook) error {
			if hook.TransactionID == txID {
				received <- hook
			}
			return nil
		})
	}()

	// give the group time to join before producing
	time.Sleep(3 * time.Second)

	data, _ := json.Marshal(models.PaymentWebhook{TransactionID: txID, Status: models.PaymentFailed})
	_, _, err = producer.SendMessage(&sarama.ProducerMessage{Topic: topic, Value: sarama.ByteEncoder(data)})
	require.NoError(t, err)

	select {
	case hook := <-received:
		assert.Equal(t, models.PaymentFailed, hook.Status)
	case <-time.After(20 * time.Second):
		t.Fatalf("Timeout waiting for webhook %s", txID)
	}
}
