package kafka

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/IBM/sarama"

	"tour-booking/internal/logger"
	"tour-booking/internal/models"
)

type Topics struct {
	Booking string
	Payment string
}

type Producer struct {
	producer sarama.SyncProducer
	mockMode bool
	topics   Topics
	log      *logger.Logger
}

// NewProducer connects a sync producer. In mock mode events are only logged.
func NewProducer(brokers []string, topics Topics, mockMode bool, log *logger.Logger) (*Producer, error) {
	if mockMode {
		log.LogKafka("MOCK_MODE", "producer", "Running in mock mode - no actual Kafka connection")
		return &Producer{mockMode: true, topics: topics, log: log}, nil
	}

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	log.LogKafka("CONNECTED", "producer", fmt.Sprintf("Connected to Kafka brokers: %v", brokers))
	return NewProducerWithClient(producer, topics, log), nil
}

// NewProducerWithClient wraps an existing sarama producer
func NewProducerWithClient(producer sarama.SyncProducer, topics Topics, log *logger.Logger) *Producer {
	return &Producer{producer: producer, topics: topics, log: log}
}

func (p *Producer) PublishBookingEvent(event *models.BookingEvent) error {
	return p.publish(event.Type, strconv.FormatInt(event.BookingID, 10), event)
}

func (p *Producer) PublishPaymentEvent(event *models.PaymentEvent) error {
	return p.publish(event.Type, strconv.FormatInt(event.BookingID, 10), event)
}

// publish keys every message by booking id so one booking's events stay ordered
func (p *Producer) publish(eventType, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := p.getTopicForEvent(eventType)

	if p.mockMode {
		p.log.LogKafka("MOCK_PUBLISH", topic, fmt.Sprintf("Mock publishing event: %s (key %s)", eventType, key))
		p.log.Debug("KAFKA", string(data))
		return nil
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(eventType)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Error("KAFKA", fmt.Sprintf("Failed to send message to topic %s: %v", topic, err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.log.LogKafka("PUBLISHED", topic, fmt.Sprintf("%s sent to partition %d at offset %d", eventType, partition, offset))
	return nil
}

func (p *Producer) getTopicForEvent(eventType string) string {
	switch {
	case strings.HasPrefix(eventType, "booking."):
		return p.topics.Booking
	case strings.HasPrefix(eventType, "payment."):
		return p.topics.Payment
	default:
		return p.topics.Booking
	}
}

func (p *Producer) Close() error {
	if p.mockMode {
		p.log.LogKafka("MOCK_CLOSE", "producer", "Mock producer closed")
		return nil
	}

	if p.producer != nil {
		p.log.LogKafka("CLOSING", "producer", "Closing Kafka producer connection")
		return p.producer.Close()
	}
	return nil
}
