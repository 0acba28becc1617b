package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"

	"tour-booking/internal/logger"
	"tour-booking/internal/models"
)

// retryDelay spaces out sessions that ended on a handler failure
const retryDelay = 5 * time.Second

// WebhookHandler applies one payment provider notification
type WebhookHandler func(ctx context.Context, hook *models.PaymentWebhook) error

type WebhookConsumer struct {
	consumer sarama.ConsumerGroup
	topics   []string
	log      *logger.Logger
}

func NewWebhookConsumer(brokers []string, groupID, topic string, log *logger.Logger) (*WebhookConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	consumer, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.LogKafka("CONNECTED", topic, fmt.Sprintf("Consumer group %s joined", groupID))
	return &WebhookConsumer{consumer: consumer, topics: []string{topic}, log: log}, nil
}

// Consume blocks until ctx is cancelled or the group fails
func (c *WebhookConsumer) Consume(ctx context.Context, handler WebhookHandler) error {
	consumerHandler := &WebhookConsumerHandler{Handler: handler, Log: c.log}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.consumer.Consume(ctx, c.topics, consumerHandler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return nil
				}
				c.log.Error("KAFKA", fmt.Sprintf("Error consuming messages: %v", err))
				return err
			}
			if consumerHandler.failed.Swap(false) {
				c.log.Warn("KAFKA", fmt.Sprintf("Webhook handling failed, rejoining in %s", retryDelay))
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(retryDelay):
				}
			}
		}
	}
}

func (c *WebhookConsumer) Close() error {
	c.log.LogKafka("CLOSING", "consumer", "Closing Kafka consumer group")
	return c.consumer.Close()
}

// WebhookConsumerHandler is the sarama group handler for payment webhooks
type WebhookConsumerHandler struct {
	Handler WebhookHandler
	Log     *logger.Logger

	failed atomic.Bool
}

func (h *WebhookConsumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *WebhookConsumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim marks malformed messages so they are not redelivered forever.
// A handler failure ends the claim before anything after it is marked, so the
// next session resumes from the failed message.
func (h *WebhookConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var hook models.PaymentWebhook
		if err := json.Unmarshal(message.Value, &hook); err != nil {
			h.Log.Error("KAFKA", fmt.Sprintf("Failed to unmarshal webhook at offset %d: %v", message.Offset, err))
			session.MarkMessage(message, "")
			continue
		}

		if err := h.Handler(session.Context(), &hook); err != nil {
			h.Log.Error("KAFKA", fmt.Sprintf("Failed to handle webhook for %s at offset %d: %v", hook.TransactionID, message.Offset, err))
			h.failed.Store(true)
			return fmt.Errorf("webhook at offset %d: %w", message.Offset, err)
		}

		session.MarkMessage(message, "")
	}

	return nil
}
