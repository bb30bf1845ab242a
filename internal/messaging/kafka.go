package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/procurechat/dealengine/internal/config"
	"github.com/procurechat/dealengine/pkg/models"
)

// SelectionMessage is the envelope the MESO generator publishes when a
// vendor picks one of the presented option bundles.
type SelectionMessage struct {
	Selection  models.MesoSelection `json:"selection"`
	Option     models.MesoOption    `json:"option"`
	Timestamp  time.Time            `json:"timestamp"`
	RetryCount int                  `json:"retry_count"`
}

// DecisionMessage is published after every evaluation so downstream chatbot
// components (response generator, audit trail) see the same decision the
// HTTP caller got.
type DecisionMessage struct {
	DealID    uuid.UUID       `json:"deal_id"`
	VendorID  uuid.UUID       `json:"vendor_id"`
	Round     int             `json:"round"`
	Decision  models.Decision `json:"decision"`
	Timestamp time.Time       `json:"timestamp"`
}

type MessageBus struct {
	decisionWriter *kafka.Writer
	selectionRead  *kafka.Reader
	dlqWriter      *kafka.Writer
	selectionTopic string
	logger         *logrus.Logger
}

func NewMessageBus(cfg *config.Config, logger *logrus.Logger) (*MessageBus, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}

	decisionWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topics.Decisions,
		Balancer:     &kafka.Hash{}, // Key by deal for per-deal ordering
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	selectionReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          cfg.Kafka.Topics.MesoSelections,
		GroupID:        cfg.Kafka.ConsumerGroup,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	dlqWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topics.MesoSelections + "-dlq",
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &MessageBus{
		decisionWriter: decisionWriter,
		selectionRead:  selectionReader,
		dlqWriter:      dlqWriter,
		selectionTopic: cfg.Kafka.Topics.MesoSelections,
		logger:         logger,
	}, nil
}

// PublishDecision emits one evaluated decision, keyed by deal so a single
// deal's rounds stay ordered on one partition.
func (mb *MessageBus) PublishDecision(ctx context.Context, message DecisionMessage) error {
	message.Timestamp = time.Now()

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal decision message: %w", err)
	}

	kafkaMessage := kafka.Message{
		Key:   []byte(message.DealID.String()),
		Value: messageBytes,
		Headers: []kafka.Header{
			{Key: "deal_id", Value: []byte(message.DealID.String())},
			{Key: "vendor_id", Value: []byte(message.VendorID.String())},
			{Key: "action", Value: []byte(message.Decision.Action)},
			{Key: "timestamp", Value: []byte(message.Timestamp.Format(time.RFC3339))},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := mb.decisionWriter.WriteMessages(writeCtx, kafkaMessage); err != nil {
		mb.logger.WithError(err).WithField("deal_id", message.DealID).Error("Failed to publish decision")
		return fmt.Errorf("failed to write decision to Kafka: %w", err)
	}

	mb.logger.WithFields(logrus.Fields{
		"deal_id":   message.DealID,
		"vendor_id": message.VendorID,
		"action":    message.Decision.Action,
	}).Info("Decision published to Kafka")

	return nil
}

// ConsumeSelections reads MESO selections and hands each to the handler,
// retrying with exponential backoff and parking poison messages on the DLQ.
func (mb *MessageBus) ConsumeSelections(ctx context.Context, handler func(SelectionMessage) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			message, err := mb.selectionRead.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				mb.logger.WithError(err).Error("Failed to read selection from Kafka")
				continue
			}

			var selectionMessage SelectionMessage
			if err := json.Unmarshal(message.Value, &selectionMessage); err != nil {
				mb.logger.WithError(err).Error("Failed to unmarshal selection message")
				if dlqErr := mb.sendToDLQ(ctx, message.Value, err); dlqErr != nil {
					mb.logger.WithError(dlqErr).Error("Failed to send malformed message to DLQ")
				}
				continue
			}

			if err := mb.processWithRetry(ctx, selectionMessage, handler); err != nil {
				mb.logger.WithError(err).WithFields(logrus.Fields{
					"vendor_id": selectionMessage.Selection.VendorID,
					"deal_id":   selectionMessage.Selection.DealID,
					"round":     selectionMessage.Selection.Round,
				}).Error("Failed to process selection after retries")

				if dlqErr := mb.sendToDLQ(ctx, message.Value, err); dlqErr != nil {
					mb.logger.WithError(dlqErr).Error("Failed to send selection to DLQ")
				}
			}
		}
	}
}

func (mb *MessageBus) processWithRetry(ctx context.Context, message SelectionMessage, handler func(SelectionMessage) error) error {
	maxRetries := 3
	baseDelay := time.Second

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			mb.logger.WithFields(logrus.Fields{
				"vendor_id": message.Selection.VendorID,
				"deal_id":   message.Selection.DealID,
				"attempt":   attempt,
				"delay":     delay,
			}).Info("Retrying selection processing")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		message.RetryCount = attempt
		if err := handler(message); err != nil {
			mb.logger.WithError(err).WithFields(logrus.Fields{
				"vendor_id": message.Selection.VendorID,
				"deal_id":   message.Selection.DealID,
				"attempt":   attempt,
			}).Warn("Selection processing failed")

			if attempt == maxRetries {
				return fmt.Errorf("max retries exceeded: %w", err)
			}
			continue
		}

		return nil
	}

	return fmt.Errorf("unexpected retry loop exit")
}

func (mb *MessageBus) sendToDLQ(ctx context.Context, original []byte, originalError error) error {
	dlqMessage := map[string]interface{}{
		"original_message": json.RawMessage(original),
		"error":            originalError.Error(),
		"dlq_timestamp":    time.Now(),
	}

	dlqBytes, err := json.Marshal(dlqMessage)
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ message: %w", err)
	}

	kafkaMessage := kafka.Message{
		Value: dlqBytes,
		Headers: []kafka.Header{
			{Key: "original_topic", Value: []byte(mb.selectionTopic)},
			{Key: "error", Value: []byte(originalError.Error())},
		},
	}

	if err := mb.dlqWriter.WriteMessages(ctx, kafkaMessage); err != nil {
		return fmt.Errorf("failed to write message to DLQ: %w", err)
	}

	mb.logger.WithField("error", originalError.Error()).Warn("Selection sent to DLQ")
	return nil
}

func (mb *MessageBus) Close() error {
	var errors []error

	if err := mb.decisionWriter.Close(); err != nil {
		errors = append(errors, fmt.Errorf("failed to close decision writer: %w", err))
	}

	if err := mb.selectionRead.Close(); err != nil {
		errors = append(errors, fmt.Errorf("failed to close selection reader: %w", err))
	}

	if err := mb.dlqWriter.Close(); err != nil {
		errors = append(errors, fmt.Errorf("failed to close DLQ writer: %w", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("errors closing message bus: %v", errors)
	}

	return nil
}

// GetMetrics returns consumer statistics for the health endpoint.
func (mb *MessageBus) GetMetrics() map[string]interface{} {
	stats := mb.selectionRead.Stats()
	return map[string]interface{}{
		"consumer_lag":    stats.Lag,
		"consumer_offset": stats.Offset,
		"messages_read":   stats.Messages,
		"bytes_read":      stats.Bytes,
		"rebalances":      stats.Rebalances,
		"timeouts":        stats.Timeouts,
		"errors":          stats.Errors,
	}
}
