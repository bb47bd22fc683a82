package pub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"ledger-service/internal/domain"
)

const (
	// TransferEventsChannel is the Redis pub/sub channel for realtime
	// consumers (websocket pushers, dashboards).
	TransferEventsChannel = "transfer_events"

	// TransferEventsTopic is the Kafka topic for durable consumers
	// (notification fan-out, analytics).
	TransferEventsTopic = "ledger.transfer.events"
)

// TransferEvent is the payload emitted after a transfer commits.
type TransferEvent struct {
	EventType     string    `json:"event_type"` // transfer.completed
	TransactionID string    `json:"transaction_id"`
	Type          string    `json:"type"`
	TransactorID  string    `json:"transactor_id"`
	RecipientID   string    `json:"recipient_id,omitempty"`
	Amount        int64     `json:"amount"`
	DisplayAmount string    `json:"display_amount"`
	Timestamp     time.Time `json:"timestamp"`
}

// TransferEventPublisher fans committed transfers out to Redis pub/sub and
// a Kafka topic. Either sink may be absent; publishing is best effort and
// callers treat failures as log-worthy, not fatal.
type TransferEventPublisher struct {
	rdb    *redis.Client
	writer *kafka.Writer
	log    *zap.Logger
}

func NewTransferEventPublisher(rdb *redis.Client, writer *kafka.Writer, log *zap.Logger) *TransferEventPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &TransferEventPublisher{rdb: rdb, writer: writer, log: log}
}

// NewTransferEventsWriter builds the Kafka writer for the transfer stream.
func NewTransferEventsWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        TransferEventsTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}

// PublishTransferCompleted emits the event for a committed transfer.
func (p *TransferEventPublisher) PublishTransferCompleted(ctx context.Context, txn *domain.Transaction) error {
	event := &TransferEvent{
		EventType:     "transfer.completed",
		TransactionID: txn.ID,
		Type:          string(txn.Type),
		TransactorID:  txn.TransactorID,
		RecipientID:   txn.RecipientID,
		Amount:        txn.Amount,
		DisplayAmount: domain.FormatMinorUnits(txn.Amount),
		Timestamp:     time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal transfer event: %w", err)
	}

	var firstErr error
	if p.rdb != nil {
		if err := p.rdb.Publish(ctx, TransferEventsChannel, payload).Err(); err != nil {
			firstErr = fmt.Errorf("redis publish: %w", err)
		}
	}
	if p.writer != nil {
		msg := kafka.Message{
			// Key by transactor so one account's transfers stay ordered
			// within a partition.
			Key:   []byte(txn.TransactorID),
			Value: payload,
		}
		if err := p.writer.WriteMessages(ctx, msg); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("kafka write: %w", err)
		}
	}

	if firstErr == nil {
		p.log.Debug("published transfer event",
			zap.String("txn_id", txn.ID),
			zap.String("event_type", event.EventType),
		)
	}
	return firstErr
}
