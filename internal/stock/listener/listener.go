package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/reliefhub/stock-service/internal/model"
	"github.com/reliefhub/stock-service/internal/stock"
	"github.com/reliefhub/stock-service/internal/stock/dto"
	"github.com/reliefhub/stock-service/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const EventStockMovement = "StockMovement"

// MessageReader is satisfied by *broker.KafkaConsumer.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type StockListener struct {
	consumer MessageReader
	uc       stock.UseCase
	logger   logger.ZapLogger
	backoff  time.Duration
}

func NewStockListener(consumer MessageReader, uc stock.UseCase, logger logger.ZapLogger) *StockListener {
	return &StockListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
		backoff:  time.Second,
	}
}

func (l *StockListener) Start(ctx context.Context) {
	l.logger.Info("Starting Stock Kafka Listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping Stock Kafka Listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(l.backoff):
				}
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type StockMovementEvent struct {
	EventID   string               `json:"event_id"`
	EventType string               `json:"event_type"`
	Payload   StockMovementPayload `json:"payload"`
	Timestamp time.Time            `json:"timestamp"`
}

// StockMovementPayload carries a movement against EntryID. Transfers also name ToEntryID.
type StockMovementPayload struct {
	EntryID     string `json:"entry_id"`
	ToEntryID   string `json:"to_entry_id,omitempty"`
	Type        string `json:"type"`
	Quantity    int    `json:"quantity"`
	TriggeredBy string `json:"triggered_by"`
	Notes       string `json:"notes"`
}

func (l *StockListener) processMessage(ctx context.Context, value []byte) {
	var event StockMovementEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != EventStockMovement {
		return
	}

	p := event.Payload
	l.logger.Info("Processing StockMovement event",
		zap.String("event_id", event.EventID),
		zap.String("entry_id", p.EntryID),
		zap.String("type", p.Type),
	)

	if model.ActionType(p.Type) == model.ActionTransfer {
		_, err := l.uc.Transfer(ctx, &dto.TransferInput{
			FromEntryID: p.EntryID,
			ToEntryID:   p.ToEntryID,
			Quantity:    p.Quantity,
			TriggeredBy: p.TriggeredBy,
			Notes:       p.Notes,
		})
		if err != nil {
			l.logger.Error("Failed to transfer stock for event",
				zap.String("event_id", event.EventID),
				zap.String("from_entry_id", p.EntryID),
				zap.String("to_entry_id", p.ToEntryID),
				zap.Error(err),
			)
		}
		return
	}

	_, err := l.uc.Adjust(ctx, &dto.AdjustInput{
		EntryID:     p.EntryID,
		Type:        model.ActionType(p.Type),
		Quantity:    p.Quantity,
		TriggeredBy: p.TriggeredBy,
		Notes:       p.Notes,
	})
	if err != nil {
		l.logger.Error("Failed to adjust stock for event",
			zap.String("event_id", event.EventID),
			zap.String("entry_id", p.EntryID),
			zap.Error(err),
		)
	}
}
