package event

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/sales/internal/core/domain"
)

// LogSubscriber writes a one-line summary of each event.
type LogSubscriber struct {
	logger *zap.Logger
}

func NewLogSubscriber(logger *zap.Logger) *LogSubscriber {
	return &LogSubscriber{logger: logger}
}

func (s *LogSubscriber) Handle(_ context.Context, event domain.Event) error {
	s.logger.Info(describe(event), zap.String("event", event.EventName()))
	return nil
}

func describe(event domain.Event) string {
	switch e := event.(type) {
	case domain.SaleCreated:
		return fmt.Sprintf("Sale created: ID %d | Customer %s | Branch %s | Total Amount $ %s",
			e.SaleID, e.CustomerID, e.BranchID, e.TotalAmount.StringFixed(2))
	case domain.SaleModified:
		return fmt.Sprintf("Sale modified: ID %d | Customer %s | Branch %s | Total Amount $ %s",
			e.SaleID, e.CustomerID, e.BranchID, e.TotalAmount.StringFixed(2))
	case domain.SaleCancelled:
		return fmt.Sprintf("Sale cancelled: ID %d", e.SaleID)
	case domain.SaleCompleted:
		return fmt.Sprintf("Sale completed: ID %d", e.SaleID)
	case domain.SaleDeleted:
		return fmt.Sprintf("Sale deleted: ID %d", e.SaleID)
	case domain.CustomerCreated:
		return fmt.Sprintf("Customer created: ID %s | Name %s", e.CustomerID, e.Name)
	case domain.BranchCreated:
		return fmt.Sprintf("Branch created: ID %s | Name %s", e.BranchID, e.Name)
	case domain.ProductCreated:
		return fmt.Sprintf("Product created: ID %d | Name %s | Price $ %s", e.ProductID, e.Name, e.Price.StringFixed(2))
	default:
		return "Event published: " + event.EventName()
	}
}

// Publisher sends a payload on a named channel.
type Publisher interface {
	PublishEvent(ctx context.Context, channel string, payload []byte) (int64, error)
}

// Envelope is the wire format of events sent to external channels.
type Envelope struct {
	Event string       `json:"event"`
	Data  domain.Event `json:"data"`
}

// ChannelSubscriber forwards events as JSON envelopes to a pub/sub channel.
type ChannelSubscriber struct {
	publisher Publisher
	channel   string
}

func NewChannelSubscriber(publisher Publisher, channel string) *ChannelSubscriber {
	return &ChannelSubscriber{publisher: publisher, channel: channel}
}

func (s *ChannelSubscriber) Handle(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(Envelope{Event: event.EventName(), Data: event})
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.EventName(), err)
	}
	if _, err := s.publisher.PublishEvent(ctx, s.channel, payload); err != nil {
		return fmt.Errorf("publish %s: %w", event.EventName(), err)
	}
	return nil
}
