package port

import (
	"context"

	"github.com/rl1809/sales/internal/core/domain"
)

type CacheRepository interface {
	// GetSaleView returns nil on a cache miss
	GetSaleView(ctx context.Context, saleID int64) (*domain.SaleView, error)

	// SaleViewVersion returns the sale's cache version; read it before loading
	// the view from the database
	SaleViewVersion(ctx context.Context, saleID int64) (int64, error)

	// SetSaleView stores view only while the sale's version still equals
	// version. A view loaded before an invalidation is dropped.
	SetSaleView(ctx context.Context, view domain.SaleView, version int64) error

	// InvalidateSale bumps the sale's version and drops the cached view
	InvalidateSale(ctx context.Context, saleID int64) error
}

type EventPublisher interface {
	// Publish hands the event to subscribers without waiting for delivery
	Publish(ctx context.Context, event domain.Event)
}
