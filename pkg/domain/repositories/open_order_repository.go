package repositories

import (
	"context"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// OpenOrderRepository provides access to scheduled receipts (open purchase and production orders)
type OpenOrderRepository interface {
	GetOpenOrders(ctx context.Context, partNumber entities.PartNumber) ([]*entities.OpenOrder, error)
	GetAllOpenOrders(ctx context.Context) ([]*entities.OpenOrder, error)
	LoadOpenOrders(ctx context.Context, orders []*entities.OpenOrder) error
}
