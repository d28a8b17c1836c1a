package memory

import (
	"context"
	"sync"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

// OpenOrderRepository stores scheduled receipts keyed by order id
type OpenOrderRepository struct {
	mu       sync.RWMutex
	orders   []entities.OpenOrder
	orderMap map[string]int
}

func NewOpenOrderRepository() *OpenOrderRepository {
	return &OpenOrderRepository{orderMap: make(map[string]int)}
}

var _ repositories.OpenOrderRepository = (*OpenOrderRepository)(nil)

// LoadOpenOrders upserts orders by id
func (r *OpenOrderRepository) LoadOpenOrders(_ context.Context, orders []*entities.OpenOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range orders {
		if idx, ok := r.orderMap[o.ID]; ok {
			r.orders[idx] = *o
			continue
		}
		r.orderMap[o.ID] = len(r.orders)
		r.orders = append(r.orders, *o)
	}
	return nil
}

func (r *OpenOrderRepository) GetOpenOrders(_ context.Context, partNumber entities.PartNumber) ([]*entities.OpenOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entities.OpenOrder
	for i := range r.orders {
		if r.orders[i].PartNumber == partNumber {
			o := r.orders[i]
			out = append(out, &o)
		}
	}
	return out, nil
}

func (r *OpenOrderRepository) GetAllOpenOrders(_ context.Context) ([]*entities.OpenOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.OpenOrder, 0, len(r.orders))
	for i := range r.orders {
		o := r.orders[i]
		out = append(out, &o)
	}
	return out, nil
}
