package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

// ItemRepository provides in-memory item storage
type ItemRepository struct {
	mu       sync.RWMutex
	items    []entities.ItemPlanningRecord
	itemsMap map[entities.PartNumber]int
}

// NewItemRepository creates a new in-memory item repository
func NewItemRepository(expectedItems int) *ItemRepository {
	return &ItemRepository{
		items:    make([]entities.ItemPlanningRecord, 0, expectedItems),
		itemsMap: make(map[entities.PartNumber]int, expectedItems),
	}
}

// Verify interface compliance
var _ repositories.ItemRepository = (*ItemRepository)(nil)

// LoadItems loads items into the repository, replacing records with the same part number
func (r *ItemRepository) LoadItems(_ context.Context, items []*entities.ItemPlanningRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.addItem(*item)
	}
	return nil
}

func (r *ItemRepository) addItem(item entities.ItemPlanningRecord) {
	if index, exists := r.itemsMap[item.PartNumber]; exists {
		r.items[index] = item
		return
	}
	r.itemsMap[item.PartNumber] = len(r.items)
	r.items = append(r.items, item)
}

// GetItem returns the planning record for a part number
func (r *ItemRepository) GetItem(_ context.Context, partNumber entities.PartNumber) (*entities.ItemPlanningRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	index, exists := r.itemsMap[partNumber]
	if !exists {
		return nil, fmt.Errorf("item %s: %w", partNumber, entities.ErrNotFound)
	}
	item := r.items[index]
	return &item, nil
}

// GetAllItems returns copies of all items in load order
func (r *ItemRepository) GetAllItems(_ context.Context) ([]*entities.ItemPlanningRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]*entities.ItemPlanningRecord, 0, len(r.items))
	for i := range r.items {
		item := r.items[i]
		items = append(items, &item)
	}
	return items, nil
}
