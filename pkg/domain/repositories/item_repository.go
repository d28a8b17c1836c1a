package repositories

import (
	"context"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// ItemRepository provides access to item planning records
type ItemRepository interface {
	GetItem(ctx context.Context, partNumber entities.PartNumber) (*entities.ItemPlanningRecord, error)
	GetAllItems(ctx context.Context) ([]*entities.ItemPlanningRecord, error)
	LoadItems(ctx context.Context, items []*entities.ItemPlanningRecord) error
}
