package repositories

import (
	"context"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// BOMRepository provides access to Bill of Materials data
type BOMRepository interface {
	GetBOMLines(ctx context.Context, parentPN entities.PartNumber) ([]*entities.BOMLine, error)
	GetAllBOMLines(ctx context.Context) ([]*entities.BOMLine, error)
	LoadBOMLines(ctx context.Context, lines []*entities.BOMLine) error
}
