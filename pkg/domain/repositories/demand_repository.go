package repositories

import (
	"context"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// DemandRepository provides access to independent demand (forecast and sales orders)
type DemandRepository interface {
	GetDemands(ctx context.Context) ([]*entities.DemandLine, error)
	LoadDemands(ctx context.Context, demands []*entities.DemandLine) error
}
