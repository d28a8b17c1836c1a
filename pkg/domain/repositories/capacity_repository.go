package repositories

import (
	"context"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// RoutingRepository provides access to routing operations per item
type RoutingRepository interface {
	GetRouting(ctx context.Context, partNumber entities.PartNumber) ([]*entities.RoutingOperation, error)
	GetAllRoutings(ctx context.Context) ([]*entities.RoutingOperation, error)
	LoadRoutings(ctx context.Context, ops []*entities.RoutingOperation) error
}

// WorkCenterRepository provides access to work center calendars
type WorkCenterRepository interface {
	GetWorkCenter(ctx context.Context, id string) (*entities.WorkCenter, error)
	GetAllWorkCenters(ctx context.Context) ([]*entities.WorkCenter, error)
	LoadWorkCenters(ctx context.Context, centers []*entities.WorkCenter) error
}
