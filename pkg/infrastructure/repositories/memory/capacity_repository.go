package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

// RoutingRepository stores routing operations by part
type RoutingRepository struct {
	mu  sync.RWMutex
	ops map[entities.PartNumber][]entities.RoutingOperation
}

func NewRoutingRepository() *RoutingRepository {
	return &RoutingRepository{ops: make(map[entities.PartNumber][]entities.RoutingOperation)}
}

var _ repositories.RoutingRepository = (*RoutingRepository)(nil)

func (r *RoutingRepository) LoadRoutings(_ context.Context, ops []*entities.RoutingOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, op := range ops {
		r.ops[op.PartNumber] = append(r.ops[op.PartNumber], *op)
	}
	return nil
}

// GetRouting returns the operations of a part ordered by sequence
func (r *RoutingRepository) GetRouting(_ context.Context, partNumber entities.PartNumber) ([]*entities.RoutingOperation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyOps(r.ops[partNumber]), nil
}

func (r *RoutingRepository) GetAllRoutings(_ context.Context) ([]*entities.RoutingOperation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	parts := make([]string, 0, len(r.ops))
	for pn := range r.ops {
		parts = append(parts, string(pn))
	}
	sort.Strings(parts)
	var out []*entities.RoutingOperation
	for _, pn := range parts {
		out = append(out, copyOps(r.ops[entities.PartNumber(pn)])...)
	}
	return out, nil
}

func copyOps(ops []entities.RoutingOperation) []*entities.RoutingOperation {
	out := make([]*entities.RoutingOperation, 0, len(ops))
	for i := range ops {
		op := ops[i]
		out = append(out, &op)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

// WorkCenterRepository stores work center calendars by id
type WorkCenterRepository struct {
	mu      sync.RWMutex
	centers map[string]entities.WorkCenter
}

func NewWorkCenterRepository() *WorkCenterRepository {
	return &WorkCenterRepository{centers: make(map[string]entities.WorkCenter)}
}

var _ repositories.WorkCenterRepository = (*WorkCenterRepository)(nil)

func (r *WorkCenterRepository) LoadWorkCenters(_ context.Context, centers []*entities.WorkCenter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, wc := range centers {
		r.centers[wc.ID] = *wc
	}
	return nil
}

func (r *WorkCenterRepository) GetWorkCenter(_ context.Context, id string) (*entities.WorkCenter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wc, ok := r.centers[id]
	if !ok {
		return nil, fmt.Errorf("work center %s: %w", id, entities.ErrNotFound)
	}
	return &wc, nil
}

func (r *WorkCenterRepository) GetAllWorkCenters(_ context.Context) ([]*entities.WorkCenter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.WorkCenter, 0, len(r.centers))
	for _, wc := range r.centers {
		c := wc
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
