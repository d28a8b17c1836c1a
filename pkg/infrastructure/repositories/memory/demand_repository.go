package memory

import (
	"context"
	"sync"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

// DemandRepository provides in-memory storage for independent demand
type DemandRepository struct {
	mu      sync.RWMutex
	demands []entities.DemandLine
}

// NewDemandRepository creates a new in-memory demand repository
func NewDemandRepository() *DemandRepository {
	return &DemandRepository{}
}

// Verify interface compliance
var _ repositories.DemandRepository = (*DemandRepository)(nil)

// LoadDemands appends demand lines
func (r *DemandRepository) LoadDemands(_ context.Context, demands []*entities.DemandLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range demands {
		r.demands = append(r.demands, *d)
	}
	return nil
}

// GetDemands returns all demand lines
func (r *DemandRepository) GetDemands(_ context.Context) ([]*entities.DemandLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.DemandLine, 0, len(r.demands))
	for i := range r.demands {
		d := r.demands[i]
		out = append(out, &d)
	}
	return out, nil
}
