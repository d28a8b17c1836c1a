package memory

import (
	"context"
	"sync"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

// BOMRepository stores BOM lines with an index by parent part
type BOMRepository struct {
	mu         sync.RWMutex
	bomLines   []entities.BOMLine
	bomIndexes map[entities.PartNumber][]int
}

// NewBOMRepository creates an in-memory BOM repository
func NewBOMRepository(expectedBOMLines int) *BOMRepository {
	return &BOMRepository{
		bomLines:   make([]entities.BOMLine, 0, expectedBOMLines),
		bomIndexes: make(map[entities.PartNumber][]int),
	}
}

// Verify interface compliance
var _ repositories.BOMRepository = (*BOMRepository)(nil)

// LoadBOMLines loads BOM lines into the repository
func (r *BOMRepository) LoadBOMLines(_ context.Context, lines []*entities.BOMLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, line := range lines {
		index := len(r.bomLines)
		r.bomLines = append(r.bomLines, *line)
		r.bomIndexes[line.ParentPN] = append(r.bomIndexes[line.ParentPN], index)
	}
	return nil
}

// GetBOMLines returns the direct children of a parent part
func (r *BOMRepository) GetBOMLines(_ context.Context, parentPN entities.PartNumber) ([]*entities.BOMLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	indexes := r.bomIndexes[parentPN]
	lines := make([]*entities.BOMLine, 0, len(indexes))
	for _, idx := range indexes {
		line := r.bomLines[idx]
		lines = append(lines, &line)
	}
	return lines, nil
}

// GetAllBOMLines returns every BOM line
func (r *BOMRepository) GetAllBOMLines(_ context.Context) ([]*entities.BOMLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lines := make([]*entities.BOMLine, 0, len(r.bomLines))
	for i := range r.bomLines {
		line := r.bomLines[i]
		lines = append(lines, &line)
	}
	return lines, nil
}
