package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

// MatchStore keeps match lines in memory with version checks on save
type MatchStore struct {
	mu    sync.RWMutex
	lines map[string]*entities.MatchLine
}

func NewMatchStore() *MatchStore {
	return &MatchStore{lines: make(map[string]*entities.MatchLine)}
}

var _ repositories.MatchStore = (*MatchStore)(nil)

func (s *MatchStore) GetLine(_ context.Context, id string) (*entities.MatchLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	line, ok := s.lines[id]
	if !ok {
		return nil, fmt.Errorf("match line %s: %w", id, entities.ErrNotFound)
	}
	return line.Clone(), nil
}

// SaveLine stores a copy of the line when the stored version matches
func (s *MatchStore) SaveLine(_ context.Context, line *entities.MatchLine, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	actual := 0
	if stored, ok := s.lines[line.ID]; ok {
		actual = stored.Version
	}
	if actual != expectedVersion {
		return &entities.ConflictError{Resource: "match line " + line.ID, Expected: expectedVersion, Actual: actual}
	}
	saved := line.Clone()
	saved.Version = expectedVersion + 1
	s.lines[line.ID] = saved
	line.Version = saved.Version
	return nil
}

// ListByPO returns the lines of a purchase order ordered by line number
func (s *MatchStore) ListByPO(_ context.Context, poID string) ([]*entities.MatchLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entities.MatchLine
	for _, line := range s.lines {
		if line.POID == poID {
			out = append(out, line.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LineNumber < out[j].LineNumber })
	return out, nil
}
