package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

// PlanStore keeps committed snapshots in memory. Snapshots are never mutated after commit;
// review flag updates swap in a copy of the latest snapshot.
type PlanStore struct {
	mu        sync.RWMutex
	snapshots []*entities.PlanSnapshot
	runs      map[string]entities.MRPRun
}

func NewPlanStore() *PlanStore {
	return &PlanStore{runs: make(map[string]entities.MRPRun)}
}

var _ repositories.PlanStore = (*PlanStore)(nil)

// CommitPlan appends the snapshot as the next version if baseVersion is still the latest
func (s *PlanStore) CommitPlan(ctx context.Context, snapshot *entities.PlanSnapshot, baseVersion int) (*entities.PlanSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if current := len(s.snapshots); current != baseVersion {
		return nil, &entities.ConflictError{Resource: "plan", Expected: baseVersion, Actual: current}
	}
	committed := *snapshot
	committed.Version = len(s.snapshots) + 1
	s.snapshots = append(s.snapshots, &committed)
	return &committed, nil
}

func (s *PlanStore) LatestPlan(_ context.Context) (*entities.PlanSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.snapshots) == 0 {
		return nil, fmt.Errorf("plan: %w", entities.ErrNotFound)
	}
	return s.snapshots[len(s.snapshots)-1], nil
}

func (s *PlanStore) GetPlan(_ context.Context, version int) (*entities.PlanSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if version < 1 || version > len(s.snapshots) {
		return nil, fmt.Errorf("plan version %d: %w", version, entities.ErrNotFound)
	}
	return s.snapshots[version-1], nil
}

func (s *PlanStore) SaveRun(_ context.Context, run *entities.MRPRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

func (s *PlanStore) GetRun(_ context.Context, id string) (*entities.MRPRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, entities.ErrNotFound)
	}
	return &run, nil
}

// ListRuns returns runs newest first
func (s *PlanStore) ListRuns(_ context.Context) ([]*entities.MRPRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entities.MRPRun, 0, len(s.runs))
	for _, run := range s.runs {
		r := run
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateActionMessage sets review flags on a message of the latest plan
func (s *PlanStore) UpdateActionMessage(_ context.Context, id string, reviewed, implemented bool) (*entities.ActionMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snapshots) == 0 {
		return nil, fmt.Errorf("action message %s: %w", id, entities.ErrNotFound)
	}
	latest := s.snapshots[len(s.snapshots)-1]
	for i, msg := range latest.ActionMessages {
		if msg.ID != id {
			continue
		}
		updated := *msg
		updated.IsReviewed = updated.IsReviewed || reviewed || implemented
		updated.IsImplemented = updated.IsImplemented || implemented

		messages := make([]*entities.ActionMessage, len(latest.ActionMessages))
		copy(messages, latest.ActionMessages)
		messages[i] = &updated
		next := *latest
		next.ActionMessages = messages
		s.snapshots[len(s.snapshots)-1] = &next

		result := updated
		return &result, nil
	}
	return nil, fmt.Errorf("action message %s: %w", id, entities.ErrNotFound)
}
