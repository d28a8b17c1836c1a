package capacity

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vsinha/mrp-planner/pkg/application/dto"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// SnapshotCache holds the last computed load profile. Readers may see a stale
// snapshot until the next Refresh replaces it.
type SnapshotCache struct {
	leveler *Leveler
	logger  zerolog.Logger

	mu       sync.RWMutex
	snapshot *dto.CapacitySnapshot
}

func NewSnapshotCache(leveler *Leveler, logger zerolog.Logger) *SnapshotCache {
	return &SnapshotCache{leveler: leveler, logger: logger.With().Str("component", "capacity").Logger()}
}

// Refresh recomputes the load profile from scratch and swaps it in
func (c *SnapshotCache) Refresh(planVersion int, in Input, now time.Time) *dto.CapacitySnapshot {
	loads, warnings := c.leveler.Compute(in)
	for _, w := range warnings {
		c.logger.Warn().Int("plan_version", planVersion).Msg(w)
	}

	snap := &dto.CapacitySnapshot{PlanVersion: planVersion, ComputedAt: now, Loads: loads}
	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()

	c.logger.Info().
		Int("plan_version", planVersion).
		Int("loads", len(loads)).
		Int("overloaded", len(Overloaded(loads))).
		Msg("capacity snapshot refreshed")
	return snap
}

// Current returns the last snapshot, or nil before the first refresh
func (c *SnapshotCache) Current() *dto.CapacitySnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// At returns the loads of the bucket containing period. ok is false before the first refresh.
func (c *SnapshotCache) At(period time.Time) (loads []entities.WorkCenterLoad, ok bool) {
	snap := c.Current()
	if snap == nil {
		return nil, false
	}
	return snap.LoadsAt(period), true
}
