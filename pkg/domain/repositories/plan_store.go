package repositories

import (
	"context"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// PlanStore persists versioned plan snapshots and run records.
// CommitPlan is atomic: readers see either the previous or the new version, never a mix.
type PlanStore interface {
	// CommitPlan stores a snapshot as the next version and returns it with Version set.
	// baseVersion is the latest version the snapshot was merged onto (0 for none); if another
	// commit landed since, nothing is written and a ConflictError is returned.
	CommitPlan(ctx context.Context, snapshot *entities.PlanSnapshot, baseVersion int) (*entities.PlanSnapshot, error)
	LatestPlan(ctx context.Context) (*entities.PlanSnapshot, error)
	GetPlan(ctx context.Context, version int) (*entities.PlanSnapshot, error)

	SaveRun(ctx context.Context, run *entities.MRPRun) error
	GetRun(ctx context.Context, id string) (*entities.MRPRun, error)
	ListRuns(ctx context.Context) ([]*entities.MRPRun, error)

	// UpdateActionMessage flips review flags on a message of the latest plan
	UpdateActionMessage(ctx context.Context, id string, reviewed, implemented bool) (*entities.ActionMessage, error)
}

// MatchStore persists three-way match lines with optimistic versioning
type MatchStore interface {
	GetLine(ctx context.Context, id string) (*entities.MatchLine, error)
	// SaveLine writes the line if the stored version equals expectedVersion, bumping Version.
	// A new line is saved with expectedVersion 0. A mismatch returns a ConflictError.
	SaveLine(ctx context.Context, line *entities.MatchLine, expectedVersion int) error
	ListByPO(ctx context.Context, poID string) ([]*entities.MatchLine, error)
}
