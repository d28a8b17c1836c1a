package dto

import (
	"time"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// PlanResult contains the complete output of an MRP run
type PlanResult struct {
	RunID          string                                      `json:"run_id"`
	Version        int                                         `json:"version"`
	Status         entities.RunStatus                          `json:"status"`
	Scope          entities.Scope                              `json:"scope"`
	PlannedOrders  []*entities.PlannedOrder                    `json:"planned_orders"`
	ActionMessages []*entities.ActionMessage                   `json:"action_messages"`
	Traces         map[entities.PartNumber]*entities.ItemTrace `json:"traces,omitempty"`
	Issues         []entities.ItemIssue                        `json:"errors"`
	StartedAt      time.Time                                   `json:"started_at"`
	CompletedAt    time.Time                                   `json:"completed_at"`
}

// ErrorCount returns the number of ERROR severity issues
func (r *PlanResult) ErrorCount() int {
	return r.countIssues(entities.SeverityError)
}

// WarningCount returns the number of WARNING severity issues
func (r *PlanResult) WarningCount() int {
	return r.countIssues(entities.SeverityWarning)
}

func (r *PlanResult) countIssues(sev entities.IssueSeverity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			n++
		}
	}
	return n
}

// FromSnapshot builds a result view of a committed plan
func FromSnapshot(s *entities.PlanSnapshot, run *entities.MRPRun) *PlanResult {
	r := &PlanResult{
		Version:        s.Version,
		RunID:          s.RunID,
		Scope:          s.Scope,
		Status:         entities.RunCompleted,
		PlannedOrders:  s.PlannedOrders,
		ActionMessages: s.ActionMessages,
		Traces:         s.Traces,
		Issues:         s.Issues,
		StartedAt:      s.CreatedAt,
		CompletedAt:    s.CreatedAt,
	}
	if run != nil {
		r.Status = run.Status
		r.StartedAt = run.StartedAt
		if run.CompletedAt != nil {
			r.CompletedAt = *run.CompletedAt
		}
	}
	return r
}
