package entities

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RunStatus is the lifecycle of an MRP run record
type RunStatus string

const (
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// Scope selects what an MRP run plans. An empty SKU list is a regenerative run over every item.
type Scope struct {
	Entity string       `json:"entity"`
	SKUs   []PartNumber `json:"skus,omitempty"`
}

// IsFull reports a regenerative (all items) scope
func (s Scope) IsFull() bool {
	return len(s.SKUs) == 0
}

// Key is a stable textual form of the scope, used for locking and logging
func (s Scope) Key() string {
	if s.IsFull() {
		return s.Entity + ":*"
	}
	skus := make([]string, len(s.SKUs))
	for i, pn := range s.SKUs {
		skus[i] = string(pn)
	}
	sort.Strings(skus)
	return s.Entity + ":" + strings.Join(skus, ",")
}

// Overlaps reports whether two scopes touch a common item of the same entity
func (s Scope) Overlaps(other Scope) bool {
	if s.Entity != other.Entity {
		return false
	}
	if s.IsFull() || other.IsFull() {
		return true
	}
	seen := make(map[PartNumber]bool, len(s.SKUs))
	for _, pn := range s.SKUs {
		seen[pn] = true
	}
	for _, pn := range other.SKUs {
		if seen[pn] {
			return true
		}
	}
	return false
}

// MRPRun is the audit record of one run
type MRPRun struct {
	ID          string     `json:"id"`
	Scope       Scope      `json:"scope"`
	Status      RunStatus  `json:"status"`
	Version     int        `json:"version,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Warnings    int        `json:"warnings"`
	Errors      int        `json:"errors"`
}

// IssueSeverity classifies a per-item planning issue
type IssueSeverity string

const (
	SeverityWarning IssueSeverity = "WARNING"
	SeverityError   IssueSeverity = "ERROR"
)

// Issue codes raised during planning
const (
	IssueMissingLeadTime  = "MISSING_LEAD_TIME"
	IssueCyclicDependency = "CYCLIC_DEPENDENCY"
	IssueConfiguration    = "CONFIGURATION"
	IssueUnknownItem      = "UNKNOWN_ITEM"
	IssueCarryover        = "CARRYOVER"
	IssueOutsideHorizon   = "OUTSIDE_HORIZON"
	IssueDuplicateBOMLine = "DUPLICATE_BOM_LINE"
	IssueUnknownBOMPart   = "UNKNOWN_BOM_PART"
)

// ItemIssue is a warning or error attached to one item of a run
type ItemIssue struct {
	Severity   IssueSeverity `json:"severity"`
	Code       string        `json:"code"`
	PartNumber PartNumber    `json:"part_number"`
	Message    string        `json:"message"`
}

// BucketTrace is the netting arithmetic of one item in one bucket
type BucketTrace struct {
	Bucket            int             `json:"bucket"`
	Start             time.Time       `json:"start"`
	GrossRequirement  decimal.Decimal `json:"gross_requirement"`
	ScheduledReceipts decimal.Decimal `json:"scheduled_receipts"`
	BeginningBalance  decimal.Decimal `json:"beginning_balance"`
	SafetyStock       decimal.Decimal `json:"safety_stock"`
	NetRequirement    decimal.Decimal `json:"net_requirement"`
	PlannedReceipt    decimal.Decimal `json:"planned_receipt"`
	PlannedRelease    decimal.Decimal `json:"planned_release"`
	EndingBalance     decimal.Decimal `json:"ending_balance"`
}

// ItemTrace is the full bucket-by-bucket trace for one item
type ItemTrace struct {
	PartNumber   PartNumber      `json:"part_number"`
	LowLevelCode int             `json:"low_level_code"`
	Buckets      []BucketTrace   `json:"buckets"`
	Carryover    decimal.Decimal `json:"carryover"`
}

// PlanSnapshot is one committed, versioned plan
type PlanSnapshot struct {
	Version        int                       `json:"version"`
	RunID          string                    `json:"run_id"`
	Scope          Scope                     `json:"scope"`
	CreatedAt      time.Time                 `json:"created_at"`
	HorizonStart   time.Time                 `json:"horizon_start"`
	BucketDays     int                       `json:"bucket_days"`
	BucketCount    int                       `json:"bucket_count"`
	PlannedOrders  []*PlannedOrder           `json:"planned_orders"`
	ActionMessages []*ActionMessage          `json:"action_messages"`
	Traces         map[PartNumber]*ItemTrace `json:"traces"`
	Issues         []ItemIssue               `json:"issues"`
}

// Horizon rebuilds the bucket calendar the snapshot was planned on
func (p *PlanSnapshot) Horizon() (Horizon, error) {
	return NewHorizon(p.HorizonStart, p.BucketDays, p.BucketCount)
}

// OrdersFor returns the planned orders of one item
func (p *PlanSnapshot) OrdersFor(pn PartNumber) []*PlannedOrder {
	var out []*PlannedOrder
	for _, o := range p.PlannedOrders {
		if o.PartNumber == pn {
			out = append(out, o)
		}
	}
	return out
}
