package events

import (
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

const (
	PlanCommittedEvent   = "plan.committed"
	RunFailedEvent       = "run.failed"
	ActionGeneratedEvent = "action.generated"

	MatchStatusChangedEvent = "match.status_changed"
	MatchReadyToPayEvent    = "match.ready_to_pay"
)

// PlanCommitted is published once a run's snapshot is the latest plan version
type PlanCommitted struct {
	RunID          string
	Version        int
	Scope          entities.Scope
	PlannedOrders  int
	ActionMessages int
	Errors         int
	Warnings       int
}

type RunFailed struct {
	RunID string
	Scope entities.Scope
	Error string
}

type ActionGenerated struct {
	Version int
	Message entities.ActionMessage
}

type MatchStatusChanged struct {
	MatchID string
	POID    string
	Change  entities.StatusChange
}

// MatchReadyToPay is the accounts-payable trigger
type MatchReadyToPay struct {
	MatchID       string
	POID          string
	InvoiceAmount string
}

func NewPlanCommittedEvent(data PlanCommitted) Event {
	return NewEvent(PlanCommittedEvent, "plan", data)
}

func NewRunFailedEvent(data RunFailed) Event {
	return NewEvent(RunFailedEvent, "plan", data)
}

func NewActionGeneratedEvent(version int, msg entities.ActionMessage) Event {
	return NewEvent(ActionGeneratedEvent, string(msg.PartNumber), ActionGenerated{Version: version, Message: msg})
}

func NewMatchStatusChangedEvent(line *entities.MatchLine, change entities.StatusChange) Event {
	return NewEvent(MatchStatusChangedEvent, "match-"+line.ID, MatchStatusChanged{
		MatchID: line.ID,
		POID:    line.POID,
		Change:  change,
	})
}

func NewMatchReadyToPayEvent(line *entities.MatchLine) Event {
	return NewEvent(MatchReadyToPayEvent, "po-"+line.POID, MatchReadyToPay{
		MatchID:       line.ID,
		POID:          line.POID,
		InvoiceAmount: line.InvoiceAmount.StringFixed(2),
	})
}
