package api

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// RunRequestDTO starts an MRP run. Empty skus plans every item.
type RunRequestDTO struct {
	Entity string   `json:"entity"`
	SKUs   []string `json:"skus"`
	Today  string   `json:"today,omitempty"`
}

type OpenLineDTO struct {
	ID               string           `json:"id,omitempty"`
	POID             string           `json:"po_id"`
	LineNumber       int              `json:"line_number"`
	PartNumber       string           `json:"part_number"`
	Quantity         decimal.Decimal  `json:"quantity"`
	UnitPrice        decimal.Decimal  `json:"unit_price"`
	TolerancePercent *decimal.Decimal `json:"tolerance_percent,omitempty"`
}

// MatchEventDTO is a receipt or invoice; event_key makes replays harmless
type MatchEventDTO struct {
	Quantity decimal.Decimal `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
	EventKey string          `json:"event_key,omitempty"`
}

type ReversalDTO struct {
	EventID string `json:"event_id"`
	Reason  string `json:"reason"`
}

type ResolutionDTO struct {
	ResolvedBy string `json:"resolved_by"`
	Notes      string `json:"notes"`
}

type PaymentDTO struct {
	PaymentRef string `json:"payment_ref"`
}

type HeaderStatusDTO struct {
	POID   string               `json:"po_id"`
	Status entities.MatchStatus `json:"match_status"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
