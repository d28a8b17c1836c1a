package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DemandSource identifies where a gross requirement comes from
type DemandSource int

const (
	SourceForecast DemandSource = iota
	SourceSalesOrder
	SourceDependent
)

// String method for DemandSource enum
func (s DemandSource) String() string {
	switch s {
	case SourceForecast:
		return "FORECAST"
	case SourceSalesOrder:
		return "SALES_ORDER"
	case SourceDependent:
		return "DEPENDENT"
	default:
		return "UNKNOWN"
	}
}

// ParseDemandSource parses the textual form of a DemandSource
func ParseDemandSource(s string) (DemandSource, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FORECAST":
		return SourceForecast, nil
	case "SALES_ORDER", "MPS":
		return SourceSalesOrder, nil
	case "DEPENDENT":
		return SourceDependent, nil
	default:
		return SourceForecast, fmt.Errorf("invalid demand source: %s (expected FORECAST, SALES_ORDER or DEPENDENT)", s)
	}
}

// DemandLine is a gross requirement for a part at a date.
// Dependent lines are produced by exploding a parent's planned order.
type DemandLine struct {
	PartNumber PartNumber      `json:"part_number"`
	NeedDate   time.Time       `json:"need_date"`
	Quantity   decimal.Decimal `json:"quantity"`
	Source     DemandSource    `json:"source"`
	// Reference is the sales order, forecast id or parent planned order id
	Reference string `json:"reference,omitempty"`
}

func (s DemandSource) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *DemandSource) UnmarshalText(b []byte) error {
	v, err := ParseDemandSource(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
