package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BOMLine represents a single line in a Bill of Materials
type BOMLine struct {
	ParentPN   PartNumber
	ChildPN    PartNumber
	QtyPer     decimal.Decimal
	FindNumber int
	// OffsetDays moves the component need earlier than the parent's release date
	OffsetDays int
}

// NewBOMLine creates a validated BOMLine
func NewBOMLine(parentPN, childPN PartNumber, qtyPer decimal.Decimal, findNumber, offsetDays int) (*BOMLine, error) {
	if string(parentPN) == "" {
		return nil, fmt.Errorf("parent part number cannot be empty")
	}
	if string(childPN) == "" {
		return nil, fmt.Errorf("child part number cannot be empty")
	}
	if parentPN == childPN {
		return nil, &CyclicDependencyError{Path: []PartNumber{parentPN, childPN}}
	}
	if !qtyPer.IsPositive() {
		return nil, fmt.Errorf("quantity per must be positive, got %s", qtyPer)
	}
	if findNumber <= 0 {
		return nil, fmt.Errorf("find number must be positive, got %d", findNumber)
	}
	if offsetDays < 0 {
		return nil, fmt.Errorf("offset days cannot be negative, got %d", offsetDays)
	}

	return &BOMLine{
		ParentPN:   parentPN,
		ChildPN:    childPN,
		QtyPer:     qtyPer,
		FindNumber: findNumber,
		OffsetDays: offsetDays,
	}, nil
}
