package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScope_Overlaps(t *testing.T) {
	full := Scope{Entity: "PLANT-1"}
	bolts := Scope{Entity: "PLANT-1", SKUs: []PartNumber{"BOLT", "NUT"}}
	nuts := Scope{Entity: "PLANT-1", SKUs: []PartNumber{"NUT"}}
	gears := Scope{Entity: "PLANT-1", SKUs: []PartNumber{"GEAR"}}
	otherPlant := Scope{Entity: "PLANT-2"}

	assert.True(t, full.Overlaps(gears))
	assert.True(t, bolts.Overlaps(nuts))
	assert.False(t, bolts.Overlaps(gears))
	assert.False(t, full.Overlaps(otherPlant))
}

func TestScope_Key(t *testing.T) {
	assert.Equal(t, "PLANT-1:*", Scope{Entity: "PLANT-1"}.Key())
	assert.Equal(t, "PLANT-1:A,B", Scope{Entity: "PLANT-1", SKUs: []PartNumber{"B", "A"}}.Key())
}
