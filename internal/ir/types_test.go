package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionMatches(t *testing.T) {
	c := Condition{ID: "c1", SourceID: "lights", Kind: "flag"}

	tests := []struct {
		source SourceID
		kind   Kind
		want   bool
	}{
		{"", "", true},
		{"lights", "", true},
		{"", "flag", true},
		{"lights", "flag", true},
		{"door", "", false},
		{"", "equals", false},
		{"lights", "equals", false},
		{"door", "flag", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Matches(tt.source, tt.kind), "source=%q kind=%q", tt.source, tt.kind)
	}
}

func TestDisplayLabel(t *testing.T) {
	assert.Equal(t, "lights on", Condition{SourceID: "lights", Kind: "flag", Label: "lights on"}.DisplayLabel())
	assert.Equal(t, "lights:flag", Condition{SourceID: "lights", Kind: "flag"}.DisplayLabel())
}

func TestEntrySpecCloneIsolatesConditions(t *testing.T) {
	spec := EntrySpec{ID: "e", Conditions: []Condition{{ID: "a"}}}
	clone := spec.Clone()
	clone.Conditions[0].ID = "b"
	assert.Equal(t, ConditionID("a"), spec.Conditions[0].ID)

	assert.Nil(t, EntrySpec{ID: "empty"}.Clone().Conditions)
}
