package ir

// EntryID identifies a watched entry.
type EntryID string

// ConditionID identifies a condition within its entry. It is the cache key
// for the condition's last known value.
type ConditionID string

// SourceID identifies a source instance (the thing a condition observes).
type SourceID string

// Kind names a condition kind ("feedback type") defined by a source.
type Kind string

// Condition is an atomic boolean check bound to a source and a kind.
type Condition struct {
	ID       ConditionID `json:"id"`
	SourceID SourceID    `json:"source_id"`
	Kind     Kind        `json:"kind"`
	Label    string      `json:"label,omitempty"`
	Params   IRObject    `json:"params,omitempty"`
}

// DisplayLabel returns the label used in diagnostics. Falls back to
// "<source>:<kind>" when the condition has no label.
func (c Condition) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return string(c.SourceID) + ":" + string(c.Kind)
}

// Matches reports whether the condition falls inside a change scope.
// Empty sourceID or kind means that dimension is unconstrained.
func (c Condition) Matches(sourceID SourceID, kind Kind) bool {
	if kind != "" && c.Kind != kind {
		return false
	}
	if sourceID != "" && c.SourceID != sourceID {
		return false
	}
	return true
}

// EntrySpec is a watched rule as handed to the registry: an ordered list of
// conditions combined with logical AND.
type EntrySpec struct {
	ID         EntryID     `json:"id"`
	Conditions []Condition `json:"conditions"`
}

// Clone returns a deep-enough copy of the spec so callers cannot mutate the
// registered condition list.
func (s EntrySpec) Clone() EntrySpec {
	out := EntrySpec{ID: s.ID}
	if s.Conditions != nil {
		out.Conditions = make([]Condition, len(s.Conditions))
		copy(out.Conditions, s.Conditions)
	}
	return out
}

// SourceSpec declares a source instance with its initial variables.
type SourceSpec struct {
	ID    SourceID `json:"id"`
	Label string   `json:"label,omitempty"`
	Vars  IRObject `json:"vars,omitempty"`
}
