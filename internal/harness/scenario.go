package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/edgewatch/internal/ir"
)

// Scenario defines a conformance test scenario: sources and entries to
// start from, a sequence of steps that change sources or the rule set, and
// assertions on the resulting registry state.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Sources are added to the catalog before any entry is registered.
	Sources []SourceDecl `yaml:"sources,omitempty"`

	// Entries are registered in order before the first step.
	Entries []EntryDecl `yaml:"entries,omitempty"`

	// Steps run in order after setup.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// SourceDecl declares a source instance.
type SourceDecl struct {
	ID    string         `yaml:"id"`
	Label string         `yaml:"label,omitempty"`
	Vars  map[string]any `yaml:"vars,omitempty"`
}

// EntryDecl declares a watched entry.
type EntryDecl struct {
	ID         string          `yaml:"id"`
	Conditions []ConditionDecl `yaml:"conditions"`
}

// ConditionDecl declares one condition of an entry.
type ConditionDecl struct {
	ID     string         `yaml:"id,omitempty"`
	Source string         `yaml:"source"`
	Kind   string         `yaml:"kind"`
	Label  string         `yaml:"label,omitempty"`
	Params map[string]any `yaml:"params,omitempty"`
}

// Step is one scenario action. Exactly one action field must be set.
type Step struct {
	// Set writes a source variable (notifies the source on change).
	Set *SetStep `yaml:"set,omitempty"`

	// Touch notifies one kind of a source without changing anything.
	Touch *SourceKind `yaml:"touch,omitempty"`

	// Notify delivers a raw change notification to the registry.
	// Either field may be empty.
	Notify *SourceKind `yaml:"notify,omitempty"`

	// Register adds an entry.
	Register *EntryDecl `yaml:"register,omitempty"`

	// Deregister removes an entry by ID.
	Deregister string `yaml:"deregister,omitempty"`

	// Fail makes a (source, kind) check return an error until Recover.
	Fail *FaultStep `yaml:"fail,omitempty"`

	// Recover restores a (source, kind) check broken by Fail.
	Recover *SourceKind `yaml:"recover,omitempty"`

	// ExpectError is the watch error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// SetStep writes a variable on a source.
type SetStep struct {
	Source string `yaml:"source"`
	Var    string `yaml:"var"`
	Value  any    `yaml:"value"`
}

// SourceKind names a source and optionally one of its kinds.
type SourceKind struct {
	Source string `yaml:"source"`
	Kind   string `yaml:"kind,omitempty"`
}

// FaultStep injects an evaluator fault.
type FaultStep struct {
	Source  string `yaml:"source"`
	Kind    string `yaml:"kind"`
	Message string `yaml:"message,omitempty"`
	// Panic makes the check panic instead of returning an error.
	Panic bool `yaml:"panic,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "fired_count": entry fired exactly Count times
	// - "value": entry's aggregate equals Expect
	// - "eval_count": condition was evaluated exactly Count times
	// - "cached": condition's cached value equals Expect (or is absent)
	// - "subscribers": source has exactly Count subscribed conditions
	Type string `yaml:"type"`

	Entry     string `yaml:"entry,omitempty"`
	Condition string `yaml:"condition,omitempty"`
	Source    string `yaml:"source,omitempty"`
	Count     int    `yaml:"count,omitempty"`
	Expect    *bool  `yaml:"expect,omitempty"`
	Absent    bool   `yaml:"absent,omitempty"`
}

// Assertion type constants.
const (
	AssertFiredCount  = "fired_count"
	AssertValue       = "value"
	AssertEvalCount   = "eval_count"
	AssertCached      = "cached"
	AssertSubscribers = "subscribers"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, src := range s.Sources {
		if src.ID == "" {
			return fmt.Errorf("sources[%d]: id is required", i)
		}
	}
	for i, e := range s.Entries {
		if err := validateEntryDecl(fmt.Sprintf("entries[%d]", i), &e); err != nil {
			return err
		}
	}
	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

func validateEntryDecl(field string, e *EntryDecl) error {
	if e.ID == "" {
		return fmt.Errorf("%s: id is required", field)
	}
	for j, c := range e.Conditions {
		if c.Source == "" || c.Kind == "" {
			return fmt.Errorf("%s.conditions[%d]: source and kind are required", field, j)
		}
	}
	return nil
}

// validateStep checks that exactly one action is set.
func validateStep(i int, st *Step) error {
	n := 0
	for _, set := range []bool{
		st.Set != nil,
		st.Touch != nil,
		st.Notify != nil,
		st.Register != nil,
		st.Deregister != "",
		st.Fail != nil,
		st.Recover != nil,
	} {
		if set {
			n++
		}
	}
	if n != 1 {
		return fmt.Errorf("steps[%d]: exactly one action is required, got %d", i, n)
	}

	switch {
	case st.Set != nil:
		if st.Set.Source == "" || st.Set.Var == "" {
			return fmt.Errorf("steps[%d].set: source and var are required", i)
		}
		if st.Set.Value == nil {
			return fmt.Errorf("steps[%d].set: value is required", i)
		}
	case st.Touch != nil:
		if st.Touch.Source == "" {
			return fmt.Errorf("steps[%d].touch: source is required", i)
		}
	case st.Register != nil:
		return validateEntryDecl(fmt.Sprintf("steps[%d].register", i), st.Register)
	case st.Fail != nil:
		if st.Fail.Source == "" || st.Fail.Kind == "" {
			return fmt.Errorf("steps[%d].fail: source and kind are required", i)
		}
	case st.Recover != nil:
		if st.Recover.Source == "" || st.Recover.Kind == "" {
			return fmt.Errorf("steps[%d].recover: source and kind are required", i)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFiredCount:
		if a.Entry == "" {
			return fmt.Errorf("assertions[%d]: entry is required for fired_count", index)
		}
	case AssertValue:
		if a.Entry == "" || a.Expect == nil {
			return fmt.Errorf("assertions[%d]: entry and expect are required for value", index)
		}
	case AssertEvalCount:
		if a.Entry == "" || a.Condition == "" {
			return fmt.Errorf("assertions[%d]: entry and condition are required for eval_count", index)
		}
	case AssertCached:
		if a.Entry == "" || a.Condition == "" {
			return fmt.Errorf("assertions[%d]: entry and condition are required for cached", index)
		}
		if (a.Expect == nil) == !a.Absent {
			return fmt.Errorf("assertions[%d]: cached needs exactly one of expect or absent", index)
		}
	case AssertSubscribers:
		if a.Source == "" {
			return fmt.Errorf("assertions[%d]: source is required for subscribers", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}

// toSourceSpec converts a declaration into a SourceSpec.
func (d SourceDecl) toSourceSpec() (ir.SourceSpec, error) {
	vars, err := ir.ObjectFromGo(d.Vars)
	if err != nil {
		return ir.SourceSpec{}, fmt.Errorf("source %s vars: %w", d.ID, err)
	}
	return ir.SourceSpec{ID: ir.SourceID(d.ID), Label: d.Label, Vars: vars}, nil
}

// toEntrySpec converts a declaration into an EntrySpec.
func (d EntryDecl) toEntrySpec() (ir.EntrySpec, error) {
	spec := ir.EntrySpec{ID: ir.EntryID(d.ID)}
	for i, c := range d.Conditions {
		params, err := ir.ObjectFromGo(c.Params)
		if err != nil {
			return ir.EntrySpec{}, fmt.Errorf("entry %s conditions[%d] params: %w", d.ID, i, err)
		}
		spec.Conditions = append(spec.Conditions, ir.Condition{
			ID:       ir.ConditionID(c.ID),
			SourceID: ir.SourceID(c.Source),
			Kind:     ir.Kind(c.Kind),
			Label:    c.Label,
			Params:   params,
		})
	}
	return spec, nil
}
