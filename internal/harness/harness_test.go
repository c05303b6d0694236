package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edgewatch/internal/ir"
)

func TestGoldenScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func mustParse(t *testing.T, yaml string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(yaml))
	require.NoError(t, err)
	return s
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "porch_light.yaml"))
	require.NoError(t, err)

	r1, err := Run(scenario)
	require.NoError(t, err)
	r2, err := Run(scenario)
	require.NoError(t, err)

	j1, err := MarshalTrace(scenario.Name, r1)
	require.NoError(t, err)
	j2, err := MarshalTrace(scenario.Name, r2)
	require.NoError(t, err)
	assert.Equal(t, string(j1), string(j2))
}

func TestRun_RegisterStepAssignsIDs(t *testing.T) {
	s := mustParse(t, `
name: register_step
description: conditions without IDs get sequence IDs
sources:
  - id: s
    vars: { ready: true }
steps:
  - register:
      id: late
      conditions:
        - { source: s, kind: flag, params: { var: ready } }
        - { source: s, kind: present, params: { var: ready } }
assertions:
  - { type: fired_count, entry: late, count: 1 }
  - { type: cached, entry: late, condition: gen-1, expect: true }
  - { type: cached, entry: late, condition: gen-2, expect: true }
  - { type: subscribers, source: s, count: 2 }
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, 1, result.Trace[0].Step)
	assert.Equal(t, []ir.ConditionID{"gen-1", "gen-2"}, result.Trace[0].Evaluated)
	assert.Equal(t, []ir.EntryID{"late"}, result.FiredEntries())
}

func TestRun_PanicFaultIsContained(t *testing.T) {
	s := mustParse(t, `
name: panic_fault
description: a panicking check is false and does not abort the run
sources:
  - id: s
    vars: { on: true }
entries:
  - id: e
    conditions:
      - { id: c, source: s, kind: flag, params: { var: on } }
steps:
  - fail: { source: s, kind: flag, panic: true }
  - touch: { source: s, kind: flag }
  - recover: { source: s, kind: flag }
  - touch: { source: s, kind: flag }
assertions:
  - { type: fired_count, entry: e, count: 2 }
  - { type: value, entry: e, expect: true }
  - { type: eval_count, entry: e, condition: c, count: 3 }
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []ir.ConditionID{"c"}, result.Trace[1].Faults)
	assert.False(t, result.Trace[1].Aggregate)
}

func TestRun_UnknownKindIsUnresolvedFalse(t *testing.T) {
	s := mustParse(t, `
name: unresolved
description: a kind with no definition falls back to the generic evaluator
sources:
  - id: s
    vars: { on: 1 }
entries:
  - id: generic
    conditions:
      - { id: g, source: s, kind: custom, params: { var: on } }
  - id: orphan
    conditions:
      - { id: o, source: ghost, kind: custom }
steps:
  - notify: {}
assertions:
  - { type: value, entry: generic, expect: true }
  - { type: value, entry: orphan, expect: false }
  - { type: fired_count, entry: generic, count: 1 }
  - { type: fired_count, entry: orphan, count: 0 }
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ExpectErrorMismatch(t *testing.T) {
	s := mustParse(t, `
name: expect_error
description: expect_error records a failure when the code differs
entries:
  - id: e
    conditions: []
steps:
  - register: { id: e, conditions: [] }
    expect_error: UNKNOWN_ENTRY
  - deregister: e
    expect_error: UNKNOWN_ENTRY
assertions:
  - { type: fired_count, entry: e, count: 0 }
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "got DUPLICATE_ENTRY")
	assert.Contains(t, result.Errors[1], "got none")
}

func TestRun_UnexpectedStepErrorAborts(t *testing.T) {
	s := mustParse(t, `
name: abort
description: an unexpected error stops the run
steps:
  - deregister: missing
assertions:
  - { type: fired_count, entry: missing, count: 0 }
`)
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNKNOWN_ENTRY")
}

func TestRun_FailedAssertions(t *testing.T) {
	s := mustParse(t, `
name: failing
description: every assertion type can fail
sources:
  - id: s
    vars: { on: false }
entries:
  - id: e
    conditions:
      - { id: a, source: s, kind: flag, params: { var: on } }
      - { id: b, source: s, kind: flag, params: { var: on } }
steps:
  - notify: { source: s }
assertions:
  - { type: fired_count, entry: e, count: 1 }
  - { type: value, entry: e, expect: true }
  - { type: eval_count, entry: e, condition: a, count: 1 }
  - { type: cached, entry: e, condition: b, expect: false }
  - { type: cached, entry: e, condition: a, absent: true }
  - { type: subscribers, source: s, count: 5 }
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[3], "no cached value")
}
