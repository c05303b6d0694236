package watch

import (
	"fmt"
	"log/slog"

	"github.com/roach88/edgewatch/internal/ir"
)

// ResolutionKind tags which evaluator a condition resolved to.
type ResolutionKind int

const (
	// Unresolved means neither a definition evaluator nor an instance fallback exists.
	Unresolved ResolutionKind = iota
	// ResolvedDefinition means the (source, kind) definition carries an evaluator.
	ResolvedDefinition
	// ResolvedInstance means the source instance's generic evaluator is used.
	ResolvedInstance
)

// String returns a short name for logs and traces.
func (k ResolutionKind) String() string {
	switch k {
	case ResolvedDefinition:
		return "definition"
	case ResolvedInstance:
		return "instance"
	default:
		return "unresolved"
	}
}

// Resolution is the result of looking up a condition's evaluator.
type Resolution struct {
	Kind      ResolutionKind
	Evaluator EvaluatorFunc
}

// Resolve picks the evaluator for a condition: the definition's own callback
// first, then the instance's generic evaluator.
func Resolve(r Resolver, cond ir.Condition) Resolution {
	if def, ok := r.Definition(cond.SourceID, cond.Kind); ok && def.Evaluator != nil {
		return Resolution{Kind: ResolvedDefinition, Evaluator: def.Evaluator}
	}
	if inst, ok := r.Instance(cond.SourceID); ok && inst != nil {
		if fn := inst.GenericEvaluator(); fn != nil {
			return Resolution{Kind: ResolvedInstance, Evaluator: fn}
		}
	}
	return Resolution{Kind: Unresolved}
}

// OutcomeStatus classifies how a single evaluation ended.
type OutcomeStatus string

const (
	OutcomeOK         OutcomeStatus = "ok"
	OutcomeFault      OutcomeStatus = "fault"
	OutcomeUnresolved OutcomeStatus = "unresolved"
	OutcomeMalformed  OutcomeStatus = "malformed"
)

// Outcome is the normalized result of evaluating one condition.
type Outcome struct {
	Value  bool
	Status OutcomeStatus
	Via    ResolutionKind
	Err    error
}

// ConditionEvaluator resolves and invokes condition checks. It never fails:
// faults, missing evaluators and non-boolean results all become false.
type ConditionEvaluator struct {
	resolver Resolver
	log      LogSink
}

// NewConditionEvaluator creates an evaluator over the given collaborators.
func NewConditionEvaluator(resolver Resolver, log LogSink) *ConditionEvaluator {
	c := Collaborators{Resolver: resolver, Log: log}.withDefaults()
	return &ConditionEvaluator{resolver: c.Resolver, log: c.Log}
}

// Evaluate returns the condition's current truth value.
func (e *ConditionEvaluator) Evaluate(cond ir.Condition) bool {
	return e.EvaluateOutcome(cond).Value
}

// EvaluateOutcome evaluates the condition and reports how the value was
// obtained.
func (e *ConditionEvaluator) EvaluateOutcome(cond ir.Condition) Outcome {
	res := Resolve(e.resolver, cond)
	if res.Kind == Unresolved {
		err := NewUnresolvedError(cond)
		slog.Debug("condition unresolved",
			"condition_id", cond.ID,
			"source_id", cond.SourceID,
			"kind", cond.Kind,
		)
		e.log.Log(feedbackLabel(cond), slog.LevelDebug, err.Message)
		return Outcome{Status: OutcomeUnresolved, Via: Unresolved, Err: err}
	}

	raw, err := invoke(res.Evaluator, cond)
	if err != nil {
		fault := NewEvaluatorFault(cond, err)
		e.log.Log(feedbackLabel(cond), slog.LevelWarn, "Error checking feedback: "+err.Error())
		return Outcome{Status: OutcomeFault, Via: res.Kind, Err: fault}
	}

	value, ok := coerceBool(raw)
	if !ok {
		return Outcome{Status: OutcomeMalformed, Via: res.Kind}
	}
	return Outcome{Value: value, Status: OutcomeOK, Via: res.Kind}
}

// invoke calls fn inside a failure boundary; a panic becomes an error.
func invoke(fn EvaluatorFunc, cond ir.Condition) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(cond)
}

func coerceBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case ir.IRBool:
		return bool(b), true
	default:
		return false, false
	}
}

func feedbackLabel(cond ir.Condition) string {
	return "feedback(" + cond.DisplayLabel() + ")"
}
