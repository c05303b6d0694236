// Package watch implements the edgewatch condition watcher.
//
// A watched entry is an ordered list of conditions combined with logical AND.
// The watcher caches each condition's last value, re-evaluates only the
// conditions a change notification could have affected, and fires the entry's
// action exactly on a rising edge of the aggregate value.
//
// ARCHITECTURE:
//
// Components:
//   - ConditionCache: per-entry ConditionID -> bool, absence means "never evaluated"
//   - ConditionEvaluator: resolves and invokes one condition's check, never fails
//   - Engine: one entry pass (skip policy, short-circuit AND, edge detection)
//   - Registry: owns entries in registration order and routes notifications
//   - Loop: FIFO command queue drained by one goroutine for multi-threaded hosts
//
// Pass Flow:
//  1. Notify(source, kind) arrives at the Registry
//  2. Registry calls Engine.Reevaluate for every entry in registration order
//  3. Engine reuses cached values outside the change scope, evaluates the rest
//  4. Aggregate is folded with short-circuit AND
//  5. A non-true -> true transition triggers the entry's action
//
// The Registry is single-writer and does no locking of its own. Hosts that
// deliver notifications from several goroutines go through Loop, which
// serializes every command onto the goroutine calling Run.
//
// Failure model: nothing inside a pass is surfaced to the caller. Evaluator
// faults and unresolved conditions degrade that one condition to false and
// are reported through the LogSink.
package watch
