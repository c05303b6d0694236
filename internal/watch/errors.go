package watch

import (
	"errors"
	"fmt"

	"github.com/roach88/edgewatch/internal/ir"
)

// WatchError describes a problem detected by the watcher.
//
// Evaluator faults and unresolved conditions are never returned to callers;
// they are built for the LogSink message and for pass reports. Registration
// errors (duplicates, unknown entries) are returned before any state changes.
type WatchError struct {
	// Code identifies the error category.
	Code WatchErrorCode

	// Message is a human-readable description.
	Message string

	// EntryID identifies the affected entry, if any.
	EntryID ir.EntryID

	// ConditionID identifies the affected condition, if any.
	ConditionID ir.ConditionID

	// Err is the underlying cause, if any.
	Err error
}

// WatchErrorCode categorizes watcher errors.
type WatchErrorCode string

const (
	// ErrCodeEvaluatorFault indicates a condition's check returned an error or panicked.
	ErrCodeEvaluatorFault WatchErrorCode = "EVALUATOR_FAULT"

	// ErrCodeUnresolved indicates no definition or instance evaluator exists for a condition.
	ErrCodeUnresolved WatchErrorCode = "UNRESOLVED_CONDITION"

	// ErrCodeDuplicateEntry indicates an entry ID is already registered.
	ErrCodeDuplicateEntry WatchErrorCode = "DUPLICATE_ENTRY"

	// ErrCodeDuplicateCondition indicates two conditions in one entry share an ID.
	ErrCodeDuplicateCondition WatchErrorCode = "DUPLICATE_CONDITION"

	// ErrCodeUnknownEntry indicates an operation named an entry that is not registered.
	ErrCodeUnknownEntry WatchErrorCode = "UNKNOWN_ENTRY"

	// ErrCodeInvalidEntry indicates an entry spec is malformed (e.g. empty ID).
	ErrCodeInvalidEntry WatchErrorCode = "INVALID_ENTRY"
)

// Error implements the error interface.
func (e *WatchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.EntryID != "" && e.ConditionID != "":
		msg = fmt.Sprintf("%s (entry=%s, condition=%s)", msg, e.EntryID, e.ConditionID)
	case e.EntryID != "":
		msg = fmt.Sprintf("%s (entry=%s)", msg, e.EntryID)
	case e.ConditionID != "":
		msg = fmt.Sprintf("%s (condition=%s)", msg, e.ConditionID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *WatchError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code WatchErrorCode) bool {
	var we *WatchError
	if errors.As(err, &we) {
		return we.Code == code
	}
	return false
}

// IsEvaluatorFault reports whether err is an evaluator fault.
func IsEvaluatorFault(err error) bool { return hasCode(err, ErrCodeEvaluatorFault) }

// IsUnresolved reports whether err is an unresolved-condition diagnostic.
func IsUnresolved(err error) bool { return hasCode(err, ErrCodeUnresolved) }

// IsDuplicate reports whether err rejects a duplicate entry or condition ID.
func IsDuplicate(err error) bool {
	return hasCode(err, ErrCodeDuplicateEntry) || hasCode(err, ErrCodeDuplicateCondition)
}

// IsUnknownEntry reports whether err names an unregistered entry.
func IsUnknownEntry(err error) bool { return hasCode(err, ErrCodeUnknownEntry) }

// NewEvaluatorFault wraps a failure raised by a condition's check.
func NewEvaluatorFault(cond ir.Condition, cause error) *WatchError {
	return &WatchError{
		Code:        ErrCodeEvaluatorFault,
		Message:     "error checking feedback",
		ConditionID: cond.ID,
		Err:         cause,
	}
}

// NewUnresolvedError reports a condition with no usable evaluator.
func NewUnresolvedError(cond ir.Condition) *WatchError {
	return &WatchError{
		Code:        ErrCodeUnresolved,
		Message:     fmt.Sprintf("unable to check feedback %q", cond.DisplayLabel()),
		ConditionID: cond.ID,
	}
}
