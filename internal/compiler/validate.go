package compiler

import (
	"fmt"

	"github.com/roach88/edgewatch/internal/ir"
	"github.com/roach88/edgewatch/internal/source"
)

// Validation error codes (E200-E299)
const (
	ErrUnknownSource    = "E201" // condition references an undeclared source
	ErrEntryEmpty       = "E202" // entry has no conditions and can never fire
	ErrMissingVarParam  = "E203" // built-in kind without params.var
	ErrMissingValue     = "E204" // equals kind without params.value
	ErrDuplicateSource  = "E205" // source declared twice
	ErrDuplicateEntryID = "E206" // entry declared twice
)

// ValidationError represents a rule validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks compiled rules for cross-references the CUE compiler
// cannot see. Returns all errors found (does not fail-fast).
func Validate(rules *Rules) []ValidationError {
	var errs []ValidationError

	sources := make(map[ir.SourceID]bool, len(rules.Sources))
	for _, s := range rules.Sources {
		if sources[s.ID] {
			errs = append(errs, ValidationError{
				Field:   "source." + string(s.ID),
				Message: "source declared more than once",
				Code:    ErrDuplicateSource,
			})
		}
		sources[s.ID] = true
	}

	entries := make(map[ir.EntryID]bool, len(rules.Entries))
	for _, e := range rules.Entries {
		prefix := "watch." + string(e.ID)
		if entries[e.ID] {
			errs = append(errs, ValidationError{
				Field:   prefix,
				Message: "entry declared more than once",
				Code:    ErrDuplicateEntryID,
			})
		}
		entries[e.ID] = true

		if len(e.Conditions) == 0 {
			errs = append(errs, ValidationError{
				Field:   prefix + ".conditions",
				Message: "entry has no conditions and will never fire",
				Code:    ErrEntryEmpty,
			})
		}

		for i, c := range e.Conditions {
			errs = append(errs, validateCondition(fmt.Sprintf("%s.conditions[%d]", prefix, i), c, sources)...)
		}
	}

	return errs
}

func validateCondition(field string, c ir.Condition, sources map[ir.SourceID]bool) []ValidationError {
	var errs []ValidationError

	if !sources[c.SourceID] {
		errs = append(errs, ValidationError{
			Field:   field + ".source",
			Message: fmt.Sprintf("unknown source %q", c.SourceID),
			Code:    ErrUnknownSource,
		})
	}

	switch c.Kind {
	case source.KindFlag, source.KindEquals, source.KindPresent, source.KindVar:
		if c.Params.String("var") == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".params.var",
				Message: fmt.Sprintf("kind %q requires params.var", c.Kind),
				Code:    ErrMissingVarParam,
			})
		}
	}

	if c.Kind == source.KindEquals {
		if _, ok := c.Params["value"]; !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".params.value",
				Message: "kind \"equals\" requires params.value",
				Code:    ErrMissingValue,
			})
		}
	}

	return errs
}
