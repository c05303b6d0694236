// Package ir provides the foundational record types for edgewatch.
//
// Conditions, entry specs and source specs are plain in-memory records handed
// in by the owning system. This package imports nothing internal; every other
// internal package may import it.
//
// Key design constraints:
//   - Conditions are immutable once registered; edits are remove+add
//   - Condition identity is an explicit ConditionID, never pointer equality
//   - Parameter and variable values use the sealed Value model (no floats)
//   - All JSON tags use snake_case
package ir
