// Package model holds the vessel snapshot types and the merge policy that
// reconciles a new report against the stored state.
//
// Snapshots are immutable once built: Merge always returns a new value and
// stores replace the previous snapshot wholesale.
package model
