// Package index implements the catalog's index family: a uniform
// learn/forget/search contract plus concrete indices for short strings,
// enumerations, and filesystem paths. Every rid-set an index produces or
// consumes is a *ridset.Set (a roaring bitmap), so the query composer in
// internal/collection can combine results from any mix of indices with
// plain set algebra.
package index

import "dewey/internal/ridset"

// SortedIterator walks an index's sorted view in ascending key order,
// calling yield with the rid-set stored at each key. It stops as soon as
// yield returns false. An index with no sorted view has a nil
// SortedIterator.
type SortedIterator func(yield func(*ridset.Set) bool)

// Index is the contract every installed index satisfies: reset/learn/forget
// plus a dispatch table of named searches and an optional sorted view.
type Index interface {
	// Name is the index's kind, used in the CLI's index listing
	// (e.g. "String", "Enumeration", "Path").
	Name() string

	// Reset drops all learned associations, restoring the empty state.
	Reset()

	// Learn associates rid with value. Returns an error wrapping
	// errkind.ErrBadValue if value doesn't meet the index's constraints.
	Learn(rid int32, value any) error

	// Forget removes every association for rid. Returns an error
	// wrapping errkind.ErrUnknownRid if rid has no learned association.
	Forget(rid int32) error

	// Search dispatches a named search (e.g. "startswith", "is_") with a
	// single string argument, returning a rid-set. Returns an error
	// wrapping errkind.ErrBadQuery if name is not a recognized search for
	// this index, or errkind.ErrBadArg if arg is malformed.
	Search(name string, arg string) (*ridset.Set, error)

	// Sorted returns the index's sorted view, or nil if this index isn't
	// sortable.
	Sorted() SortedIterator
}
