// Package errkind declares the sentinel error kinds shared across the
// catalog, index, collection, and store packages. Call sites wrap these
// with fmt.Errorf("...: %w", ErrX) and callers unwrap with errors.Is.
package errkind

import "errors"

var (
	// ErrBadQuery is returned when a constraint string is unparseable, or
	// names an unknown index or search.
	ErrBadQuery = errors.New("bad query")

	// ErrBadValue is returned by Index.Learn when a value does not meet
	// the index's type/shape constraints.
	ErrBadValue = errors.New("bad value")

	// ErrBadArg is returned by a search method when its argument is
	// malformed.
	ErrBadArg = errors.New("bad arg")

	// ErrBadSort is returned when Collection.SetSort names an index with
	// no sorted view, or an unknown index.
	ErrBadSort = errors.New("bad sort")

	// ErrBadLimit is returned when Collection.SetLimit is given a
	// non-positive value.
	ErrBadLimit = errors.New("bad limit")

	// ErrUnknownRid is returned by Index.Forget when the rid has no
	// learned association.
	ErrUnknownRid = errors.New("unknown rid")

	// ErrLocked is returned at store Open time when the storage backend
	// is already open in another process.
	ErrLocked = errors.New("database locked by another process")

	// ErrMissingCatalog is returned at store Open time when the root
	// mapping has no catalog and no factory was provided to build one.
	ErrMissingCatalog = errors.New("catalog not in database, and no factory provided")

	// ErrIOError wraps filesystem stat/read failures encountered during
	// a crawl pass. The path is skipped and the crawl continues.
	ErrIOError = errors.New("crawl i/o error")
)
