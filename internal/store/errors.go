package store

import "errors"

// Typed errors raised by store operations. The HTTP layer maps these onto
// status codes; nothing is silently swallowed here.
var (
	// ErrNotFound reports that a referenced id is not in the catalog.
	ErrNotFound = errors.New("not found")

	// ErrBadInput reports a request the catalog cannot act on.
	ErrBadInput = errors.New("bad input")

	// ErrConflict reports a request that is valid in itself but not in the
	// current state, such as queue edits while a stream is playing.
	ErrConflict = errors.New("conflicting state")

	// ErrCorrupt reports a catalog integrity violation, such as multiple
	// rows where at most one was expected.
	ErrCorrupt = errors.New("catalog integrity violation")
)
