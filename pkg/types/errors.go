package types

import (
	"errors"
	"fmt"
)

// Domain errors for validation
var (
	// Search validation errors - fail fast, before any I/O
	ErrQueryTooShort  = errors.New("query too short")
	ErrInvalidFilters = errors.New("invalid filters")

	// Search result errors
	ErrMissingCard           = errors.New("card is required")
	ErrInvalidRelevanceScore = errors.New("relevance score must be > 0")
	ErrEmptyMatchedFields    = errors.New("matched fields cannot be empty")
)

// DatabaseError wraps a storage failure during the query phase of a search.
// Calls that fail with a DatabaseError produce no cache, history, or
// analytics writes.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}
