// Package apperr holds the sentinel errors shared across Folio packages.
package apperr

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidQuery       = errors.New("invalid query")
	ErrInvalidID          = errors.New("invalid document id")
	ErrInvariantViolation = errors.New("index invariant violation")
)
