package models

import "errors"

// Error kinds surfaced to callers. Wrap them with fmt.Errorf and %w and
// test with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConsistency = errors.New("consistency error")
)
