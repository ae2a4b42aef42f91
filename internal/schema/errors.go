package schema

import "errors"

var (
	// ErrNoSteps is returned when a schema has no steps at all.
	ErrNoSteps = errors.New("schema must contain at least one step")

	// ErrDuplicateStepID is returned when two steps share an id.
	ErrDuplicateStepID = errors.New("duplicate step id")

	// ErrDuplicateFieldID is returned when a field id repeats anywhere in the schema.
	ErrDuplicateFieldID = errors.New("duplicate field id")

	// ErrInvalidField is returned for a field whose own shape is broken.
	ErrInvalidField = errors.New("invalid field")

	// ErrInvalidCondition is returned for a condition referencing a missing,
	// later, or self target.
	ErrInvalidCondition = errors.New("invalid condition")
)
