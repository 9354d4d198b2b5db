package models

import "errors"

var (
	// ErrInvalidInput marks malformed input; never retried
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyInput is returned for an empty evaluation batch
	ErrEmptyInput = errors.New("empty input")
	// ErrNotFound marks an unknown job, model, version or feedback id
	ErrNotFound = errors.New("not found")
	// ErrTrainingFailure wraps errors reported by the trainer
	ErrTrainingFailure = errors.New("training failure")
	// ErrIO wraps persistence failures
	ErrIO = errors.New("io error")
)
