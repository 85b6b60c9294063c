package models

import "errors"

// Application-wide standard errors.
var (
	ErrNotFound = errors.New("resource not found")

	// ErrConfiguration: a required credential or setting is missing. Raised before any model call.
	ErrConfiguration = errors.New("configuration error")

	// ErrSchemaValidation: the model output does not match the story tree shape at some depth.
	ErrSchemaValidation = errors.New("schema validation failed")

	// ErrTreeLimit: the story tree is deeper or larger than the configured bounds.
	ErrTreeLimit = errors.New("story tree exceeds limits")

	// ErrStore: flush or commit failed; the transaction is not committed.
	ErrStore = errors.New("store error")

	ErrInvalidInput = errors.New("invalid input data")
)
