package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidImport      = errors.New("invalid import payload")
	ErrImportNotConfirmed = errors.New("import not confirmed")
	ErrClearNotConfirmed  = errors.New("clear not confirmed")
)
