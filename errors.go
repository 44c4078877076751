package modeldef

import "errors"

var (
	ErrModelNotFound = errors.New("model not found")
	// ErrMigrationNeeded is returned by a check run when any model is out of date.
	ErrMigrationNeeded = errors.New("migration is needed")
)

type ModelNotFoundError struct {
	Name string
}

func (e *ModelNotFoundError) Error() string {
	return "Model not found: " + e.Name
}

func (e *ModelNotFoundError) Unwrap() error {
	return ErrModelNotFound
}
