package progress

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("progress record not found")
)

// ValidationError указывает на конкретное поле, не прошедшее валидацию.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Reason)
}
