package api

import (
	"errors"
	"fmt"
)

// ErrConflict marks a server-reported optimistic/batch update conflict. It is
// surfaced to the caller for user-facing reporting and never auto-retried.
var ErrConflict = errors.New("assignment conflict")

// Error is a server-rejected request, parsed from the response body.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %s: %s (status %d)", e.Code, e.Message, e.Status)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// Is makes 409 responses match ErrConflict through errors.Is.
func (e *Error) Is(target error) bool {
	return target == ErrConflict && e.Status == 409
}
