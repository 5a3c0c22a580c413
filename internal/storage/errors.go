package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the query layer.
var (
	ErrScriptNotFound      = errors.New("script not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrInvalidKCSState     = errors.New("invalid KCS state")
	ErrInvalidRole         = errors.New("invalid contributor role")
	ErrInvalidConfidence   = errors.New("confidence must be between 0 and 100")
	ErrDuplicateScriptName = errors.New("script name already exists")
	ErrStoreUnavailable    = errors.New("catalog store unavailable")
)

// TransitionError is returned when a KCS lifecycle move is not permitted.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	allowed := AllowedTransitions(e.From)
	if len(allowed) == 0 {
		return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
	}
	return fmt.Sprintf("cannot transition from %s to %s (allowed: %s)", e.From, e.To, strings.Join(allowed, ", "))
}

// isUniqueViolation reports whether err came from a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isBusy reports whether err is a transient SQLite locking error.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}
