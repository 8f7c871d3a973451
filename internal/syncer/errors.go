package syncer

import (
	"errors"
	"fmt"

	"github.com/sweeney/zone5/internal/store"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("invalid heart rate batch")

// ValidationError reports a malformed ingest payload. It is raised before any
// aggregation runs.
type ValidationError struct {
	Field  string // JSON path of the offending field, empty for the whole body
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Retryable reports whether err is a transient store failure worth retrying.
// Validation errors and version conflicts are not.
func Retryable(err error) bool {
	return errors.Is(err, store.ErrUnavailable)
}
