package capture

import (
	"errors"
	"fmt"

	"github.com/kaidhar/prism-cli/api/schemas"
)

// failure is one failed capture attempt, classified so the retry policy can
// apply the right ceiling.
type failure struct {
	Type    schemas.CaptureErrorType
	Message string
	Cause   error
}

func (f *failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Type, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Type, f.Message)
}

func (f *failure) Unwrap() error { return f.Cause }

// classify maps an arbitrary capture-path error onto the failure taxonomy.
func classify(err error) *failure {
	var f *failure
	if errors.As(err, &f) {
		return f
	}
	if errors.Is(err, schemas.ErrDriverTimeout) {
		return &failure{Type: schemas.ErrTimeout, Message: "browser action timed out", Cause: err}
	}
	var nav *schemas.NavigationError
	if errors.As(err, &nav) {
		if nav.IsNotFound() {
			return &failure{Type: schemas.ErrNotFound, Message: "page returned 404", Cause: err}
		}
		return &failure{Type: schemas.ErrValidationFailed, Message: fmt.Sprintf("navigation returned status %d", nav.Status), Cause: err}
	}
	return &failure{Type: schemas.ErrValidationFailed, Message: "capture attempt failed", Cause: err}
}
