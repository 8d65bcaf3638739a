package console

import (
	"errors"
	"strings"
)

// InputError is operator input rejected before any request is sent.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string { return e.Message }

// IsInputError reports whether err was caught locally.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// ValidationRejection is a workflow the backend reported as invalid.
type ValidationRejection struct {
	WorkflowID string
	Messages   []string
}

func (e *ValidationRejection) Error() string {
	return "Workflow validation failed: " + strings.Join(e.Messages, ", ")
}
