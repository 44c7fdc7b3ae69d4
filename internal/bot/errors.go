// Package bot contains the command dispatch and concurrency-gating layer:
// lanes, the per-lane dispatcher, the command contract and the reaction
// router that feeds long-lived game sessions.
package bot

import (
	"fmt"
)

// InvalidArgumentsError is a user-input validation failure. Its message is
// shown to the user verbatim.
type InvalidArgumentsError struct {
	Message string
}

func (e *InvalidArgumentsError) Error() string {
	return e.Message
}

// InvalidArgs builds an InvalidArgumentsError with a formatted message.
func InvalidArgs(format string, args ...any) error {
	return &InvalidArgumentsError{Message: fmt.Sprintf(format, args...)}
}
