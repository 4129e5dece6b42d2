package workflow

import "fmt"

// ConflictError signals a workflow transition raced another actor or targeted
// the wrong step. The caller must re-read the request before retrying.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func conflictf(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// AssignmentError signals a step's assignment rule could not be resolved to
// an actor. The step stays pending and unassigned; nothing defaults silently.
type AssignmentError struct {
	Message string
}

func (e *AssignmentError) Error() string {
	return e.Message
}

func assignmentf(format string, args ...interface{}) *AssignmentError {
	return &AssignmentError{Message: fmt.Sprintf(format, args...)}
}
