package service

import (
	"fmt"

	"example.com/backstage/services/fieldservice/internal/model"
)

// ValidationError reports malformed or out-of-range input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// PreconditionError reports an operation attempted in a state that does not
// permit it
type PreconditionError struct {
	Operation string
	State     model.OrderState
	Message   string
}

func (e *PreconditionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("cannot %s in state %s", e.Operation, e.State)
}

// NewPreconditionError creates a precondition error for an operation
func NewPreconditionError(operation string, state model.OrderState) *PreconditionError {
	return &PreconditionError{Operation: operation, State: state}
}

// CapacityError reports a scheduling request that exceeds a technician's
// daily capacity or collides with an occupied slot
type CapacityError struct {
	TechnicianID string
	Message      string
}

func (e *CapacityError) Error() string {
	return e.Message
}

// NewCapacityError creates a capacity error for a technician
func NewCapacityError(technicianID, message string) *CapacityError {
	return &CapacityError{TechnicianID: technicianID, Message: message}
}

// ConflictError reports a uniqueness or concurrent-modification conflict
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}
