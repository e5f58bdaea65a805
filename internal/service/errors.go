package service

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the services. The API layer maps each one to a
// status code; callers check them with errors.Is.
var (
	// ErrNotOwned indicates a resource belongs to a different user.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrForbidden is returned when a non-admin calls an admin operation.
	ErrForbidden = errors.New("administrator access required")

	// ErrGradingNotConfigured is returned when grading is requested and no
	// LLM key is configured.
	ErrGradingNotConfigured = errors.New("essay grading is not configured")

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailNotVerified is returned by login before verification.
	ErrEmailNotVerified = errors.New("email address has not been verified")

	// ErrStaleResetToken is returned when a reset token was issued before the
	// current password was set.
	ErrStaleResetToken = errors.New("reset token has already been used")

	// ErrInvalidOrder is returned when a reorder list does not name exactly
	// the siblings being reordered.
	ErrInvalidOrder = errors.New("order must list every sibling exactly once")

	// ErrSubtopicMismatch is returned when a subtopic does not belong to the
	// given subject.
	ErrSubtopicMismatch = errors.New("subtopic does not belong to subject")
)

// ServiceError adds the service and operation to a lower-level failure.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s service %s operation failed", e.Service, e.Op)
	}
	return fmt.Sprintf("%s service %s operation failed: %v", e.Service, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError wraps err with service and operation context.
func NewServiceError(service, op string, err error) *ServiceError {
	return &ServiceError{Service: service, Op: op, Err: err}
}
