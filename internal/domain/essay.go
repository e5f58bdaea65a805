package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EssayStatus tracks an uploaded essay through grading.
type EssayStatus string

const (
	EssayStatusUploaded EssayStatus = "uploaded"
	EssayStatusGrading  EssayStatus = "grading"
	EssayStatusGraded   EssayStatus = "graded"
	EssayStatusFailed   EssayStatus = "failed"
)

var (
	ErrInvalidEssayStatus = errors.New("invalid essay status")
	// ErrEssayBusy is returned when grading is requested while a grade is in flight.
	ErrEssayBusy = errors.New("essay is already being graded")
)

// Essay is a scanned or exported essay a user submitted for feedback.
type Essay struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	Filename    string      `json:"filename"`
	ContentType string      `json:"content_type"`
	StoragePath string      `json:"-"`
	SizeBytes   int64       `json:"size_bytes"`
	Status      EssayStatus `json:"status"`
	Feedback    string      `json:"feedback,omitempty"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewEssay records a stored upload.
func NewEssay(userID uuid.UUID, filename, contentType, storagePath string, size int64) (*Essay, error) {
	now := time.Now().UTC()
	e := &Essay{
		ID:          uuid.New(),
		UserID:      userID,
		Filename:    strings.TrimSpace(filename),
		ContentType: contentType,
		StoragePath: storagePath,
		SizeBytes:   size,
		Status:      EssayStatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks if the Essay has valid data.
func (e *Essay) Validate() error {
	if e.ID == uuid.Nil || e.UserID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if e.StoragePath == "" {
		return NewValidationError("storage_path", "cannot be empty", ErrValidation)
	}
	switch e.Status {
	case EssayStatusUploaded, EssayStatusGrading, EssayStatusGraded, EssayStatusFailed:
	default:
		return NewValidationError("status", "is not recognised", ErrInvalidEssayStatus)
	}
	return nil
}

// BeginGrading moves the essay into the grading state. Graded and failed
// essays may be re-graded on request.
func (e *Essay) BeginGrading() error {
	if e.Status == EssayStatusGrading {
		return ErrEssayBusy
	}
	e.Status = EssayStatusGrading
	e.Error = ""
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// CompleteGrading stores feedback.
func (e *Essay) CompleteGrading(feedback string) {
	e.Status = EssayStatusGraded
	e.Feedback = feedback
	e.Error = ""
	e.UpdatedAt = time.Now().UTC()
}

// FailGrading stores the failure reason shown to the user.
func (e *Essay) FailGrading(reason string) {
	e.Status = EssayStatusFailed
	e.Error = reason
	e.UpdatedAt = time.Now().UTC()
}
