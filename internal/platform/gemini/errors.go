package gemini

import "errors"

var (
	// ErrInvalidConfig is returned when the API key or model is missing.
	ErrInvalidConfig = errors.New("invalid LLM configuration")

	// ErrEmptyEssay is returned when there is nothing to grade.
	ErrEmptyEssay = errors.New("essay content cannot be empty")

	// ErrContentBlocked is returned when the model's safety filters stop
	// the request or the reply.
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrInvalidResponse is returned for replies with no usable text.
	ErrInvalidResponse = errors.New("invalid response from Gemini API")
)

// GradingError pairs a failure with a message fit for the essay's owner.
type GradingError struct {
	Err    error
	reason string
}

func (e *GradingError) Error() string { return e.Err.Error() }
func (e *GradingError) Unwrap() error { return e.Err }

// Reason is the user-facing explanation.
func (e *GradingError) Reason() string { return e.reason }

func blocked(detail string) error {
	return &GradingError{
		Err:    errors.Join(ErrContentBlocked, errors.New(detail)),
		reason: "the essay could not be graded because it was flagged by the content filter",
	}
}

func invalidResponse(detail string) error {
	return &GradingError{
		Err:    errors.Join(ErrInvalidResponse, errors.New(detail)),
		reason: "the grader returned no feedback, please try again",
	}
}
