package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the services wraps exactly one of these.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = fmt.Errorf("quiz %w", ErrNotFound)
	// ErrAttemptNotFound is also returned for attempts owned by another user.
	ErrAttemptNotFound = fmt.Errorf("attempt %w", ErrNotFound)

	// ErrAlreadyAttempted is returned for a second attempt by the same user on the same quiz.
	ErrAlreadyAttempted = fmt.Errorf("%w: quiz already attempted", ErrConflict)
	// ErrQuizNotOpenYet is returned before the quiz open time.
	ErrQuizNotOpenYet = fmt.Errorf("%w: quiz is not open yet", ErrConflict)
	// ErrQuizClosed is returned after the quiz close time.
	ErrQuizClosed = fmt.Errorf("%w: quiz is closed", ErrConflict)

	ErrMissingQuiz         = fmt.Errorf("%w: quiz id is required", ErrValidation)
	ErrNoAnswers           = fmt.Errorf("%w: answer list is empty", ErrValidation)
	ErrQuestionNotInQuiz   = fmt.Errorf("%w: question does not belong to quiz", ErrValidation)
	ErrChoiceNotInQuestion = fmt.Errorf("%w: choice does not belong to question", ErrValidation)
	ErrDuplicateAnswer     = fmt.Errorf("%w: duplicate answer", ErrValidation)
	ErrInvalidQuiz         = fmt.Errorf("%w: invalid quiz", ErrValidation)
)

// Invalid wraps err with request detail, keeping it matchable with errors.Is.
func Invalid(err error, format string, args ...any) error {
	return fmt.Errorf("%w (%s)", err, fmt.Sprintf(format, args...))
}
