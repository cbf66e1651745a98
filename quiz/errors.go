package quiz

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when an operation is not allowed in the current state
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrInvalidChoice is returned for a choice index outside the question's choices
	ErrInvalidChoice = errors.New("invalid choice index")
	// ErrStaleAnswer is returned when an answer targets a question that is no longer current
	ErrStaleAnswer = errors.New("answer does not match the current question")
)

// GenreNotFoundError is returned when a quiz is started for an unknown or empty genre
type GenreNotFoundError struct {
	GenreID string
}

func (e *GenreNotFoundError) Error() string {
	return fmt.Sprintf("genre %q not found or has no questions", e.GenreID)
}

func transitionError(op string, from State) error {
	return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, op, from)
}
