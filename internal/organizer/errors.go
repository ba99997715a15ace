package organizer

import (
	"errors"
	"fmt"
)

var (
	ErrSourceNotFound    = errors.New("source folder not found")
	ErrOrganizedNotFound = errors.New("organized folder not found")
	ErrTargetNotFound    = errors.New("target folder not found")
	ErrDestinationExists = errors.New("destination file already exists")
)

// MoveError reports the move that aborted a batch. Moves before Position
// have already happened.
type MoveError struct {
	Position int
	From     string
	To       string
	Err      error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("move %q to %q (position %d): %v", e.From, e.To, e.Position, e.Err)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}
