package command

import (
	"fmt"

	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
)

// ErrNotFound indicates a command log lookup failure
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("command not found: %s", e.ID)
}

func (e ErrNotFound) Unwrap() error { return werrors.ErrNotFound }

// ErrAlreadyTerminal indicates a second terminal transition was attempted
type ErrAlreadyTerminal struct {
	ID     string
	Status Status
}

func (e ErrAlreadyTerminal) Error() string {
	return fmt.Sprintf("command %s already %s", e.ID, e.Status)
}

func (e ErrAlreadyTerminal) Unwrap() error { return werrors.ErrConflict }
