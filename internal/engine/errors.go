package engine

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/rafabd1/Paleta/internal/commands"
)

// ErrEngineBusy is returned when a batch is already executing. Callers
// retry; the engine never queues.
var ErrEngineBusy = errors.New("engine busy: another command is still running")

// ExecutorFailure wraps an error reported by the executor for one command.
type ExecutorFailure struct {
	Command commands.Command
	Err     error
}

func (e *ExecutorFailure) Error() string {
	return fmt.Sprintf("%s: %v", commands.Describe(e.Command), e.Err)
}

func (e *ExecutorFailure) Unwrap() error { return e.Err }
