package launch

import (
	"errors"
	"fmt"
)

// ErrLaunch is returned when the game process cannot be started at all:
// missing executable, permission failure, unusable working directory.
// This is an orchestrator-side fault, unlike a game that runs and dies.
var ErrLaunch = errors.New("failed to start game process")

// GameExitError reports a game process that started fine and later exited
// non-zero. The child owns that exit code; the launcher just relays it.
type GameExitError struct {
	// Code is the child's exit code.
	Code int
}

// Error implements the error interface.
func (e *GameExitError) Error() string {
	return fmt.Sprintf("game exited with code %d", e.Code)
}
