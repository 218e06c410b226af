package orchestrator

import "errors"

// ErrAlreadyRunning is returned when Run is called while already running.
var ErrAlreadyRunning = errors.New("orchestrator: already running")
