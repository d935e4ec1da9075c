package session

import "errors"

var (
	ErrNotActive        = errors.New("session is not active")
	ErrSubmitInProgress = errors.New("analysis already in progress")
	ErrUnknownQuestion  = errors.New("unknown question id")
	// ErrSessionReset is returned by Submit when the session was cleared or
	// restarted while the analysis ran. The late result is discarded.
	ErrSessionReset = errors.New("session was reset during analysis")
)
