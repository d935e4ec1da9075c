package flow

import "errors"

var (
	// ErrStepIncomplete is returned by Next when the current step is missing
	// answers or, on the last step, a finished resume analysis.
	ErrStepIncomplete   = errors.New("current step is incomplete")
	ErrUploadInProgress = errors.New("resume analysis already in progress")
)
