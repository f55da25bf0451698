package render

import "errors"

var (
	// ErrInfrastructure marks a failed bootstrap step. The whole bootstrap is
	// safe to retry since every step is get-or-create.
	ErrInfrastructure = errors.New("render infrastructure bootstrap failed")
	// ErrSubmission marks a malformed payload or a provider rejection.
	ErrSubmission = errors.New("render submission failed")
	// ErrRemoteRender marks a terminal Failed status reported by polling.
	ErrRemoteRender = errors.New("remote render failed")
	// ErrTransport marks a network call failing mid-operation.
	ErrTransport = errors.New("render transport error")
)
