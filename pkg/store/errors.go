package store

import "errors"

var (
	// ErrInvalidPath marks paths that do not resolve under the workspace
	// root, or resolve to the root itself. Never retried.
	ErrInvalidPath = errors.New("invalid workspace path")

	// ErrArtifactNotFound marks a sequencing fault: an action arrived for
	// an artifact that was never registered. This cannot happen for
	// well-formed input and is treated as fatal for the operation.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrQueueClosed is returned when submitting to a closed queue.
	ErrQueueClosed = errors.New("execution queue is closed")
)
