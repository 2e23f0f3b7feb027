package approval

import "errors"

var (
	// ErrQueueEmpty is returned when deciding against an empty queue.
	ErrQueueEmpty = errors.New("no pending requests")

	// ErrBadIndex is returned for an out-of-range request index.
	ErrBadIndex = errors.New("invalid request index")
)
