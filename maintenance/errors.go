package maintenance

import "errors"

// Errors returned by the maintenance package.
var (
	// ErrAlreadyStarted is returned when Start is called on a running sweeper.
	ErrAlreadyStarted = errors.New("sweeper already started")

	// ErrNotStarted is returned when Stop is called before Start.
	ErrNotStarted = errors.New("sweeper not started")
)
