package compaction

import "errors"

// Sentinel errors for history processing.
var (
	// ErrInvalidPolicy indicates a malformed edit policy. NewCompactor and
	// Policies.Validate wrap it with the offending tool name.
	ErrInvalidPolicy = errors.New("invalid edit policy")
)
