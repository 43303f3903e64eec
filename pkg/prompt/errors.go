package prompt

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("prompt: aborted")
	// ErrEmptyCollection signals every row was removed and none added. An
	// empty submission leaves a collection as it is, so it is refused.
	ErrEmptyCollection = errors.New("prompt: collection left without rows")
)
