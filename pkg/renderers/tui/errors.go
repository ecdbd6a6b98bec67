package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrNoOptions is returned when a select control declares no options.
	ErrNoOptions = errors.New("tui: select control has no options")

	errNilState = errors.New("tui: state is nil")
)
