package engine

import "errors"

// Sentinel kinds for engine errors.
var (
	ErrScheduleFailed      = errors.New("scheduler failed")
	ErrNoCalendar          = errors.New("scheduler produced no calendar")
	ErrNoParticipantColumn = errors.New("no participant column in csv")
	ErrReadCSV             = errors.New("read preferences csv")
	ErrNoCommand           = errors.New("engine command is empty")
)
