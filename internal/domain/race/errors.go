package race

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is the parent of every start-line configuration failure.
	ErrConfiguration       = errors.New("race configuration error")
	ErrStartLineAlreadySet = fmt.Errorf("%w: start line already set", ErrConfiguration)
	ErrInvalidRadius       = fmt.Errorf("%w: start line radius must be greater than 0", ErrConfiguration)
	ErrInvalidStartLine    = fmt.Errorf("%w: start line center is not a valid coordinate", ErrConfiguration)

	ErrUnknownCompetitor = errors.New("unknown competitor")
	ErrUnknownRace       = errors.New("unknown race")
	ErrEmptyRaceID       = errors.New("race id cannot be empty")
	ErrEmptyCompetitorID = errors.New("competitor id cannot be empty")
	ErrInvalidSpeed      = errors.New("speed must be a finite value >= 0")
	ErrInvalidLap        = errors.New("invalid lap record")
)
