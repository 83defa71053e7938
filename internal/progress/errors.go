package progress

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to the web and CLI layers.
var (
	// ErrNotFound is returned when a unit or step lookup fails.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateSerial is returned when creating a unit whose serial
	// already exists.
	ErrDuplicateSerial = errors.New("duplicate serial")

	// ErrInvalidStatus is returned for a status outside pending/pass/fail.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrStepExists is returned when adding a step whose name is taken.
	ErrStepExists = errors.New("step already exists")
)

// UnauthorizedStationError is returned when a scan tries to create a unit
// from a station other than the first active step's station. Authorized is
// the station name that may create units, empty when no steps are active.
type UnauthorizedStationError struct {
	Station    string
	Authorized string
}

func (e *UnauthorizedStationError) Error() string {
	if e.Authorized == "" {
		return fmt.Sprintf("progress: station %q may not create units: no active steps", e.Station)
	}
	return fmt.Sprintf("progress: station %q may not create units: only %q can", e.Station, e.Authorized)
}
