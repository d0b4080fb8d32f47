package placement

import (
	"errors"

	"ccstock-backend/internal/parse"
)

var (
	ErrInvalidMachineID  = parse.ErrInvalidMachineID
	ErrInvalidLocationID = parse.ErrInvalidLocationID

	// ErrUnknownLocation is returned when placing into a location that is not registered.
	ErrUnknownLocation = errors.New("unknown location")
	// ErrUnknownMachine is returned when delivering a machine that is not registered.
	ErrUnknownMachine = errors.New("unknown machine")
	// ErrDuplicateID is returned when registering an id that already exists.
	ErrDuplicateID = errors.New("id already exists")
	// ErrStore wraps any persistence failure.
	ErrStore = errors.New("store unavailable")
	// ErrPartialDelivery means the machine was marked delivered but the delivery
	// event could not be recorded. It needs manual reconciliation.
	ErrPartialDelivery = errors.New("partial delivery failure")
)

// Code returns the stable machine-readable code for err, or "internal".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidMachineID):
		return "invalid_machine_id"
	case errors.Is(err, ErrInvalidLocationID):
		return "invalid_location_id"
	case errors.Is(err, ErrUnknownLocation):
		return "unknown_location"
	case errors.Is(err, ErrUnknownMachine):
		return "unknown_machine"
	case errors.Is(err, ErrDuplicateID):
		return "duplicate_id"
	case errors.Is(err, ErrPartialDelivery):
		return "partial_delivery_failure"
	case errors.Is(err, ErrStore):
		return "store_error"
	default:
		return "internal"
	}
}
