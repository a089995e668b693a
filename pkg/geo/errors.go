package geo

import (
	"errors"
	"fmt"
)

var (
	ErrLoopback    = errors.New("loopback address")
	ErrUnknownHost = errors.New("unknown host")
	ErrNoLocation  = errors.New("no location for address")
	ErrOutOfRange  = errors.New("coordinates out of range")
)

// ResolutionError means an address could not be placed on the map. It is an
// expected condition during ingestion and only causes the record to be skipped.
type ResolutionError struct {
	Address string
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Address, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
