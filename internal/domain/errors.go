package domain

import (
	"errors"
	"fmt"
)

// Rejection kinds reported by ParseLine. All are recoverable: the caller logs
// the line and moves on.
var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidNumber   = errors.New("invalid number")
)

var (
	// ErrDuplicate means an observation with the same natural key is already stored.
	ErrDuplicate = errors.New("duplicate observation")

	// ErrStorageConflict means a batch commit violated a storage integrity
	// constraint and was rolled back in full.
	ErrStorageConflict = errors.New("storage conflict")
)

// ParseError describes why a line was rejected.
type ParseError struct {
	Kind  error  // one of ErrMalformedRecord, ErrInvalidDate, ErrInvalidNumber
	Line  string // the original line
	Field int    // offending field index, -1 when the field count is wrong
	Err   error  // underlying strconv/time error, if any
}

func (e *ParseError) Error() string {
	if e.Field < 0 {
		return fmt.Sprintf("%s: %q", e.Kind, e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s in field %d: %q: %v", e.Kind, e.Field, e.Line, e.Err)
	}
	return fmt.Sprintf("%s in field %d: %q", e.Kind, e.Field, e.Line)
}

func (e *ParseError) Unwrap() error { return e.Kind }

// RejectReason returns a short label for a parse rejection, suitable for
// metric labels and log attributes.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrMalformedRecord):
		return "malformed"
	case errors.Is(err, ErrInvalidDate):
		return "invalid_date"
	case errors.Is(err, ErrInvalidNumber):
		return "invalid_number"
	default:
		return "unknown"
	}
}
