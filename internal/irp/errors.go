package irp

import (
	"errors"
	"fmt"
)

var (
	ErrDivideByZero        = errors.New("division by zero")
	ErrNegativeExponent    = errors.New("negative exponent")
	ErrRecursiveDefinition = errors.New("recursive definition")
	ErrNoCarrier           = errors.New("pulses specified but no carrier given")
	ErrUnsupported         = errors.New("unsupported construct")

	ErrDutyCycleLow       = errors.New("duty cycle less than 1% not valid")
	ErrDutyCycleHigh      = errors.New("duty cycle larger than 99% not valid")
	ErrDuplicateDutyCycle = errors.New("duty cycle specified twice")
	ErrDuplicateCarrier   = errors.New("carrier frequency specified twice")
	ErrDuplicateBitOrder  = errors.New("bit order (lsb,msb) specified twice")
	ErrDuplicateUnit      = errors.New("unit specified twice")
	ErrPulseUnitNoCarrier = errors.New("pulse unit specified without carrier frequency")

	ErrExtentExceeded   = errors.New("extent exceeded")
	ErrNoBitspec        = errors.New("bit field without bitspec")
	ErrBitspecSize      = errors.New("bitspec size must be a power of two")
	ErrBitFieldLength   = errors.New("invalid bit field length")
	ErrMissingParameter = errors.New("missing parameter")
	ErrParameterRange   = errors.New("parameter out of range")
	ErrDurationRange    = errors.New("duration out of range")
)

// UndefinedVariableError is returned when an identifier has neither a
// value nor a definition.
type UndefinedVariableError struct {
	Name string
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("variable %s not defined", e.Name)
}

// SyntaxError reports a parse failure at a byte offset of the IRP text.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
}
