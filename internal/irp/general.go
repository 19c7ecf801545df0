package irp

import "fmt"

// GeneralSpec is the validated protocol-wide header.
type GeneralSpec struct {
	DutyCycle  uint8 // percent, zero when not declared
	Carrier    int64 // Hz
	HasCarrier bool
	LSB        bool
	Unit       float64 // microseconds per unit
}

// ResolveGeneralSpec validates and merges the header declarations.
// Each kind may be declared once; duplicates are reported before any
// value is checked.
func ResolveGeneralSpec(items []GeneralItem) (GeneralSpec, error) {
	res := GeneralSpec{
		LSB:  true,
		Unit: 1.0,
	}

	seen := make(map[string]bool)
	for _, it := range items {
		var kind string
		var dup error
		switch it.(type) {
		case DutyCycle:
			kind, dup = "duty", ErrDuplicateDutyCycle
		case Frequency:
			kind, dup = "carrier", ErrDuplicateCarrier
		case BitOrder:
			kind, dup = "order", ErrDuplicateBitOrder
		case BaseUnit:
			kind, dup = "unit", ErrDuplicateUnit
		default:
			return res, fmt.Errorf("general spec item %T: %w", it, ErrUnsupported)
		}
		if seen[kind] {
			return res, dup
		}
		seen[kind] = true
	}

	var unit *BaseUnit
	for _, it := range items {
		switch it := it.(type) {
		case DutyCycle:
			if it.Percent < 1.0 {
				return res, fmt.Errorf("%g%%: %w", it.Percent, ErrDutyCycleLow)
			}
			if it.Percent > 99.0 {
				return res, fmt.Errorf("%g%%: %w", it.Percent, ErrDutyCycleHigh)
			}
			res.DutyCycle = uint8(it.Percent)
		case Frequency:
			res.Carrier = int64(it.KHz * 1000.0)
			res.HasCarrier = true
		case BitOrder:
			res.LSB = it.LSB
		case BaseUnit:
			u := it
			unit = &u
		}
	}

	if unit != nil {
		switch unit.Unit {
		case Pulses:
			if !res.HasCarrier || res.Carrier == 0 {
				return res, ErrPulseUnitNoCarrier
			}
			res.Unit = unit.Value * 1000.0 / float64(res.Carrier)
		case Milliseconds:
			res.Unit = unit.Value * 1000.0
		default:
			res.Unit = unit.Value
		}
	}
	return res, nil
}
