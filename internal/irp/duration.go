package irp

import "fmt"

// Convert turns a value already scaled by the base unit into microseconds.
func (u Unit) Convert(v int64, gs *GeneralSpec) (int64, error) {
	switch u {
	case Microseconds:
		return v, nil
	case Milliseconds:
		return v * 1000, nil
	case Pulses:
		if !gs.HasCarrier || gs.Carrier == 0 {
			return 0, ErrNoCarrier
		}
		return v * 1000 / gs.Carrier, nil
	default:
		return 0, fmt.Errorf("unit %d: %w", u, ErrUnsupported)
	}
}

// Eval resolves d to signed microseconds: positive for flashes and
// extents, negative for gaps. The numeral is scaled by the base unit and
// truncated before d's own unit is applied.
func (d Duration) Eval(vars *Vartable, gs *GeneralSpec) (int64, error) {
	p := d.Value
	if d.Name != "" {
		v, err := vars.Get(d.Name)
		if err != nil {
			return 0, err
		}
		p = float64(v)
	}
	if d.Kind == Gap {
		p = -p
	}
	return d.Unit.Convert(int64(p*gs.Unit), gs)
}
