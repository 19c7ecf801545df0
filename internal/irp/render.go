package irp

import (
	"fmt"
	"math/bits"
)

// Message is a rendered signal ready for a transmitter.
type Message struct {
	Carrier   int64 // Hz, zero when unmodulated or not declared
	DutyCycle uint8 // percent, zero when not declared
	Raw       []uint32
}

// Encode parses src and renders it once.
func Encode(src string, vars *Vartable) (Message, error) {
	p, err := Parse(src)
	if err != nil {
		return Message{}, err
	}
	return Render(p, vars)
}

// Render renders p without any optional repeats.
func Render(p *Protocol, vars *Vartable) (Message, error) {
	return RenderRepeat(p, vars, 0)
}

// RenderRepeat renders p, emitting variable-count streams ("*", "+",
// "n+") repeats extra times. vars is not modified.
func RenderRepeat(p *Protocol, vars *Vartable, repeats int) (Message, error) {
	msg, _, err := RenderBindings(p, vars, repeats)
	return msg, err
}

// RenderBindings is RenderRepeat that also returns the variable table as
// it stood after the last item, with parameter defaults and stream
// assignments applied.
func RenderBindings(p *Protocol, vars *Vartable, repeats int) (Message, *Vartable, error) {
	gs, err := ResolveGeneralSpec(p.GeneralSpec)
	if err != nil {
		return Message{}, nil, err
	}
	if repeats < 0 {
		repeats = 0
	}
	r := &renderer{
		gs:      gs,
		vars:    vars.clone(),
		repeats: repeats,
	}
	for _, d := range p.Definitions {
		r.vars.Define(d.Name, d.Expr)
	}
	if err := r.bindParameters(p.Parameters); err != nil {
		return Message{}, nil, err
	}
	if p.Stream == nil {
		return Message{}, nil, fmt.Errorf("protocol has no ir stream: %w", ErrUnsupported)
	}
	if p.Bitspec != nil {
		r.bitspecs = append(r.bitspecs, p.Bitspec)
	}
	if err := r.stream(p.Stream, true); err != nil {
		return Message{}, nil, err
	}
	raw, err := waveform(r.out)
	if err != nil {
		return Message{}, nil, err
	}
	return Message{
		Carrier:   gs.Carrier,
		DutyCycle: gs.DutyCycle,
		Raw:       raw,
	}, r.vars, nil
}

type renderer struct {
	gs       GeneralSpec
	vars     *Vartable
	bitspecs []Bitspec
	repeats  int
	out      []int64
	elapsed  int64 // sum of emitted magnitudes
}

func (r *renderer) bindParameters(params []ParameterSpec) error {
	for _, ps := range params {
		if !r.vars.Has(ps.Name) {
			if ps.Default == nil {
				return fmt.Errorf("parameter %s: %w", ps.Name, ErrMissingParameter)
			}
			v, err := Eval(ps.Default, r.vars)
			if err != nil {
				return fmt.Errorf("parameter %s default: %w", ps.Name, err)
			}
			r.vars.Set(ps.Name, v)
		}
		v, err := r.vars.Get(ps.Name)
		if err != nil {
			return err
		}
		if v < ps.Min || v > ps.Max {
			return fmt.Errorf("parameter %s=%d not in %d..%d: %w", ps.Name, v, ps.Min, ps.Max, ErrParameterRange)
		}
	}
	return nil
}

func (r *renderer) repetitions(m RepeatMarker, outermost bool) int {
	switch m.Kind {
	case RepeatCount:
		return m.Count
	case RepeatZeroOrMore:
		// the outermost stream always sends its first frame
		if outermost {
			return 1 + r.repeats
		}
		return r.repeats
	case RepeatOneOrMore:
		return 1 + r.repeats
	case RepeatAtLeast:
		return m.Count + r.repeats
	default:
		return 1
	}
}

func (r *renderer) stream(s *IrStream, outermost bool) error {
	if s.Bitspec != nil {
		r.bitspecs = append(r.bitspecs, s.Bitspec)
		defer func() { r.bitspecs = r.bitspecs[:len(r.bitspecs)-1] }()
	}
	n := r.repetitions(s.Repeat, outermost)
	for i := 0; i < n; i++ {
		if err := r.items(s.Items); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) items(items []IrStreamItem) error {
	start := r.elapsed
	for _, it := range items {
		switch it := it.(type) {
		case Duration:
			if it.Kind == Extent {
				total, err := it.Eval(r.vars, &r.gs)
				if err != nil {
					return err
				}
				gap := total - (r.elapsed - start)
				if gap <= 0 {
					return fmt.Errorf("extent %d us after %d us: %w", total, r.elapsed-start, ErrExtentExceeded)
				}
				r.emit(-gap)
				start = r.elapsed
				continue
			}
			v, err := it.Eval(r.vars, &r.gs)
			if err != nil {
				return err
			}
			r.emit(v)
		case Assignment:
			v, err := Eval(it.Expr, r.vars)
			if err != nil {
				return fmt.Errorf("%s=: %w", it.Name, err)
			}
			r.vars.Set(it.Name, v)
		case BitField:
			if err := r.bitField(it); err != nil {
				return err
			}
		case *IrStream:
			if err := r.stream(it, false); err != nil {
				return err
			}
		case Variation:
			return fmt.Errorf("variation: %w", ErrUnsupported)
		default:
			return fmt.Errorf("stream item %T: %w", it, ErrUnsupported)
		}
	}
	return nil
}

func (r *renderer) emit(v int64) {
	r.out = append(r.out, v)
	if v < 0 {
		r.elapsed -= v
	} else {
		r.elapsed += v
	}
}

func (r *renderer) bitField(f BitField) error {
	if f.Infinite {
		return fmt.Errorf("infinite bit field in stream: %w", ErrBitFieldLength)
	}
	if len(r.bitspecs) == 0 {
		return ErrNoBitspec
	}
	bs := r.bitspecs[len(r.bitspecs)-1]
	if len(bs) < 2 || bits.OnesCount(uint(len(bs))) != 1 {
		return fmt.Errorf("%d entries: %w", len(bs), ErrBitspecSize)
	}
	chunk := bits.TrailingZeros(uint(len(bs)))

	data, length, err := evalBitField(f, r.vars)
	if err != nil {
		return err
	}
	lsb := r.gs.LSB
	if length < 0 {
		length = -length
		lsb = !lsb
	}
	if length%chunk != 0 {
		return fmt.Errorf("length %d with %d bits per symbol: %w", length, chunk, ErrBitFieldLength)
	}

	// Entries render against the enclosing bitspec.
	r.bitspecs = r.bitspecs[:len(r.bitspecs)-1]
	defer func() { r.bitspecs = append(r.bitspecs, bs) }()

	n := length / chunk
	for i := 0; i < n; i++ {
		idx := n - 1 - i
		if lsb {
			idx = i
		}
		sym := (data >> uint(idx*chunk)) & mask(chunk)
		if err := r.items(bs[sym]); err != nil {
			return err
		}
	}
	return nil
}
