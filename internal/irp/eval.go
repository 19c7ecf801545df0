package irp

import (
	"fmt"
	"math/bits"
)

// Eval evaluates e against vars. Operands are evaluated left first.
func Eval(e Expr, vars *Vartable) (int64, error) {
	switch e := e.(type) {
	case Number:
		return e.Value, nil
	case Identifier:
		return vars.Get(e.Name)
	case Negative:
		x, err := Eval(e.X, vars)
		if err != nil {
			return 0, err
		}
		return -x, nil
	case Complement:
		x, err := Eval(e.X, vars)
		if err != nil {
			return 0, err
		}
		return ^x, nil
	case BitCount:
		x, err := Eval(e.X, vars)
		if err != nil {
			return 0, err
		}
		return int64(bits.OnesCount64(uint64(x))), nil
	case Binary:
		l, err := Eval(e.L, vars)
		if err != nil {
			return 0, err
		}
		r, err := Eval(e.R, vars)
		if err != nil {
			return 0, err
		}
		return applyBinary(e.Op, l, r)
	case BitField:
		data, length, err := evalBitField(e, vars)
		if err != nil {
			return 0, err
		}
		if length < 0 {
			return int64(reverseBits(data, -length)), nil
		}
		return int64(data), nil
	default:
		return 0, fmt.Errorf("expression %T: %w", e, ErrUnsupported)
	}
}

func applyBinary(op BinaryOp, l, r int64) (int64, error) {
	switch op {
	case Add:
		return l + r, nil
	case Subtract:
		return l - r, nil
	case Multiply:
		return l * r, nil
	case Divide:
		if r == 0 {
			return 0, fmt.Errorf("%d / 0: %w", l, ErrDivideByZero)
		}
		return l / r, nil
	case Modulo:
		if r == 0 {
			return 0, fmt.Errorf("%d %% 0: %w", l, ErrDivideByZero)
		}
		return l % r, nil
	case Power:
		if r < 0 {
			return 0, fmt.Errorf("%d ** %d: %w", l, r, ErrNegativeExponent)
		}
		res := int64(1)
		for ; r > 0; r >>= 1 {
			if r&1 != 0 {
				res *= l
			}
			l *= l
		}
		return res, nil
	case BitwiseAnd:
		return l & r, nil
	case BitwiseOr:
		return l | r, nil
	case BitwiseXor:
		return l ^ r, nil
	case ShiftLeft:
		if r < 0 {
			return l >> uint64(-r), nil
		}
		return l << uint64(r), nil
	case ShiftRight:
		if r < 0 {
			return l << uint64(-r), nil
		}
		return l >> uint64(r), nil
	default:
		return 0, fmt.Errorf("operator %d: %w", op, ErrUnsupported)
	}
}

// evalBitField extracts the field bits. The returned length keeps the
// sign of the declared length; it is zero for infinite fields.
func evalBitField(f BitField, vars *Vartable) (uint64, int, error) {
	v, err := Eval(f.Value, vars)
	if err != nil {
		return 0, 0, err
	}
	if f.Complement {
		v = ^v
	}
	var skip int64
	if f.Skip != nil {
		if skip, err = Eval(f.Skip, vars); err != nil {
			return 0, 0, err
		}
		if skip < 0 || skip > 63 {
			return 0, 0, fmt.Errorf("skip %d: %w", skip, ErrBitFieldLength)
		}
	}
	data := uint64(v) >> uint(skip)
	if f.Infinite {
		return data, 0, nil
	}
	length, err := Eval(f.Length, vars)
	if err != nil {
		return 0, 0, err
	}
	n := length
	if n < 0 {
		n = -n
	}
	if n > 64 {
		return 0, 0, fmt.Errorf("length %d: %w", length, ErrBitFieldLength)
	}
	return data & mask(int(n)), int(length), nil
}

func mask(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(n) - 1
}

func reverseBits(v uint64, n int) uint64 {
	if n == 0 {
		return 0
	}
	return bits.Reverse64(v) >> uint(64-n)
}
