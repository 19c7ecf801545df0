package irp

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestParseNEC(t *testing.T) {
	c := qt.New(t)
	p, err := Parse("{38.4k,564}<1,-1|1,-3>(16,-8,D:8,S:8,F:8,~F:8,1,^108m,(16,-4,1,^108m)*) [D:0..255,S:0..255=255-D,F:0..255]")
	c.Assert(err, qt.IsNil)

	c.Assert(p.GeneralSpec, qt.DeepEquals, []GeneralItem{
		Frequency{KHz: 38.4},
		BaseUnit{Value: 564, Unit: Microseconds},
	})
	c.Assert(p.Bitspec, qt.DeepEquals, Bitspec{
		{Duration{Kind: Flash, Value: 1}, Duration{Kind: Gap, Value: 1}},
		{Duration{Kind: Flash, Value: 1}, Duration{Kind: Gap, Value: 3}},
	})
	c.Assert(p.Stream.Repeat, qt.Equals, RepeatMarker{})
	c.Assert(p.Stream.Items, qt.DeepEquals, []IrStreamItem{
		Duration{Kind: Flash, Value: 16},
		Duration{Kind: Gap, Value: 8},
		BitField{Value: ident("D"), Length: num(8)},
		BitField{Value: ident("S"), Length: num(8)},
		BitField{Value: ident("F"), Length: num(8)},
		BitField{Complement: true, Value: ident("F"), Length: num(8)},
		Duration{Kind: Flash, Value: 1},
		Duration{Kind: Extent, Value: 108, Unit: Milliseconds},
		&IrStream{
			Items: []IrStreamItem{
				Duration{Kind: Flash, Value: 16},
				Duration{Kind: Gap, Value: 4},
				Duration{Kind: Flash, Value: 1},
				Duration{Kind: Extent, Value: 108, Unit: Milliseconds},
			},
			Repeat: RepeatMarker{Kind: RepeatZeroOrMore},
		},
	})
	c.Assert(p.Parameters, qt.DeepEquals, []ParameterSpec{
		{Name: "D", Min: 0, Max: 255},
		{Name: "S", Min: 0, Max: 255, Default: Binary{Op: Subtract, L: num(255), R: ident("D")}},
		{Name: "F", Min: 0, Max: 255},
	})
}

func TestParseGeneralSpec(t *testing.T) {
	c := qt.New(t)
	p, err := Parse("{36k,msb,889,25%}<1,-1|-1,1>(1)")
	c.Assert(err, qt.IsNil)
	c.Assert(p.GeneralSpec, qt.DeepEquals, []GeneralItem{
		Frequency{KHz: 36},
		BitOrder{LSB: false},
		BaseUnit{Value: 889, Unit: Microseconds},
		DutyCycle{Percent: 25},
	})

	p, err = Parse("{40k,16p,lsb}(1)")
	c.Assert(err, qt.IsNil)
	c.Assert(p.GeneralSpec, qt.DeepEquals, []GeneralItem{
		Frequency{KHz: 40},
		BaseUnit{Value: 16, Unit: Pulses},
		BitOrder{LSB: true},
	})
	c.Assert(p.Bitspec, qt.HasLen, 0)

	p, err = Parse("{}(1m,-2u,3p)")
	c.Assert(err, qt.IsNil)
	c.Assert(p.GeneralSpec, qt.HasLen, 0)
	c.Assert(p.Stream.Items, qt.DeepEquals, []IrStreamItem{
		Duration{Kind: Flash, Value: 1, Unit: Milliseconds},
		Duration{Kind: Gap, Value: 2, Unit: Microseconds},
		Duration{Kind: Flash, Value: 3, Unit: Pulses},
	})
}

func TestParseStreamItems(t *testing.T) {
	c := qt.New(t)
	p, err := Parse("{}<1,-1|1,-3>(T=0,A:-6:2,(F^0xFF):4,F::3,<2,-2|2,-6>(D:2)3,(1,-1)2+,(1)+,[1][2][3],X=#F*2+1) {C=D+S}")
	c.Assert(err, qt.IsNil)
	c.Assert(p.Stream.Items, qt.DeepEquals, []IrStreamItem{
		Assignment{Name: "T", Expr: num(0)},
		BitField{Value: ident("A"), Length: Negative{X: num(6)}, Skip: num(2)},
		BitField{Value: Binary{Op: BitwiseXor, L: ident("F"), R: num(0xFF)}, Length: num(4)},
		BitField{Value: ident("F"), Skip: num(3), Infinite: true},
		&IrStream{
			Bitspec: Bitspec{
				{Duration{Kind: Flash, Value: 2}, Duration{Kind: Gap, Value: 2}},
				{Duration{Kind: Flash, Value: 2}, Duration{Kind: Gap, Value: 6}},
			},
			Items:  []IrStreamItem{BitField{Value: ident("D"), Length: num(2)}},
			Repeat: RepeatMarker{Kind: RepeatCount, Count: 3},
		},
		&IrStream{
			Items:  []IrStreamItem{Duration{Kind: Flash, Value: 1}, Duration{Kind: Gap, Value: 1}},
			Repeat: RepeatMarker{Kind: RepeatAtLeast, Count: 2},
		},
		&IrStream{
			Items:  []IrStreamItem{Duration{Kind: Flash, Value: 1}},
			Repeat: RepeatMarker{Kind: RepeatOneOrMore},
		},
		Variation{Alternatives: [][]IrStreamItem{
			{Duration{Kind: Flash, Value: 1}},
			{Duration{Kind: Flash, Value: 2}},
			{Duration{Kind: Flash, Value: 3}},
		}},
		Assignment{Name: "X", Expr: Binary{
			Op: Add,
			L:  Binary{Op: Multiply, L: BitCount{X: ident("F")}, R: num(2)},
			R:  num(1),
		}},
	})
	c.Assert(p.Definitions, qt.DeepEquals, []Definition{
		{Name: "C", Expr: Binary{Op: Add, L: ident("D"), R: ident("S")}},
	})
}

func TestParseExpressionPrecedence(t *testing.T) {
	c := qt.New(t)
	tests := []struct {
		src  string
		want int64
	}{
		{"1+2*3", 7},
		{"(1+2)*3", 9},
		{"2**3**2", 512},
		{"1|2^3&6", 1 | (2 ^ (3 & 6))},
		{"1<<2+1", 8},
		{"-2*3", -6},
		{"~0&0xF", 0xF},
		{"0b101+0x10", 21},
		{"F:4:4", 0xA},
		{"~F:4", 0x5},
		{"17%5-10/3", -1},
	}
	vars := NewVartable()
	vars.Set("F", 0xAA)
	for _, tt := range tests {
		c.Run(tt.src, func(c *qt.C) {
			p, err := Parse("{}(X=" + tt.src + ")")
			c.Assert(err, qt.IsNil)
			a := p.Stream.Items[0].(Assignment)
			got, err := Eval(a.Expr, vars)
			c.Assert(err, qt.IsNil)
			c.Assert(got, qt.Equals, tt.want)
		})
	}
}

func TestParseErrors(t *testing.T) {
	c := qt.New(t)
	tests := []struct {
		src string
		msg string
	}{
		{"", `offset 0: expected \{, got ""`},
		{"{38k", `offset 4: expected , or }`},
		{"{foo}(1)", `offset 1: unknown general spec item "foo"`},
		{"{}(1,)", `offset 5: unexpected "\)" in ir stream`},
		{"{}(38k)", `offset 3: frequency "38" in ir stream`},
		{"{}(1) extra", `offset 6: unexpected token "extra"`},
		{"{}(D:1.5)", `offset 5: invalid number "1.5"`},
		{"{}(1)[D:0..]", `offset 11: expected number, got "\]"`},
	}
	for _, tt := range tests {
		c.Run(tt.src, func(c *qt.C) {
			_, err := Parse(tt.src)
			var se *SyntaxError
			c.Assert(err, qt.ErrorAs, &se)
			c.Assert(err, qt.ErrorMatches, tt.msg)
		})
	}
}
