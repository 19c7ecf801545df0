package irp

// Protocol is a parsed IRP definition.
type Protocol struct {
	GeneralSpec []GeneralItem
	Bitspec     Bitspec
	Stream      *IrStream
	Definitions []Definition
	Parameters  []ParameterSpec
}

// General spec items

type GeneralItem interface{ isGeneralItem() }

type DutyCycle struct{ Percent float64 }

func (DutyCycle) isGeneralItem() {}

type Frequency struct{ KHz float64 }

func (Frequency) isGeneralItem() {}

type BitOrder struct{ LSB bool }

func (BitOrder) isGeneralItem() {}

type BaseUnit struct {
	Value float64
	Unit  Unit
}

func (BaseUnit) isGeneralItem() {}

type Unit int

const (
	Microseconds Unit = iota
	Milliseconds
	Pulses
)

func (u Unit) String() string {
	switch u {
	case Milliseconds:
		return "m"
	case Pulses:
		return "p"
	default:
		return "u"
	}
}

// Bitspec holds one bare stream per symbol value.
type Bitspec [][]IrStreamItem

// Stream items

type IrStreamItem interface{ isItem() }

type DurationKind int

const (
	Flash DurationKind = iota
	Gap
	Extent
)

// Duration is a flash, gap or extent. Name is set for the identifier
// form, Value otherwise.
type Duration struct {
	Kind  DurationKind
	Value float64
	Name  string
	Unit  Unit
}

func (Duration) isItem() {}

type Assignment struct {
	Name string
	Expr Expr
}

func (Assignment) isItem() {}

type RepeatKind int

const (
	RepeatNone RepeatKind = iota
	RepeatCount
	RepeatZeroOrMore
	RepeatOneOrMore
	RepeatAtLeast
)

type RepeatMarker struct {
	Kind  RepeatKind
	Count int
}

// IrStream is a parenthesised stream, optionally preceded by its own bitspec.
type IrStream struct {
	Bitspec Bitspec
	Items   []IrStreamItem
	Repeat  RepeatMarker
}

func (*IrStream) isItem() {}

// Variation is the [intro][repeat][ending] alternative construct.
type Variation struct {
	Alternatives [][]IrStreamItem
}

func (Variation) isItem() {}

type Definition struct {
	Name string
	Expr Expr
}

// ParameterSpec is one entry of the [..] list. Memory marks a parameter
// declared with @, whose value a caller carries between sends.
type ParameterSpec struct {
	Name    string
	Memory  bool
	Min     int64
	Max     int64
	Default Expr
}

// Expr AST

type Expr interface{ isExpr() }

type Number struct{ Value int64 }

func (Number) isExpr() {}

type Identifier struct{ Name string }

func (Identifier) isExpr() {}

type Negative struct{ X Expr }

func (Negative) isExpr() {}

type Complement struct{ X Expr }

func (Complement) isExpr() {}

type BitCount struct{ X Expr }

func (BitCount) isExpr() {}

type BinaryOp int

const (
	Add BinaryOp = iota
	Subtract
	Multiply
	Divide
	Modulo
	Power
	BitwiseAnd
	BitwiseOr
	BitwiseXor
	ShiftLeft
	ShiftRight
)

var binaryOpText = map[BinaryOp]string{
	Add:        "+",
	Subtract:   "-",
	Multiply:   "*",
	Divide:     "/",
	Modulo:     "%",
	Power:      "**",
	BitwiseAnd: "&",
	BitwiseOr:  "|",
	BitwiseXor: "^",
	ShiftLeft:  "<<",
	ShiftRight: ">>",
}

func (op BinaryOp) String() string { return binaryOpText[op] }

type Binary struct {
	Op   BinaryOp
	L, R Expr
}

func (Binary) isExpr() {}

// BitField is value:length:skip. It is both an expression and, when it
// appears directly in a stream, an item expanded through the bitspec.
// Infinite fields (value::skip) have no Length.
type BitField struct {
	Complement bool
	Value      Expr
	Length     Expr
	Skip       Expr
	Infinite   bool
}

func (BitField) isExpr() {}
func (BitField) isItem() {}
