package irp

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Parse parses IRP notation text into a Protocol.
func Parse(src string) (*Protocol, error) {
	p := &parser{lex: newLexer(src)}
	proto, err := p.parseProtocol()
	if err != nil {
		return nil, err
	}
	return proto, nil
}

// Lexer

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIllegal
	tokIdent
	tokNumber
	tokLBrace
	tokRBrace
	tokLAngle
	tokRAngle
	tokLParen
	tokRParen
	tokLBrack
	tokRBrack
	tokComma
	tokPipe
	tokColon
	tokDotDot
	tokAssign
	tokPlus
	tokMinus
	tokStar
	tokStarStar
	tokSlash
	tokPercent
	tokCaret
	tokAmp
	tokTilde
	tokHash
	tokShl
	tokShr
	tokAt
)

type token struct {
	kind   tokenKind
	text   string
	pos    int
	suffix byte // unit suffix of a number: k, m, u or p
}

type lexer struct {
	s string
	i int
}

func newLexer(s string) *lexer { return &lexer{s: s} }

func (l *lexer) peek() token {
	pos := l.i
	tok := l.next()
	l.i = pos
	return tok
}

func (l *lexer) peek2() (token, token) {
	pos := l.i
	a := l.next()
	b := l.next()
	l.i = pos
	return a, b
}

func (l *lexer) next() token {
	for l.i < len(l.s) && unicode.IsSpace(rune(l.s[l.i])) {
		l.i++
	}
	if l.i >= len(l.s) {
		return token{kind: tokEOF, pos: l.i}
	}
	start := l.i
	ch := l.s[l.i]
	two := ""
	if l.i+1 < len(l.s) {
		two = l.s[l.i : l.i+2]
	}
	switch two {
	case "**":
		l.i += 2
		return token{kind: tokStarStar, text: two, pos: start}
	case "<<":
		l.i += 2
		return token{kind: tokShl, text: two, pos: start}
	case ">>":
		l.i += 2
		return token{kind: tokShr, text: two, pos: start}
	case "..":
		l.i += 2
		return token{kind: tokDotDot, text: two, pos: start}
	}
	if kind, ok := singleTokens[ch]; ok {
		l.i++
		return token{kind: kind, text: string(ch), pos: start}
	}

	if isIdentStart(ch) {
		l.i++
		for l.i < len(l.s) && isIdentPart(l.s[l.i]) {
			l.i++
		}
		return token{kind: tokIdent, text: l.s[start:l.i], pos: start}
	}
	if isDigit(ch) {
		return l.number()
	}

	l.i++
	return token{kind: tokIllegal, text: string(ch), pos: start}
}

func (l *lexer) number() token {
	start := l.i
	if l.i+1 < len(l.s) && l.s[l.i] == '0' && strings.ContainsRune("xXbB", rune(l.s[l.i+1])) {
		l.i += 2
		for l.i < len(l.s) && isHexDigit(l.s[l.i]) {
			l.i++
		}
		return token{kind: tokNumber, text: l.s[start:l.i], pos: start}
	}
	for l.i < len(l.s) && isDigit(l.s[l.i]) {
		l.i++
	}
	if l.i+1 < len(l.s) && l.s[l.i] == '.' && isDigit(l.s[l.i+1]) {
		l.i++
		for l.i < len(l.s) && isDigit(l.s[l.i]) {
			l.i++
		}
	}
	tok := token{kind: tokNumber, text: l.s[start:l.i], pos: start}
	if l.i < len(l.s) && strings.IndexByte("kmup", l.s[l.i]) >= 0 &&
		(l.i+1 == len(l.s) || !isIdentPart(l.s[l.i+1])) {
		tok.suffix = l.s[l.i]
		l.i++
	}
	return tok
}

var singleTokens = map[byte]tokenKind{
	'{': tokLBrace,
	'}': tokRBrace,
	'<': tokLAngle,
	'>': tokRAngle,
	'(': tokLParen,
	')': tokRParen,
	'[': tokLBrack,
	']': tokRBrack,
	',': tokComma,
	'|': tokPipe,
	':': tokColon,
	'=': tokAssign,
	'+': tokPlus,
	'-': tokMinus,
	'*': tokStar,
	'/': tokSlash,
	'%': tokPercent,
	'^': tokCaret,
	'&': tokAmp,
	'~': tokTilde,
	'#': tokHash,
	'@': tokAt,
}

func isIdentStart(b byte) bool {
	return unicode.IsLetter(rune(b)) || b == '_'
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// Parser

type parser struct {
	lex *lexer
}

func (p *parser) errorf(tok token, format string, args ...interface{}) error {
	return &SyntaxError{Offset: tok.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	tok := p.lex.next()
	if tok.kind != kind {
		return tok, p.errorf(tok, "expected %s, got %q", what, tok.text)
	}
	return tok, nil
}

func (p *parser) accept(kind tokenKind) bool {
	if p.lex.peek().kind == kind {
		p.lex.next()
		return true
	}
	return false
}

func (p *parser) parseProtocol() (*Protocol, error) {
	proto := &Protocol{}
	gs, err := p.parseGeneralSpec()
	if err != nil {
		return nil, err
	}
	proto.GeneralSpec = gs
	if p.lex.peek().kind == tokLAngle {
		if proto.Bitspec, err = p.parseBitspec(); err != nil {
			return nil, err
		}
	}
	if proto.Stream, err = p.parseIrStream(); err != nil {
		return nil, err
	}
	for {
		switch p.lex.peek().kind {
		case tokLBrace:
			defs, err := p.parseDefinitions()
			if err != nil {
				return nil, err
			}
			proto.Definitions = append(proto.Definitions, defs...)
			continue
		case tokLBrack:
			params, err := p.parseParameterSpecs()
			if err != nil {
				return nil, err
			}
			proto.Parameters = append(proto.Parameters, params...)
			continue
		}
		break
	}
	if tok := p.lex.next(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected token %q", tok.text)
	}
	return proto, nil
}

func (p *parser) parseGeneralSpec() ([]GeneralItem, error) {
	if _, err := p.expect(tokLBrace, "{"); err != nil {
		return nil, err
	}
	var items []GeneralItem
	if p.accept(tokRBrace) {
		return items, nil
	}
	for {
		tok := p.lex.next()
		switch tok.kind {
		case tokIdent:
			switch strings.ToLower(tok.text) {
			case "lsb":
				items = append(items, BitOrder{LSB: true})
			case "msb":
				items = append(items, BitOrder{LSB: false})
			default:
				return nil, p.errorf(tok, "unknown general spec item %q", tok.text)
			}
		case tokNumber:
			v, err := parseFloat(tok)
			if err != nil {
				return nil, p.errorf(tok, "%v", err)
			}
			switch {
			case tok.suffix == 'k':
				items = append(items, Frequency{KHz: v})
			case tok.suffix == 0 && p.accept(tokPercent):
				items = append(items, DutyCycle{Percent: v})
			default:
				items = append(items, BaseUnit{Value: v, Unit: suffixUnit(tok.suffix)})
			}
		default:
			return nil, p.errorf(tok, "unexpected %q in general spec", tok.text)
		}
		tok = p.lex.next()
		if tok.kind == tokRBrace {
			return items, nil
		}
		if tok.kind != tokComma {
			return nil, p.errorf(tok, "expected , or }")
		}
	}
}

func (p *parser) parseBitspec() (Bitspec, error) {
	if _, err := p.expect(tokLAngle, "<"); err != nil {
		return nil, err
	}
	var bs Bitspec
	for {
		items, err := p.parseBareStream()
		if err != nil {
			return nil, err
		}
		bs = append(bs, items)
		tok := p.lex.next()
		if tok.kind == tokRAngle {
			return bs, nil
		}
		if tok.kind != tokPipe {
			return nil, p.errorf(tok, "expected | or >")
		}
	}
}

func (p *parser) parseIrStream() (*IrStream, error) {
	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	items, err := p.parseBareStream()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	s := &IrStream{Items: items}
	tok := p.lex.peek()
	switch tok.kind {
	case tokStar:
		p.lex.next()
		s.Repeat = RepeatMarker{Kind: RepeatZeroOrMore}
	case tokPlus:
		p.lex.next()
		s.Repeat = RepeatMarker{Kind: RepeatOneOrMore}
	case tokNumber:
		p.lex.next()
		n, err := parseInt(tok)
		if err != nil {
			return nil, p.errorf(tok, "%v", err)
		}
		s.Repeat = RepeatMarker{Kind: RepeatCount, Count: int(n)}
		if p.accept(tokPlus) {
			s.Repeat.Kind = RepeatAtLeast
		}
	}
	return s, nil
}

func (p *parser) parseBareStream() ([]IrStreamItem, error) {
	var items []IrStreamItem
	switch p.lex.peek().kind {
	case tokRParen, tokPipe, tokRAngle, tokRBrack:
		return items, nil
	}
	for {
		it, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
		if !p.accept(tokComma) {
			return items, nil
		}
	}
}

func (p *parser) parseItem() (IrStreamItem, error) {
	tok, after := p.lex.peek2()
	switch tok.kind {
	case tokCaret:
		p.lex.next()
		return p.parseDuration(Extent)
	case tokMinus:
		p.lex.next()
		return p.parseDuration(Gap)
	case tokLAngle:
		bs, err := p.parseBitspec()
		if err != nil {
			return nil, err
		}
		s, err := p.parseIrStream()
		if err != nil {
			return nil, err
		}
		s.Bitspec = bs
		return s, nil
	case tokLBrack:
		return p.parseVariation()
	case tokTilde:
		return p.parseBitField()
	case tokLParen:
		// (expr):len is a bit field, anything else a nested stream.
		pos := p.lex.i
		if bf, err := p.parseBitField(); err == nil {
			return bf, nil
		}
		p.lex.i = pos
		return p.parseIrStream()
	case tokIdent:
		switch after.kind {
		case tokAssign:
			p.lex.next()
			p.lex.next()
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return Assignment{Name: tok.text, Expr: e}, nil
		case tokColon:
			return p.parseBitField()
		}
		return p.parseDuration(Flash)
	case tokNumber:
		if after.kind == tokColon {
			return p.parseBitField()
		}
		return p.parseDuration(Flash)
	}
	return nil, p.errorf(tok, "unexpected %q in ir stream", tok.text)
}

func (p *parser) parseDuration(kind DurationKind) (Duration, error) {
	tok := p.lex.next()
	switch tok.kind {
	case tokIdent:
		return Duration{Kind: kind, Name: tok.text, Unit: Microseconds}, nil
	case tokNumber:
		if tok.suffix == 'k' {
			return Duration{}, p.errorf(tok, "frequency %q in ir stream", tok.text)
		}
		v, err := parseFloat(tok)
		if err != nil {
			return Duration{}, p.errorf(tok, "%v", err)
		}
		return Duration{Kind: kind, Value: v, Unit: suffixUnit(tok.suffix)}, nil
	}
	return Duration{}, p.errorf(tok, "expected duration, got %q", tok.text)
}

func (p *parser) parseVariation() (Variation, error) {
	var v Variation
	for p.lex.peek().kind == tokLBrack {
		p.lex.next()
		items, err := p.parseBareStream()
		if err != nil {
			return v, err
		}
		if _, err := p.expect(tokRBrack, "]"); err != nil {
			return v, err
		}
		v.Alternatives = append(v.Alternatives, items)
	}
	return v, nil
}

func (p *parser) parseBitField() (BitField, error) {
	var bf BitField
	bf.Complement = p.accept(tokTilde)
	value, err := p.parsePrimary()
	if err != nil {
		return bf, err
	}
	if _, err := p.expect(tokColon, ":"); err != nil {
		return bf, err
	}
	return p.parseBitFieldRest(bf, value)
}

// parseBitFieldRest parses what follows "value:".
func (p *parser) parseBitFieldRest(bf BitField, value Expr) (BitField, error) {
	bf.Value = value
	if p.accept(tokColon) {
		skip, err := p.parsePrimary()
		if err != nil {
			return bf, err
		}
		bf.Infinite = true
		bf.Skip = skip
		return bf, nil
	}
	neg := p.accept(tokMinus)
	length, err := p.parsePrimary()
	if err != nil {
		return bf, err
	}
	if neg {
		length = Negative{X: length}
	}
	bf.Length = length
	if p.accept(tokColon) {
		if bf.Skip, err = p.parsePrimary(); err != nil {
			return bf, err
		}
	}
	return bf, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.lex.next()
	switch tok.kind {
	case tokIdent:
		return Identifier{Name: tok.text}, nil
	case tokNumber:
		v, err := parseInt(tok)
		if err != nil {
			return nil, p.errorf(tok, "%v", err)
		}
		return Number{Value: v}, nil
	case tokLParen:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, p.errorf(tok, "unexpected token %q", tok.text)
}

// Expressions, lowest precedence first.

func (p *parser) parseExpr() (Expr, error) { return p.parseBinary(0) }

var precedence = []map[tokenKind]BinaryOp{
	{tokPipe: BitwiseOr},
	{tokCaret: BitwiseXor},
	{tokAmp: BitwiseAnd},
	{tokShl: ShiftLeft, tokShr: ShiftRight},
	{tokPlus: Add, tokMinus: Subtract},
	{tokStar: Multiply, tokSlash: Divide, tokPercent: Modulo},
}

func (p *parser) parseBinary(level int) (Expr, error) {
	if level == len(precedence) {
		return p.parsePower()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := precedence[level][p.lex.peek().kind]
		if !ok {
			return left, nil
		}
		p.lex.next()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, L: left, R: right}
	}
}

func (p *parser) parsePower() (Expr, error) {
	base, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if !p.accept(tokStarStar) {
		return base, nil
	}
	exp, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	return Binary{Op: Power, L: base, R: exp}, nil
}

func (p *parser) parseUnary() (Expr, error) {
	switch p.lex.peek().kind {
	case tokMinus:
		p.lex.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Negative{X: x}, nil
	case tokTilde:
		p.lex.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// ~F:8 complements before extraction.
		if bf, ok := x.(BitField); ok && !bf.Complement {
			bf.Complement = true
			return bf, nil
		}
		return Complement{X: x}, nil
	case tokHash:
		p.lex.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return BitCount{X: x}, nil
	}
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if !p.accept(tokColon) {
		return x, nil
	}
	return p.parseBitFieldRest(BitField{}, x)
}

func (p *parser) parseDefinitions() ([]Definition, error) {
	if _, err := p.expect(tokLBrace, "{"); err != nil {
		return nil, err
	}
	var defs []Definition
	if p.accept(tokRBrace) {
		return defs, nil
	}
	for {
		name, err := p.expect(tokIdent, "definition name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokAssign, "="); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		defs = append(defs, Definition{Name: name.text, Expr: e})
		tok := p.lex.next()
		if tok.kind == tokRBrace {
			return defs, nil
		}
		if tok.kind != tokComma {
			return nil, p.errorf(tok, "expected , or }")
		}
	}
}

func (p *parser) parseParameterSpecs() ([]ParameterSpec, error) {
	if _, err := p.expect(tokLBrack, "["); err != nil {
		return nil, err
	}
	var specs []ParameterSpec
	for {
		name, err := p.expect(tokIdent, "parameter name")
		if err != nil {
			return nil, err
		}
		memory := p.accept(tokAt)
		if _, err := p.expect(tokColon, ":"); err != nil {
			return nil, err
		}
		min, err := p.parseBound()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokDotDot, ".."); err != nil {
			return nil, err
		}
		max, err := p.parseBound()
		if err != nil {
			return nil, err
		}
		ps := ParameterSpec{Name: name.text, Memory: memory, Min: min, Max: max}
		if p.accept(tokAssign) {
			if ps.Default, err = p.parseExpr(); err != nil {
				return nil, err
			}
		}
		specs = append(specs, ps)
		tok := p.lex.next()
		if tok.kind == tokRBrack {
			return specs, nil
		}
		if tok.kind != tokComma {
			return nil, p.errorf(tok, "expected , or ]")
		}
	}
}

func (p *parser) parseBound() (int64, error) {
	neg := p.accept(tokMinus)
	tok, err := p.expect(tokNumber, "number")
	if err != nil {
		return 0, err
	}
	v, err := parseInt(tok)
	if err != nil {
		return 0, p.errorf(tok, "%v", err)
	}
	if neg {
		v = -v
	}
	return v, nil
}

func suffixUnit(s byte) Unit {
	switch s {
	case 'm':
		return Milliseconds
	case 'p':
		return Pulses
	default:
		return Microseconds
	}
}

func parseInt(tok token) (int64, error) {
	if tok.suffix != 0 {
		return 0, fmt.Errorf("unexpected unit on %q", tok.text)
	}
	s := tok.text
	base := 10
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base, s = 16, s[2:]
	} else if len(s) > 2 && s[0] == '0' && (s[1] == 'b' || s[1] == 'B') {
		base, s = 2, s[2:]
	}
	v, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", tok.text)
	}
	return int64(v), nil
}

func parseFloat(tok token) (float64, error) {
	if strings.HasPrefix(tok.text, "0x") || strings.HasPrefix(tok.text, "0X") ||
		strings.HasPrefix(tok.text, "0b") || strings.HasPrefix(tok.text, "0B") {
		v, err := parseInt(token{text: tok.text})
		return float64(v), err
	}
	v, err := strconv.ParseFloat(tok.text, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", tok.text)
	}
	return v, nil
}
