package formula

import (
	"strconv"
	"strings"
)

// parser implements a small recursive-descent evaluator over the
// grammar:
//
//	or-expr    = and-expr ( "or" and-expr )*
//	and-expr   = not-expr ( "and" not-expr )*
//	not-expr   = "not" not-expr | cmp-expr
//	cmp-expr   = add-expr ( ("==" | "!=" | "<=" | ">=" | "<" | ">") add-expr )?
//	add-expr   = mul-expr ( ("+" | "-") mul-expr )*
//	mul-expr   = unary ( ("*" | "/") unary )*
//	unary      = "-" unary | index-expr
//	index-expr = primary ( "[" add-expr "]" )?
//	primary    = number | string | ident | "(" or-expr ")"
//
// Evaluation is eager: every node produces a float64, string, or bool.
type parser struct {
	src string
	pos int
	ctx Context
}

func newParser(src string, ctx Context) *parser {
	return &parser{src: src, ctx: ctx}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peekRune() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) hasPrefix(s string) bool {
	p.skipSpace()
	return strings.HasPrefix(p.src[p.pos:], s)
}

func (p *parser) consume(s string) bool {
	if p.hasPrefix(s) {
		p.pos += len(s)
		return true
	}
	return false
}

func (p *parser) parseExpr() (any, error) { return p.parseOr() }

func (p *parser) parseOr() (any, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.consumeWord("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = truthy(left) || truthy(right)
	}
	return left, nil
}

func (p *parser) parseAnd() (any, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.consumeWord("and") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = truthy(left) && truthy(right)
	}
	return left, nil
}

func (p *parser) parseNot() (any, error) {
	if p.consumeWord("not") {
		v, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	}
	return p.parseCmp()
}

func (p *parser) parseCmp() (any, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	var op string
	switch {
	case p.consume("=="):
		op = "=="
	case p.consume("!="):
		op = "!="
	case p.consume("<="):
		op = "<="
	case p.consume(">="):
		op = ">="
	case p.consume("<"):
		op = "<"
	case p.consume(">"):
		op = ">"
	default:
		return left, nil
	}
	right, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	return compare(left, right, op)
}

func compare(left, right any, op string) (any, error) {
	lf, lok := left.(float64)
	rf, rok := right.(float64)
	if lok && rok {
		switch op {
		case "==":
			return lf == rf, nil
		case "!=":
			return lf != rf, nil
		case "<":
			return lf < rf, nil
		case "<=":
			return lf <= rf, nil
		case ">":
			return lf > rf, nil
		case ">=":
			return lf >= rf, nil
		}
	}
	ls, lsok := left.(string)
	rs, rsok := right.(string)
	if lsok && rsok {
		switch op {
		case "==":
			return ls == rs, nil
		case "!=":
			return ls != rs, nil
		case "<":
			return ls < rs, nil
		case "<=":
			return ls <= rs, nil
		case ">":
			return ls > rs, nil
		case ">=":
			return ls >= rs, nil
		}
	}
	if op == "==" {
		return false, nil
	}
	if op == "!=" {
		return true, nil
	}
	return nil, errf("", 0, "cannot compare %T with %T", left, right)
}

func (p *parser) parseAdd() (any, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.consume("+"):
			right, err := p.parseMul()
			if err != nil {
				return nil, err
			}
			lf, rf, err := bothFloat(left, right)
			if err != nil {
				return nil, err
			}
			left = lf + rf
		case p.consume("-"):
			right, err := p.parseMul()
			if err != nil {
				return nil, err
			}
			lf, rf, err := bothFloat(left, right)
			if err != nil {
				return nil, err
			}
			left = lf - rf
		default:
			return left, nil
		}
	}
}

func (p *parser) parseMul() (any, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.consume("*"):
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			lf, rf, err := bothFloat(left, right)
			if err != nil {
				return nil, err
			}
			left = lf * rf
		case p.consume("/"):
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			lf, rf, err := bothFloat(left, right)
			if err != nil {
				return nil, err
			}
			if rf == 0 {
				return nil, errf(p.src, p.pos, "division by zero")
			}
			left = lf / rf
		default:
			return left, nil
		}
	}
}

func bothFloat(a, b any) (float64, float64, error) {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if !aok || !bok {
		return 0, 0, errf("", 0, "arithmetic requires numeric operands, got %T and %T", a, b)
	}
	return af, bf, nil
}

func (p *parser) parseUnary() (any, error) {
	if p.consume("-") {
		v, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		f, ok := v.(float64)
		if !ok {
			return nil, errf(p.src, p.pos, "unary minus requires a number")
		}
		return -f, nil
	}
	if p.consume("+") {
		return p.parseUnary()
	}
	return p.parseIndex()
}

func (p *parser) parseIndex() (any, error) {
	v, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.consume("[") {
		idx, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		if !p.consume("]") {
			return nil, errf(p.src, p.pos, "expected ']'")
		}
		s, ok := v.(string)
		if !ok {
			return nil, errf(p.src, p.pos, "indexing requires a string")
		}
		n, ok := idx.(float64)
		if !ok {
			return nil, errf(p.src, p.pos, "string index must be numeric")
		}
		i := int(n)
		if i < 0 || i >= len(s) {
			return nil, errf(p.src, p.pos, "string index %d out of range", i)
		}
		v = string(s[i])
	}
	return v, nil
}

func (p *parser) parsePrimary() (any, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, errf(p.src, p.pos, "unexpected end of expression")
	}
	c := p.src[p.pos]
	switch {
	case c == '(':
		p.pos++
		v, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.consume(")") {
			return nil, errf(p.src, p.pos, "expected ')'")
		}
		return v, nil
	case c == '"' || c == '\'':
		return p.parseString(c)
	case isDigit(c):
		return p.parseNumberWithUnit()
	case isIdentStart(c):
		return p.parseIdentOrKeyword()
	default:
		return nil, errf(p.src, p.pos, "unexpected character %q", c)
	}
}

func (p *parser) parseString(quote byte) (any, error) {
	p.pos++ // skip opening quote
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != quote {
		p.pos++
	}
	if p.pos >= len(p.src) {
		return nil, errf(p.src, start, "unterminated string literal")
	}
	s := p.src[start:p.pos]
	p.pos++ // skip closing quote
	return s, nil
}

func (p *parser) parseNumberWithUnit() (any, error) {
	start := p.pos
	for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
		p.pos++
	}
	numStr := p.src[start:p.pos]
	n, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return nil, errf(p.src, start, "invalid number %q", numStr)
	}
	// Optional trailing unit (possibly separated by whitespace), e.g. "50 ns".
	save := p.pos
	p.skipSpace()
	unitStart := p.pos
	for p.pos < len(p.src) && isIdentStart(p.src[p.pos]) {
		p.pos++
	}
	if p.pos > unitStart {
		unit := p.src[unitStart:p.pos]
		if factor, ok := timeUnits[strings.ToLower(unit)]; ok {
			return n * factor, nil
		}
		// A boolean keyword after a number ("2 and ...") starts the next
		// clause; leave it for the enclosing and/or parser.
		if unit == "and" || unit == "or" || unit == "not" {
			p.pos = save
			return n, nil
		}
		// Not a recognized unit: this identifier belongs to the next
		// token (e.g. a variable following implicit multiplication is
		// not supported), so fail rather than silently drop it.
		return nil, errf(p.src, unitStart, "unknown time unit %q", unit)
	}
	p.pos = save
	return n, nil
}

func (p *parser) parseIdentOrKeyword() (any, error) {
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	switch name {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if p.ctx == nil {
		return nil, errf(p.src, start, "undefined variable %q", name)
	}
	v, ok := p.ctx[name]
	if !ok {
		return nil, errf(p.src, start, "undefined variable %q", name)
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case string:
		return t, nil
	case bool:
		return t, nil
	default:
		return nil, errf(p.src, start, "variable %q has unsupported type %T", name, v)
	}
}

// consumeWord consumes a keyword only when it is not immediately
// followed by another identifier character (so "android" doesn't match
// keyword "and").
func (p *parser) consumeWord(word string) bool {
	p.skipSpace()
	if !strings.HasPrefix(p.src[p.pos:], word) {
		return false
	}
	end := p.pos + len(word)
	if end < len(p.src) && isIdentPart(p.src[end]) {
		return false
	}
	p.pos = end
	return true
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}
