package filter

import (
	"fmt"
	"slices"
	"strings"
)

// ParseError is the type of error returned by parse.
type ParseError struct {
	// Source column position where the error occurred.
	Position int
	// Error message.
	Message string
}

// Error returns a formatted version of the error, including the position.
func (e ParseError) Error() string {
	return fmt.Sprintf("parse error at %d: %s", e.Position, e.Message)
}

type parser struct {
	lexer *lexer
	pos   int    // position of last token (tok)
	tok   Token  // last lexed token
	val   string // string value of last token (or "")
}

// Parse compiles a filter expression. Errors are always of type ParseError.
//
// The recursive descent methods panic with a ParseError which is recovered
// here. Any other panic is re-raised.
func Parse(src []byte) (expr Expression, err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(ParseError); ok {
				expr = nil
				err = pe
			} else {
				panic(r)
			}
		}
	}()

	p := parser{lexer: newLexer(src)}
	p.next()

	expr = p.expression()
	p.expect(eol)

	return expr, err
}

// expression parses a logic expression.
//
// term ( "or" term )*
func (p *parser) expression() Expression {
	expr := p.term()

	for p.matches(or) {
		op := p.tok
		p.next()
		right := p.term()
		expr = &binaryExpression{Left: expr, Op: op, Right: right}
	}

	return expr
}

// term parses an AND expression.
//
// factor ( "and" factor )*
func (p *parser) term() Expression {
	expr := p.factor()

	for p.matches(and) {
		op := p.tok
		p.next()
		right := p.factor()
		expr = &binaryExpression{Left: expr, Op: op, Right: right}
	}

	return expr
}

// factor parses a single comparison, a negation or a grouped expression.
func (p *parser) factor() Expression {
	switch p.tok {
	case not:
		p.next()
		return &notExpression{Operand: p.factor()}
	case lbracket:
		p.next()
		expr := p.expression()
		p.expect(rbracket)
		p.next()
		return expr
	default:
		return p.equality()
	}
}

// equality parses a comparison and checks that the value suits the field.
func (p *parser) equality() Expression {
	p.expect(identifier)
	field, ok := lookupField(strings.ToLower(p.val))
	if !ok {
		panic(p.errorf("unknown field %q, known fields: %s", p.val, strings.Join(Fields(), ", ")))
	}
	left := &fieldExpression{Field: field}
	p.next()

	op := p.tok
	switch {
	case op.isComparison():
		p.next()
	case op == like || op == notLike:
		if field.Kind != StringField {
			panic(p.errorf("operator %s needs a string field, %s is a %s", op, field.Name, field.Kind))
		}
		p.next()
		p.expect(regexLit)
	default:
		panic(p.errorf("expected operator instead of %s", op))
	}

	valuePos := p.pos
	right := p.value()
	if err := checkOperand(field, op, right); err != "" {
		panic(ParseError{valuePos, err})
	}

	return &binaryExpression{Left: left, Op: op, Right: right}
}

func checkOperand(field Field, op Token, value Expression) string {
	switch v := value.(type) {
	case *regexExpression:
		if op != like && op != notLike {
			return fmt.Sprintf("regex used with operator %s", op)
		}
		return ""
	case *stringExpression:
		if field.Kind != StringField {
			return fmt.Sprintf("%s is a %s field, got a string", field.Name, field.Kind)
		}
	case *booleanExpression:
		if field.Kind != BoolField {
			return fmt.Sprintf("%s is a %s field, got a boolean", field.Name, field.Kind)
		}
		if op != equal && op != notEqual {
			return fmt.Sprintf("booleans only support = and !=, got %s", op)
		}
	case *quantityExpression:
		switch {
		case field.Kind == NumberField && v.Sized:
			return fmt.Sprintf("%s does not take a size unit", field.Name)
		case field.Kind != NumberField && field.Kind != SizeField:
			return fmt.Sprintf("%s is a %s field, got a number", field.Name, field.Kind)
		}
	}
	return ""
}

// value parses a value (string, quantity, boolean, or regex).
func (p *parser) value() Expression {
	var expr Expression

	switch p.tok {
	case stringLit:
		expr = &stringExpression{Value: p.val}
	case quantity:
		expr = newQuantityExpression(p.pos, p.val)
	case boolean:
		expr = &booleanExpression{Value: strings.EqualFold(p.val, "true")}
	case regexLit:
		expr = newRegexExpression(p.pos, p.val)
	default:
		panic(p.errorf("expected value instead of %s", p.tok))
	}

	p.next()
	return expr
}

// next parses the next token into p.tok.
func (p *parser) next() {
	p.pos, p.tok, p.val = p.lexer.Scan()
	if p.tok == illegal {
		panic(p.errorf("%s", p.val))
	}
}

// matches returns true if current token matches one of the given tokens.
func (p *parser) matches(tokens ...Token) bool {
	return slices.Contains(tokens, p.tok)
}

// expect panics if current token is not the expected token.
func (p *parser) expect(tok Token) {
	if p.tok != tok {
		panic(p.errorf("expected %s instead of %s", tok, p.tok))
	}
}

// errorf formats an error with the current position.
func (p *parser) errorf(format string, args ...any) error {
	message := fmt.Sprintf(format, args...)
	return ParseError{p.pos, message}
}
