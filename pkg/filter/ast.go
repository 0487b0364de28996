package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/docker/go-units"
)

// Expression is the abstract syntax tree for any expression.
type Expression interface {
	String() string
	Sql() string
}

// binaryExpression is an expression like "a = b" or "a and b".
type binaryExpression struct {
	Left  Expression
	Op    Token
	Right Expression
}

func (e *binaryExpression) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left.String(), e.Op.String(), e.Right.String())
}

func (e *binaryExpression) Sql() string {
	switch e.Op {
	case like:
		return fmt.Sprintf("COALESCE(regexp_matches(%s, %s), FALSE)", e.Left.Sql(), e.Right.Sql())
	case notLike:
		return fmt.Sprintf("NOT COALESCE(regexp_matches(%s, %s), FALSE)", e.Left.Sql(), e.Right.Sql())
	default:
		return fmt.Sprintf("(%s %s %s)", e.Left.Sql(), e.Op.Sql(), e.Right.Sql())
	}
}

// notExpression negates its operand.
type notExpression struct {
	Operand Expression
}

func (e *notExpression) String() string {
	return fmt.Sprintf("(not %s)", e.Operand.String())
}

func (e *notExpression) Sql() string {
	return fmt.Sprintf("(NOT %s)", e.Operand.Sql())
}

// stringExpression is a literal string like "rhel".
type stringExpression struct {
	Value string
}

func (e *stringExpression) String() string {
	return strconv.Quote(e.Value)
}

func (e *stringExpression) Sql() string {
	return fmt.Sprintf("'%s'", strings.ReplaceAll(e.Value, "'", "''"))
}

// fieldExpression is a known field like "os.distro".
type fieldExpression struct {
	Field Field
}

func (f *fieldExpression) String() string {
	return f.Field.Name
}

func (f *fieldExpression) Sql() string {
	return f.Field.Sql
}

// booleanExpression is a boolean literal (true or false).
type booleanExpression struct {
	Value bool
}

func (b *booleanExpression) String() string {
	return strconv.FormatBool(b.Value)
}

func (b *booleanExpression) Sql() string {
	if b.Value {
		return "TRUE"
	}
	return "FALSE"
}

// regexExpression is a regex literal like /pattern/.
type regexExpression struct {
	Pattern string
}

func newRegexExpression(pos int, pattern string) *regexExpression {
	if _, err := regexp.Compile(pattern); err != nil {
		panic(ParseError{pos, fmt.Sprintf("invalid regex: %s", err)})
	}
	return &regexExpression{Pattern: pattern}
}

func (r *regexExpression) String() string {
	return fmt.Sprintf("/%s/", r.Pattern)
}

func (r *regexExpression) Sql() string {
	return fmt.Sprintf("'%s'", strings.ReplaceAll(r.Pattern, "'", "''"))
}

// quantityExpression is a number, optionally followed by a size unit.
// Sized values are kept in bytes.
type quantityExpression struct {
	Raw   string
	Value float64
	Sized bool
}

func newQuantityExpression(pos int, val string) *quantityExpression {
	q := &quantityExpression{Raw: val}

	if i := strings.IndexFunc(val, isUnitRune); i >= 0 {
		// RAMInBytes reads KB as 1024 bytes, like the sizes reported by guest tools.
		n, err := units.RAMInBytes(val)
		if err != nil {
			panic(ParseError{pos, fmt.Sprintf("invalid size %q: %s", val, err)})
		}
		q.Value = float64(n)
		q.Sized = true
		return q
	}

	n, err := strconv.ParseFloat(val, 64)
	if err != nil {
		panic(ParseError{pos, fmt.Sprintf("invalid number %q", val)})
	}
	q.Value = n
	return q
}

func isUnitRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func (q *quantityExpression) String() string {
	if q.Sized {
		return units.BytesSize(q.Value)
	}
	return strconv.FormatFloat(q.Value, 'f', -1, 64)
}

func (q *quantityExpression) Sql() string {
	return strconv.FormatFloat(q.Value, 'f', -1, 64)
}
