// Package predicate implements the flat condition dialect understood by the
// document storages.
//
// A condition is a conjunction of comparisons:
//
//	status = 'open' AND owner = ? AND version = 3
//	deleted_at IS NULL AND score >= 0.5
//
// Supported operators are = != <> < <= > >= and IS [NOT] NULL. Operands are
// ? placeholders (bound in order), integers, floats, single quoted strings
// and TRUE/FALSE. Comparisons against missing or null fields never match,
// following SQL semantics.
package predicate

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Errors.
var (
	ErrSyntax           = errors.New("condition syntax error")
	ErrParamCount       = errors.New("condition parameter count mismatch")
	ErrUnsupportedValue = errors.New("unsupported condition value type")
)

// Operator is a comparison operator.
type Operator uint8

// Operators.
const (
	Equals Operator = iota + 1
	NotEquals
	LessThan
	LessOrEqual
	GreaterThan
	GreaterOrEqual
	IsNull
	IsNotNull
)

func (op Operator) String() string {
	switch op {
	case Equals:
		return "="
	case NotEquals:
		return "!="
	case LessThan:
		return "<"
	case LessOrEqual:
		return "<="
	case GreaterThan:
		return ">"
	case GreaterOrEqual:
		return ">="
	case IsNull:
		return "IS NULL"
	case IsNotNull:
		return "IS NOT NULL"
	default:
		return "?"
	}
}

func parseOperator(s string) (Operator, bool) {
	switch s {
	case "=":
		return Equals, true
	case "!=", "<>":
		return NotEquals, true
	case "<":
		return LessThan, true
	case "<=":
		return LessOrEqual, true
	case ">":
		return GreaterThan, true
	case ">=":
		return GreaterOrEqual, true
	}
	return 0, false
}

// Clause is a single comparison of a field.
type Clause struct {
	Field    string
	Operator Operator
	// Value is nil, bool, int64, float64 or string.
	Value interface{}
}

// Predicate is a parsed condition. The zero value matches everything.
type Predicate struct {
	Clauses []Clause
}

// Parse parses the condition and binds the given parameters.
func Parse(condition string, params []interface{}) (*Predicate, error) {
	tokens, err := tokenize(condition)
	if err != nil {
		return nil, err
	}

	p := &parser{
		tokens: tokens,
		params: params,
	}
	pred := &Predicate{}
	if len(tokens) == 0 {
		if len(params) > 0 {
			return nil, fmt.Errorf("%w: got %d parameters for empty condition", ErrParamCount, len(params))
		}
		return pred, nil
	}

	for {
		clause, err := p.clause()
		if err != nil {
			return nil, err
		}
		pred.Clauses = append(pred.Clauses, clause)

		if p.done() {
			break
		}
		if !p.keyword("AND") {
			return nil, p.unexpected("AND")
		}
	}

	if p.paramIndex != len(params) {
		return nil, fmt.Errorf("%w: condition uses %d, got %d", ErrParamCount, p.paramIndex, len(params))
	}
	return pred, nil
}

// Matches returns whether the JSON document satisfies all clauses.
func (pred *Predicate) Matches(doc []byte) bool {
	for _, c := range pred.Clauses {
		if !c.Matches(gjson.GetBytes(doc, c.Field)) {
			return false
		}
	}
	return true
}

// String returns the normalized textual form of the predicate.
func (pred *Predicate) String() string {
	parts := make([]string, 0, len(pred.Clauses))
	for _, c := range pred.Clauses {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, " AND ")
}

func (c Clause) String() string {
	switch c.Operator {
	case IsNull, IsNotNull:
		return c.Field + " " + c.Operator.String()
	}
	switch v := c.Value.(type) {
	case string:
		return fmt.Sprintf("%s %s '%s'", c.Field, c.Operator, strings.ReplaceAll(v, "'", "''"))
	case nil:
		return fmt.Sprintf("%s %s NULL", c.Field, c.Operator)
	default:
		return fmt.Sprintf("%s %s %v", c.Field, c.Operator, v)
	}
}

// Matches returns whether the given field value satisfies the clause.
func (c Clause) Matches(field gjson.Result) bool {
	isNull := !field.Exists() || field.Type == gjson.Null
	switch c.Operator {
	case IsNull:
		return isNull
	case IsNotNull:
		return !isNull
	}
	if isNull || c.Value == nil {
		return false
	}

	cmp, ok := compare(field, c.Value)
	if !ok {
		// values of different kinds are never equal
		return c.Operator == NotEquals
	}

	switch c.Operator {
	case Equals:
		return cmp == 0
	case NotEquals:
		return cmp != 0
	case LessThan:
		return cmp < 0
	case LessOrEqual:
		return cmp <= 0
	case GreaterThan:
		return cmp > 0
	case GreaterOrEqual:
		return cmp >= 0
	}
	return false
}

func compare(field gjson.Result, value interface{}) (int, bool) {
	switch v := value.(type) {
	case int64:
		if field.Type != gjson.Number {
			return 0, false
		}
		if isIntegral(field.Raw) {
			return compareInt(field.Int(), v), true
		}
		return compareFloat(field.Num, float64(v)), true
	case float64:
		if field.Type != gjson.Number {
			return 0, false
		}
		return compareFloat(field.Num, v), true
	case string:
		if field.Type != gjson.String {
			return 0, false
		}
		return strings.Compare(field.Str, v), true
	case bool:
		if field.Type != gjson.True && field.Type != gjson.False {
			return 0, false
		}
		a, b := field.Bool(), v
		switch {
		case a == b:
			return 0, true
		case !a:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

func isIntegral(raw string) bool {
	return !strings.ContainsAny(raw, ".eE")
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Normalize converts a Go value into the value domain of the document
// storages: nil, bool, int64, float64 or string. Times are formatted as
// RFC3339 with nanoseconds in UTC.
func Normalize(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil, bool, int64, float64, string:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint:
		return fromUint64(uint64(v))
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return fromUint64(v)
	case float32:
		return float64(v), nil
	case []byte:
		return string(v), nil
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}
}

func fromUint64(v uint64) (interface{}, error) {
	if v > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %d overflows int64", ErrUnsupportedValue, v)
	}
	return int64(v), nil
}

type parser struct {
	tokens     []token
	pos        int
	params     []interface{}
	paramIndex int
}

func (p *parser) done() bool {
	return p.pos >= len(p.tokens)
}

func (p *parser) next() (token, bool) {
	if p.done() {
		return token{}, false
	}
	t := p.tokens[p.pos]
	p.pos++
	return t, true
}

func (p *parser) keyword(kw string) bool {
	if p.done() {
		return false
	}
	t := p.tokens[p.pos]
	if t.kind == tokIdent && strings.EqualFold(t.text, kw) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) unexpected(expected string) error {
	if p.done() {
		return fmt.Errorf("%w: expected %s at end of condition", ErrSyntax, expected)
	}
	t := p.tokens[p.pos]
	return fmt.Errorf("%w: expected %s, got %q at %d", ErrSyntax, expected, t.text, t.pos)
}

func isReserved(s string) bool {
	switch strings.ToUpper(s) {
	case "AND", "OR", "NOT", "IS", "NULL", "TRUE", "FALSE":
		return true
	}
	return false
}

func (p *parser) clause() (Clause, error) {
	if p.done() {
		return Clause{}, p.unexpected("field name")
	}
	field := p.tokens[p.pos]
	if field.kind != tokIdent || isReserved(field.text) {
		return Clause{}, p.unexpected("field name")
	}
	p.pos++
	c := Clause{Field: field.text}

	if p.keyword("IS") {
		c.Operator = IsNull
		if p.keyword("NOT") {
			c.Operator = IsNotNull
		}
		if !p.keyword("NULL") {
			return Clause{}, p.unexpected("NULL")
		}
		return c, nil
	}

	opToken, ok := p.next()
	if !ok || opToken.kind != tokOperator {
		if ok {
			p.pos--
		}
		return Clause{}, p.unexpected("operator")
	}
	c.Operator, _ = parseOperator(opToken.text)

	operand, ok := p.next()
	if !ok {
		return Clause{}, p.unexpected("operand")
	}
	switch operand.kind {
	case tokParam:
		if p.paramIndex >= len(p.params) {
			return Clause{}, fmt.Errorf("%w: not enough parameters", ErrParamCount)
		}
		v, err := Normalize(p.params[p.paramIndex])
		if err != nil {
			return Clause{}, err
		}
		c.Value = v
		p.paramIndex++
	case tokNumber:
		if i, err := strconv.ParseInt(operand.text, 10, 64); err == nil {
			c.Value = i
		} else if f, err := strconv.ParseFloat(operand.text, 64); err == nil {
			c.Value = f
		} else {
			return Clause{}, fmt.Errorf("%w: invalid number %q at %d", ErrSyntax, operand.text, operand.pos)
		}
	case tokString:
		c.Value = operand.text
	case tokIdent:
		switch strings.ToUpper(operand.text) {
		case "TRUE":
			c.Value = true
		case "FALSE":
			c.Value = false
		case "NULL":
			return Clause{}, fmt.Errorf("%w: use IS NULL to compare with NULL", ErrSyntax)
		default:
			return Clause{}, fmt.Errorf("%w: comparing fields is not supported (%q at %d)", ErrSyntax, operand.text, operand.pos)
		}
	default:
		return Clause{}, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, operand.text, operand.pos)
	}

	return c, nil
}
