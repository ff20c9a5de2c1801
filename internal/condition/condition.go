// Package condition compiles small boolean predicates over the named fields of
// a row. Predicates gate conditional relations, e.g. "a surgery row refers to a
// specimen only when specimen_id is filled in".
//
// Grammar:
//
//	expr    := and ( "||" and )*
//	and     := unary ( "&&" unary )*
//	unary   := "!" unary | primary
//	primary := "(" expr ")"
//	         | "nonempty" "(" ident ")"
//	         | "empty" "(" ident ")"
//	         | ident ( "==" | "!=" ) literal
//	literal := '"' chars '"' | "'" chars "'"
//
// Field references are resolved against the file type's declared field order
// when the predicate is compiled; an unknown field is a compile error.
package condition

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFieldCount is returned by Evaluate when a row does not have the number of
// fields the predicate was compiled for.
var ErrFieldCount = errors.New("condition: field count mismatch")

// Predicate is a compiled predicate over positional row values.
type Predicate interface {
	eval(fields []string) bool
	String() string
}

// Evaluator binds a predicate to one file type's declared field order.
type Evaluator struct {
	fields []string
	pred   Predicate
}

// Compile parses expr and binds it to fieldNames.
func Compile(expr string, fieldNames []string) (*Evaluator, error) {
	idx := indexOf(fieldNames)
	p := &parser{src: expr, idx: idx}
	if err := p.tokenize(); err != nil {
		return nil, err
	}
	pred, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, fmt.Errorf("condition: unexpected %q at offset %d in %q", p.peek().text, p.peek().pos, expr)
	}
	return &Evaluator{fields: append([]string(nil), fieldNames...), pred: pred}, nil
}

// New binds an already-built predicate (see NonEmpty, Equals, ...) to
// fieldNames. Field references inside pred must have been built against the
// same names.
func New(pred Predicate, fieldNames []string) *Evaluator {
	return &Evaluator{fields: append([]string(nil), fieldNames...), pred: pred}
}

// Evaluate binds fields positionally to the declared names and evaluates.
func (e *Evaluator) Evaluate(fields []string) (bool, error) {
	if len(fields) != len(e.fields) {
		return false, fmt.Errorf("%w: got %d, declared %d", ErrFieldCount, len(fields), len(e.fields))
	}
	return e.pred.eval(fields), nil
}

// String renders the predicate in the grammar above.
func (e *Evaluator) String() string { return e.pred.String() }

func indexOf(names []string) map[string]int {
	m := make(map[string]int, len(names))
	for i, n := range names {
		m[n] = i
	}
	return m
}

// Builders, for dictionaries declared in code.

// NonEmpty holds when the named field is not the empty string.
func NonEmpty(fieldNames []string, name string) (Predicate, error) {
	i, err := resolve(indexOf(fieldNames), name)
	if err != nil {
		return nil, err
	}
	return emptyPred{name: name, ix: i, negate: true}, nil
}

// Empty holds when the named field is the empty string.
func Empty(fieldNames []string, name string) (Predicate, error) {
	i, err := resolve(indexOf(fieldNames), name)
	if err != nil {
		return nil, err
	}
	return emptyPred{name: name, ix: i}, nil
}

// Equals holds when the named field equals value.
func Equals(fieldNames []string, name, value string) (Predicate, error) {
	i, err := resolve(indexOf(fieldNames), name)
	if err != nil {
		return nil, err
	}
	return eqPred{name: name, ix: i, value: value}, nil
}

// And holds when every operand holds.
func And(ps ...Predicate) Predicate { return andPred(ps) }

// Or holds when any operand holds.
func Or(ps ...Predicate) Predicate { return orPred(ps) }

// Not negates p.
func Not(p Predicate) Predicate { return notPred{p} }

func resolve(idx map[string]int, name string) (int, error) {
	i, ok := idx[name]
	if !ok {
		return 0, fmt.Errorf("condition: unknown field %q", name)
	}
	return i, nil
}

type emptyPred struct {
	name   string
	ix     int
	negate bool
}

func (p emptyPred) eval(f []string) bool { return (f[p.ix] == "") != p.negate }

func (p emptyPred) String() string {
	if p.negate {
		return "nonempty(" + p.name + ")"
	}
	return "empty(" + p.name + ")"
}

type eqPred struct {
	name   string
	ix     int
	value  string
	negate bool
}

func (p eqPred) eval(f []string) bool { return (f[p.ix] == p.value) != p.negate }

func (p eqPred) String() string {
	op := "=="
	if p.negate {
		op = "!="
	}
	return fmt.Sprintf("%s %s %q", p.name, op, p.value)
}

type andPred []Predicate

func (p andPred) eval(f []string) bool {
	for _, q := range p {
		if !q.eval(f) {
			return false
		}
	}
	return true
}
func (p andPred) String() string { return join(p, " && ") }

type orPred []Predicate

func (p orPred) eval(f []string) bool {
	for _, q := range p {
		if q.eval(f) {
			return true
		}
	}
	return false
}
func (p orPred) String() string { return join(p, " || ") }

type notPred struct{ p Predicate }

func (p notPred) eval(f []string) bool { return !p.p.eval(f) }
func (p notPred) String() string      { return "!" + p.p.String() }

func join(ps []Predicate, sep string) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}
