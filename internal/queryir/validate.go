package queryir

import (
	"fmt"
	"regexp"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidationResult lists the structural problems found in a query.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems describes each rejected node, in traversal order.
	Problems []string
}

// Err returns nil for a valid result, otherwise an error naming the first
// problem.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("invalid query: %s", r.Problems[0])
}

// Validate checks that every identifier is a plain SQL identifier, every
// literal has a supported type and every BitAnd mask is positive.
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{}
	v.validateQuery(query)

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) checkIdent(kind, name string) {
	if !identPattern.MatchString(name) {
		v.addProblem("%s %q is not a valid identifier", kind, name)
	}
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	case Count:
		v.checkIdent("table", query.From)
		v.validatePredicate(query.Filter)
	case *Count:
		v.checkIdent("table", query.From)
		v.validatePredicate(query.Filter)
	default:
		v.addProblem("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	v.checkIdent("table", sel.From)
	for _, col := range sel.Columns {
		v.checkIdent("column", col)
	}
	v.validatePredicate(sel.Filter)
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		// no filter
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case BitAnd:
		v.validateBitAnd(pred)
	case *BitAnd:
		v.validateBitAnd(*pred)
	case And:
		v.validateAll(pred.Predicates)
	case *And:
		v.validateAll(pred.Predicates)
	case Or:
		v.validateAll(pred.Predicates)
	case *Or:
		v.validateAll(pred.Predicates)
	case Not:
		v.validateNot(pred)
	case *Not:
		v.validateNot(*pred)
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	v.checkIdent("column", eq.Field)
	switch eq.Value.(type) {
	case string, bool, int, int64:
	default:
		v.addProblem("column %q compared to unsupported value type %T", eq.Field, eq.Value)
	}
}

func (v *validator) validateBitAnd(b BitAnd) {
	v.checkIdent("column", b.Field)
	if b.Mask <= 0 {
		v.addProblem("column %q tested against non-positive mask %d", b.Field, b.Mask)
	}
}

func (v *validator) validateNot(n Not) {
	if n.Predicate == nil {
		v.addProblem("NOT without operand")
		return
	}
	v.validatePredicate(n.Predicate)
}

func (v *validator) validateAll(preds []Predicate) {
	for _, p := range preds {
		if p == nil {
			v.addProblem("nil operand in compound predicate")
			continue
		}
		v.validatePredicate(p)
	}
}
