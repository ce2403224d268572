package queryir

// Query represents an abstract query in the IR.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a row filter in the IR.
//
// This is a sealed interface - only types in this package implement it.
// A nil Predicate means "no filter".
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select reads columns from a table.
//
// Semantics:
//
//	SELECT <columns> FROM <from> WHERE <filter> ORDER BY id
//
// Example:
//
//	Select{
//	  From:    "tests_testmodel",
//	  Columns: []string{"id", "tags"},
//	  Filter:  BitAnd{Field: "tags", Mask: 2},
//	}
//
// Rows always come back in primary key order.
type Select struct {
	From    string    // Table name
	Columns []string  // Selected columns, in scan order (empty = *)
	Filter  Predicate // WHERE conditions (nil = no filter)
}

func (Select) queryNode() {}

// Count counts the rows of a table that match Filter.
//
// Semantics:
//
//	SELECT COUNT(*) FROM <from> WHERE <filter>
type Count struct {
	From   string
	Filter Predicate
}

func (Count) queryNode() {}

// Equals matches rows whose column equals a literal.
//
// Semantics:
//
//	<field> = <value>
//
// Value must be string, bool, int or int64.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// BitAnd matches rows whose integer column shares at least one set bit with
// Mask.
//
// Semantics:
//
//	(<field> & <mask>) > 0
//
// With a single-bit mask this is set membership for a bitmask column:
//
//	BitAnd{Field: "tags", Mask: 1 << index}
type BitAnd struct {
	Field string
	Mask  int64
}

func (BitAnd) predicateNode() {}

// And is a conjunction. Empty Predicates is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or is a disjunction. Empty Predicates is always false.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Not negates Predicate.
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}

// AllOf returns the conjunction of preds, dropping nils. A single remaining
// predicate is returned unwrapped, and none at all returns nil.
func AllOf(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}
