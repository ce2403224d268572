// Package queryir provides the query intermediate representation (IR) that
// lookups compile into and SQL backends compile out of.
//
// ARCHITECTURE:
//
//	[field__lookup=value] → [lookup.Registry] → [Query IR] → [querysql] → SQL
//	[admin filter choices] ─────────────────────┘
//
// Lookups never emit SQL text directly. They build predicates here, and the
// querysql backend turns those into parameterized SQL for a dialect.
//
// NODES:
//
// Queries:
//   - Select(from, columns, filter) - Row access with filtering
//   - Count(from, filter) - Row count with filtering
//
// Predicates:
//   - Equals: column = literal
//   - BitAnd: (column & mask) > 0
//   - And / Or: conjunction / disjunction
//   - Not: negation
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package can implement them, so backends can switch
// exhaustively:
//
//	switch p := pred.(type) {
//	case BitAnd, *BitAnd:
//	    // (col & ?) > 0
//	case Equals, *Equals:
//	    // col = ?
//	...
//	}
//
// IDENTIFIERS:
//
// Table and column names are spliced into SQL, so Validate rejects anything
// that is not a plain identifier. Literal values are always bound as
// parameters and are never checked for content.
package queryir
