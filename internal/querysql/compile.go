package querysql

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/setfield/internal/queryir"
)

// Dialect selects the placeholder style of compiled SQL.
type Dialect int

const (
	// DialectSQLite uses ? placeholders.
	DialectSQLite Dialect = iota
	// DialectPostgres uses $1, $2, ... placeholders.
	DialectPostgres
)

// DialectForDriver maps a database/sql driver name to its Dialect.
func DialectForDriver(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return DialectSQLite, nil
	case "postgres", "pgx":
		return DialectPostgres, nil
	default:
		return 0, fmt.Errorf("unsupported driver %q", driver)
	}
}

func (d Dialect) String() string {
	switch d {
	case DialectSQLite:
		return "sqlite"
	case DialectPostgres:
		return "postgres"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// SQLCompiler compiles query IR to parameterized SQL.
//
// CRITICAL: ALL selects include ORDER BY id for deterministic results.
// CRITICAL: All values are parameterized (never interpolated).
type SQLCompiler struct {
	Dialect Dialect
}

// NewSQLCompiler creates a new SQLCompiler for dialect.
func NewSQLCompiler(dialect Dialect) *SQLCompiler {
	return &SQLCompiler{Dialect: dialect}
}

// Compile converts a query to parameterized SQL.
// Returns (sql, params, error) tuple.
//
// The query is validated first; identifiers that are not plain SQL
// identifiers are rejected rather than quoted.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if err := queryir.Validate(q).Err(); err != nil {
		return "", nil, err
	}

	var (
		sql    string
		params []any
		err    error
	)
	switch query := q.(type) {
	case queryir.Select:
		sql, params, err = c.compileSelect(query)
	case *queryir.Select:
		sql, params, err = c.compileSelect(*query)
	case queryir.Count:
		sql, params, err = c.compileCount(query)
	case *queryir.Count:
		sql, params, err = c.compileCount(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
	if err != nil {
		return "", nil, err
	}

	return c.rebind(sql), params, nil
}

// CompilePredicate compiles a bare predicate to a WHERE fragment in the
// compiler's dialect. A nil predicate compiles to "1 = 1".
func (c *SQLCompiler) CompilePredicate(p queryir.Predicate) (string, []any, error) {
	if err := queryir.Validate(queryir.Select{From: "t", Filter: p}).Err(); err != nil {
		return "", nil, err
	}
	sql, params, err := c.compilePredicate(p)
	if err != nil {
		return "", nil, err
	}
	return c.rebind(sql), params, nil
}

// rebind rewrites ? placeholders for the dialect.
func (c *SQLCompiler) rebind(sql string) string {
	if c.Dialect == DialectPostgres {
		return sqlx.Rebind(sqlx.DOLLAR, sql)
	}
	return sql
}

// compileSelect compiles a queryir.Select to SQL.
// MANDATORY: Includes ORDER BY.
func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	selectClause := "*"
	if len(q.Columns) > 0 {
		selectClause = strings.Join(q.Columns, ", ")
	}

	whereClause, params, err := c.compileWhere(q.Filter)
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		selectClause,
		q.From,
		whereClause,
		stableOrderKey)

	return sql, params, nil
}

// compileCount compiles a queryir.Count to SQL.
func (c *SQLCompiler) compileCount(q queryir.Count) (string, []any, error) {
	whereClause, params, err := c.compileWhere(q.Filter)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", q.From, whereClause), params, nil
}

func (c *SQLCompiler) compileWhere(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}
	filterSQL, params, err := c.compilePredicate(p)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return " WHERE " + filterSQL, params, nil
}

// stableOrderKey is the ORDER BY of every select. Primary keys are integers,
// so no collation is needed.
const stableOrderKey = "id ASC"

// compilePredicate compiles a queryir.Predicate to SQL WHERE clause fragment.
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil // Always true
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.BitAnd:
		return c.compileBitAnd(pred)
	case *queryir.BitAnd:
		return c.compileBitAnd(*pred)
	case queryir.And:
		return c.compileJunction(pred.Predicates, " AND ", "1 = 1")
	case *queryir.And:
		return c.compileJunction(pred.Predicates, " AND ", "1 = 1")
	case queryir.Or:
		return c.compileJunction(pred.Predicates, " OR ", "1 = 0")
	case *queryir.Or:
		return c.compileJunction(pred.Predicates, " OR ", "1 = 0")
	case queryir.Not:
		return c.compileNot(pred)
	case *queryir.Not:
		return c.compileNot(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles an Equals predicate to "field = ?".
func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	param, err := toParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value: %w", err)
	}
	return fmt.Sprintf("%s = ?", eq.Field), []any{param}, nil
}

// compileBitAnd compiles a BitAnd predicate to "(field & ?) > 0".
// The mask is a parameter, so one statement serves every option.
func (c *SQLCompiler) compileBitAnd(b queryir.BitAnd) (string, []any, error) {
	return fmt.Sprintf("(%s & ?) > 0", b.Field), []any{b.Mask}, nil
}

// compileJunction joins operands with op. Empty operands compile to empty.
// Every operand is parenthesized so nesting never depends on precedence.
func (c *SQLCompiler) compileJunction(preds []queryir.Predicate, op, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}
	if len(preds) == 1 {
		return c.compilePredicate(preds[0])
	}

	sqlParts := make([]string, 0, len(preds))
	var allParams []any
	for _, pred := range preds {
		sql, params, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, "("+sql+")")
		allParams = append(allParams, params...)
	}

	return strings.Join(sqlParts, op), allParams, nil
}

// compileNot compiles a Not predicate to "NOT (...)".
func (c *SQLCompiler) compileNot(n queryir.Not) (string, []any, error) {
	sql, params, err := c.compilePredicate(n.Predicate)
	if err != nil {
		return "", nil, err
	}
	return "NOT (" + sql + ")", params, nil
}

// toParam converts a literal to a driver-friendly SQL parameter.
func toParam(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case bool:
		return val, nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
