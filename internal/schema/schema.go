package schema

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/setfield/internal/setfield"
)

var (
	// ErrUnknownModel is returned when a label names no declared model.
	ErrUnknownModel = errors.New("unknown model")

	// ErrUnknownField is returned when a name matches no field of a model.
	ErrUnknownField = errors.New("unknown field")
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqlKeywords are reserved in SQLite or Postgres. Table and field names are
// written into SQL unquoted, so none of them may be used.
var sqlKeywords = map[string]bool{
	"abort": true, "action": true, "add": true, "after": true, "all": true,
	"alter": true, "analyze": true, "and": true, "any": true, "array": true,
	"as": true, "asc": true, "asymmetric": true, "attach": true, "autoincrement": true,
	"before": true, "begin": true, "between": true, "both": true, "by": true,
	"cascade": true, "case": true, "cast": true, "check": true, "collate": true,
	"column": true, "commit": true, "conflict": true, "constraint": true, "create": true,
	"cross": true, "current_date": true, "current_time": true, "current_timestamp": true,
	"current_user": true, "database": true, "default": true, "deferrable": true,
	"deferred": true, "delete": true, "desc": true, "detach": true, "distinct": true,
	"do": true, "drop": true, "each": true, "else": true, "end": true, "escape": true,
	"except": true, "exclusive": true, "exists": true, "explain": true, "false": true,
	"fetch": true, "for": true, "foreign": true, "from": true, "full": true,
	"glob": true, "grant": true, "group": true, "having": true, "if": true,
	"ignore": true, "immediate": true, "in": true, "index": true, "indexed": true,
	"initially": true, "inner": true, "insert": true, "instead": true, "intersect": true,
	"into": true, "is": true, "isnull": true, "join": true, "key": true,
	"lateral": true, "leading": true, "left": true, "like": true, "limit": true,
	"match": true, "natural": true, "no": true, "not": true, "nothing": true,
	"notnull": true, "null": true, "of": true, "offset": true, "on": true,
	"only": true, "or": true, "order": true, "outer": true, "placing": true,
	"plan": true, "pragma": true, "primary": true, "query": true, "raise": true,
	"recursive": true, "references": true, "regexp": true, "reindex": true,
	"release": true, "rename": true, "replace": true, "restrict": true, "returning": true,
	"right": true, "rollback": true, "row": true, "savepoint": true, "select": true,
	"session_user": true, "set": true, "some": true, "symmetric": true, "table": true,
	"temp": true, "temporary": true, "then": true, "to": true, "trailing": true,
	"transaction": true, "trigger": true, "true": true, "union": true, "unique": true,
	"update": true, "user": true, "using": true, "vacuum": true, "values": true,
	"variadic": true, "view": true, "virtual": true, "when": true, "where": true,
	"window": true, "with": true, "without": true,
}

// checkIdent reports why name cannot be used as a table or column name.
func checkIdent(kind, name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("%s %q is not a valid identifier", kind, name)
	}
	if sqlKeywords[strings.ToLower(name)] {
		return fmt.Errorf("%s %q is an SQL keyword", kind, name)
	}
	return nil
}

// PrimaryKey is the implicit integer primary key column of every model.
const PrimaryKey = "id"

// Model is a table holding one or more set fields.
type Model struct {
	Label  string // "<app>.<model>", lower case
	Table  string
	Fields []*setfield.Field
}

// NewModel creates a model with the default table name for label.
func NewModel(label string, fields ...*setfield.Field) *Model {
	label = strings.ToLower(label)
	return &Model{
		Label:  label,
		Table:  strings.ReplaceAll(label, ".", "_"),
		Fields: fields,
	}
}

// Field returns the set field called name.
func (m *Model) Field(name string) (*setfield.Field, bool) {
	for _, f := range m.Fields {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// Columns returns the primary key followed by every field column, in
// declaration order.
func (m *Model) Columns() []string {
	cols := make([]string, 0, len(m.Fields)+1)
	cols = append(cols, PrimaryKey)
	for _, f := range m.Fields {
		cols = append(cols, f.Name())
	}
	return cols
}

func (m *Model) validate() error {
	if m.Label == "" {
		return fmt.Errorf("model label is empty")
	}
	if err := checkIdent("table", m.Table); err != nil {
		return fmt.Errorf("model %s: %w", m.Label, err)
	}
	if len(m.Fields) == 0 {
		return fmt.Errorf("model %s: no fields", m.Label)
	}
	seen := make(map[string]bool, len(m.Fields))
	for _, f := range m.Fields {
		name := f.Name()
		if err := checkIdent("field", name); err != nil {
			return fmt.Errorf("model %s: %w", m.Label, err)
		}
		if strings.EqualFold(name, PrimaryKey) {
			return fmt.Errorf("model %s: field name %q is reserved", m.Label, name)
		}
		if strings.Contains(name, "__") {
			return fmt.Errorf("model %s: field %q must not contain \"__\"", m.Label, name)
		}
		if seen[name] {
			return fmt.Errorf("model %s: field %s declared twice", m.Label, name)
		}
		seen[name] = true
	}
	return nil
}

// Schema is an immutable set of models keyed by label.
type Schema struct {
	models map[string]*Model
	labels []string
}

// New builds a schema from models. Labels and table names must be unique.
func New(models ...*Model) (*Schema, error) {
	s := &Schema{models: make(map[string]*Model, len(models))}
	tables := make(map[string]string, len(models))

	for _, m := range models {
		if err := m.validate(); err != nil {
			return nil, err
		}
		if _, dup := s.models[m.Label]; dup {
			return nil, fmt.Errorf("model %s declared twice", m.Label)
		}
		if other, dup := tables[m.Table]; dup {
			return nil, fmt.Errorf("models %s and %s share table %s", other, m.Label, m.Table)
		}
		s.models[m.Label] = m
		tables[m.Table] = m.Label
		s.labels = append(s.labels, m.Label)
	}
	sort.Strings(s.labels)

	return s, nil
}

// Model returns the model for label. Labels are case-insensitive.
func (s *Schema) Model(label string) (*Model, error) {
	m, ok := s.models[strings.ToLower(label)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, label)
	}
	return m, nil
}

// Models returns every model, ordered by label.
func (s *Schema) Models() []*Model {
	out := make([]*Model, len(s.labels))
	for i, label := range s.labels {
		out[i] = s.models[label]
	}
	return out
}
