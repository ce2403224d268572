package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/setfield/internal/querysql"
	"github.com/roach88/setfield/internal/schema"
	"github.com/roach88/setfield/internal/setfield"
)

// Record is one row of a model. Its JSON and YAML forms are the fixture
// object format:
//
//	{"model": "tests.testmodel", "pk": 1, "fields": {"tags": ["NANA"]}}
type Record struct {
	Model  string                  `json:"model" yaml:"model"`
	PK     int64                   `json:"pk" yaml:"pk"`
	Fields map[string]setfield.Set `json:"fields" yaml:"fields"`
}

// Create inserts a new row of label. values maps field names to anything
// setfield.Field.Clean accepts; omitted fields take their default.
//
// Unknown members fail with *setfield.ValidationError and nothing is written.
func (s *Store) Create(ctx context.Context, label string, values map[string]any) (*Record, error) {
	m, err := s.model(label)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	if err := checkFieldNames(m, keys(values)); err != nil {
		return nil, fmt.Errorf("create %s: %w", m.Label, err)
	}

	rec := &Record{Model: m.Label, Fields: make(map[string]setfield.Set, len(m.Fields))}
	for _, f := range m.Fields {
		v, ok := values[f.Name()]
		if !ok {
			rec.Fields[f.Name()] = f.Default()
			continue
		}
		set, err := f.Clean(v)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", m.Label, err)
		}
		rec.Fields[f.Name()] = set
	}

	if err := s.insert(ctx, s.db, m, rec); err != nil {
		return nil, fmt.Errorf("create %s: %w", m.Label, err)
	}
	s.logger.Debug("record created", "model", m.Label, "pk", rec.PK)
	return rec, nil
}

// Save writes rec. A zero PK inserts a new row and sets rec.PK; otherwise the
// row is updated and must exist. On update, fields missing from rec.Fields
// keep their stored value.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	m, err := s.model(rec.Model)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := s.validateRecord(m, rec); err != nil {
		return fmt.Errorf("save %s: %w", m.Label, err)
	}

	if rec.PK == 0 {
		full := &Record{Model: m.Label, Fields: withDefaults(m, rec.Fields)}
		if err := s.insert(ctx, s.db, m, full); err != nil {
			return fmt.Errorf("save %s: %w", m.Label, err)
		}
		rec.PK = full.PK
		rec.Fields = full.Fields
		return nil
	}

	var (
		assignments []string
		args        []any
	)
	for _, f := range m.Fields {
		set, ok := rec.Fields[f.Name()]
		if !ok {
			continue
		}
		assignments = append(assignments, f.Name()+" = ?")
		args = append(args, f.Column(&set))
	}
	if len(assignments) == 0 {
		// Nothing to write, but the row must still exist.
		if _, err := s.Get(ctx, m.Label, rec.PK); err != nil {
			return fmt.Errorf("save %s: %w", m.Label, err)
		}
		return nil
	}
	args = append(args, rec.PK)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		m.Table, strings.Join(assignments, ", "), schema.PrimaryKey)
	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("save %s: %w", m.Label, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save %s: %w", m.Label, err)
	}
	if n == 0 {
		return fmt.Errorf("save %s pk=%d: %w", m.Label, rec.PK, ErrNotFound)
	}

	s.logger.Debug("record saved", "model", m.Label, "pk", rec.PK)
	return nil
}

// Delete removes the row of label with primary key pk.
func (s *Store) Delete(ctx context.Context, label string, pk int64) error {
	m, err := s.model(label)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", m.Table, schema.PrimaryKey)
	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), pk)
	if err != nil {
		return fmt.Errorf("delete %s: %w", m.Label, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", m.Label, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s pk=%d: %w", m.Label, pk, ErrNotFound)
	}
	return nil
}

// Load upserts records in a single transaction. Records with a PK replace
// any existing row with that key; records without one are inserted. Missing
// fields take their default.
//
// If any record is invalid nothing is written. Returns the number of records
// written.
func (s *Store) Load(ctx context.Context, records []*Record) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("load: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	touched := make(map[string]*schema.Model)
	for i, rec := range records {
		m, err := s.model(rec.Model)
		if err != nil {
			return 0, fmt.Errorf("load object %d: %w", i, err)
		}
		if err := s.validateRecord(m, rec); err != nil {
			return 0, fmt.Errorf("load object %d (%s pk=%d): %w", i, m.Label, rec.PK, err)
		}

		full := &Record{Model: m.Label, PK: rec.PK, Fields: withDefaults(m, rec.Fields)}
		if full.PK == 0 {
			err = s.insert(ctx, tx, m, full)
		} else {
			err = s.upsert(ctx, tx, m, full)
		}
		if err != nil {
			return 0, fmt.Errorf("load object %d (%s pk=%d): %w", i, m.Label, rec.PK, err)
		}
		touched[m.Table] = m
	}

	if s.dialect == querysql.DialectPostgres {
		for _, m := range touched {
			if err := resetSequence(ctx, tx, m); err != nil {
				return 0, fmt.Errorf("load: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("load: commit: %w", err)
	}
	s.logger.Debug("records loaded", "count", len(records))
	return len(records), nil
}

// insert adds rec as a new row and sets rec.PK. rec.Fields must hold every
// field of m.
func (s *Store) insert(ctx context.Context, db sqlx.ExtContext, m *schema.Model, rec *Record) error {
	cols, args := fieldArgs(m, rec)
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		m.Table, strings.Join(cols, ", "), placeholders(len(cols)), schema.PrimaryKey)

	var id int64
	if err := sqlx.GetContext(ctx, db, &id, db.Rebind(query), args...); err != nil {
		return err
	}
	rec.PK = id
	return nil
}

// upsert writes rec under its PK, replacing every field of an existing row.
func (s *Store) upsert(ctx context.Context, db sqlx.ExtContext, m *schema.Model, rec *Record) error {
	cols, args := fieldArgs(m, rec)
	updates := make([]string, len(cols))
	for i, col := range cols {
		updates[i] = fmt.Sprintf("%s = excluded.%s", col, col)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, %s) ON CONFLICT (%s) DO UPDATE SET %s",
		m.Table, schema.PrimaryKey, strings.Join(cols, ", "), placeholders(len(cols)),
		schema.PrimaryKey, strings.Join(updates, ", "))

	_, err := db.ExecContext(ctx, db.Rebind(query), append([]any{rec.PK}, args...)...)
	return err
}

// resetSequence moves a Postgres serial past explicitly loaded keys.
func resetSequence(ctx context.Context, db sqlx.ExtContext, m *schema.Model) error {
	query := fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%s', '%s'), COALESCE(MAX(%s), 1)) FROM %s",
		m.Table, schema.PrimaryKey, schema.PrimaryKey, m.Table)
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("reset sequence %s: %w", m.Table, err)
	}
	return nil
}

// validateRecord checks field names and every set against its field.
func (s *Store) validateRecord(m *schema.Model, rec *Record) error {
	if err := checkFieldNames(m, keys(rec.Fields)); err != nil {
		return err
	}
	for _, f := range m.Fields {
		if set, ok := rec.Fields[f.Name()]; ok {
			if err := f.Validate(set); err != nil {
				return err
			}
		}
	}
	return nil
}

// fieldArgs returns the field columns of m and their bound values.
func fieldArgs(m *schema.Model, rec *Record) ([]string, []any) {
	cols := make([]string, 0, len(m.Fields))
	args := make([]any, 0, len(m.Fields))
	for _, f := range m.Fields {
		set := rec.Fields[f.Name()]
		cols = append(cols, f.Name())
		args = append(args, f.Column(&set))
	}
	return cols, args
}

// withDefaults copies fields and fills every missing field with its default.
func withDefaults(m *schema.Model, fields map[string]setfield.Set) map[string]setfield.Set {
	out := make(map[string]setfield.Set, len(m.Fields))
	for _, f := range m.Fields {
		if set, ok := fields[f.Name()]; ok {
			out[f.Name()] = set.Clone()
		} else {
			out[f.Name()] = f.Default()
		}
	}
	return out
}

func checkFieldNames(m *schema.Model, names []string) error {
	for _, name := range names {
		if _, ok := m.Field(name); !ok {
			return fmt.Errorf("%w: %s has no field named %q", schema.ErrUnknownField, m.Label, name)
		}
	}
	return nil
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
