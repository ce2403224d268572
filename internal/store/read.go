package store

import (
	"context"
	"fmt"

	"github.com/roach88/setfield/internal/queryir"
	"github.com/roach88/setfield/internal/schema"
	"github.com/roach88/setfield/internal/setfield"
)

// MaskRow is the primary key and raw stored bitmask of one row.
type MaskRow struct {
	ID   int64
	Mask int64
}

// Get returns the row of label with primary key pk.
func (s *Store) Get(ctx context.Context, label string, pk int64) (*Record, error) {
	records, err := s.Filter(ctx, label, queryir.Equals{Field: schema.PrimaryKey, Value: pk})
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("get %s pk=%d: %w", label, pk, ErrNotFound)
	}
	return records[0], nil
}

// All returns every row of label in primary key order.
func (s *Store) All(ctx context.Context, label string) ([]*Record, error) {
	return s.Filter(ctx, label, nil)
}

// Filter returns the rows of label matching pred (nil matches all), in
// primary key order.
func (s *Store) Filter(ctx context.Context, label string, pred queryir.Predicate) ([]*Record, error) {
	m, err := s.model(label)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}

	query, params, err := s.compiler.Compile(queryir.Select{
		From:    m.Table,
		Columns: m.Columns(),
		Filter:  pred,
	})
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", m.Label, err)
	}

	rows, err := s.db.QueryxContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", m.Label, err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec := &Record{Model: m.Label, Fields: make(map[string]setfield.Set, len(m.Fields))}
		sets := make([]setfield.Set, len(m.Fields))

		dest := make([]any, 0, len(m.Fields)+1)
		dest = append(dest, &rec.PK)
		for i, f := range m.Fields {
			dest = append(dest, f.Column(&sets[i]))
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("filter %s: scan: %w", m.Label, err)
		}
		for i, f := range m.Fields {
			rec.Fields[f.Name()] = sets[i]
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("filter %s: %w", m.Label, err)
	}

	return records, nil
}

// Count returns the number of rows of label matching pred.
func (s *Store) Count(ctx context.Context, label string, pred queryir.Predicate) (int64, error) {
	m, err := s.model(label)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	query, params, err := s.compiler.Compile(queryir.Count{From: m.Table, Filter: pred})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", m.Label, err)
	}

	var n int64
	if err := s.db.GetContext(ctx, &n, query, params...); err != nil {
		return 0, fmt.Errorf("count %s: %w", m.Label, err)
	}
	return n, nil
}

// Masks returns the primary key and raw bitmask of field for every row of
// label matching pred, without decoding.
func (s *Store) Masks(ctx context.Context, label, field string, pred queryir.Predicate) ([]MaskRow, error) {
	m, err := s.model(label)
	if err != nil {
		return nil, fmt.Errorf("masks: %w", err)
	}
	if _, ok := m.Field(field); !ok {
		return nil, fmt.Errorf("masks: %w: %s has no field named %q", schema.ErrUnknownField, m.Label, field)
	}

	query, params, err := s.compiler.Compile(queryir.Select{
		From:    m.Table,
		Columns: []string{schema.PrimaryKey, field},
		Filter:  pred,
	})
	if err != nil {
		return nil, fmt.Errorf("masks %s: %w", m.Label, err)
	}

	rows, err := s.db.QueryxContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("masks %s: %w", m.Label, err)
	}
	defer rows.Close()

	var out []MaskRow
	for rows.Next() {
		var r MaskRow
		if err := rows.Scan(&r.ID, &r.Mask); err != nil {
			return nil, fmt.Errorf("masks %s: scan: %w", m.Label, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("masks %s: %w", m.Label, err)
	}
	return out, nil
}
