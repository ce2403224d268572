package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/setfield/internal/schema"
	"github.com/roach88/setfield/internal/setfield"
)

type optionsRow struct {
	Options string `db:"options"`
}

// lockOptions compares every field's options with the recorded list.
//
// Bit i of a stored value means "option i", so the recorded list must be a
// prefix of the current one. New fields are recorded; appended options
// update the record.
func (s *Store) lockOptions(ctx context.Context) error {
	for _, m := range s.schema.Models() {
		for _, f := range m.Fields {
			if err := s.lockField(ctx, m, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) lockField(ctx context.Context, m *schema.Model, f *setfield.Field) error {
	current := f.Options()
	encoded, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("lock options %s.%s: %w", m.Table, f.Name(), err)
	}

	var row optionsRow
	err = s.db.GetContext(ctx, &row, s.db.Rebind(
		`SELECT options FROM setfield_options WHERE model_table = ? AND field_name = ?`),
		m.Table, f.Name())
	if errors.Is(err, sql.ErrNoRows) {
		_, err = s.db.ExecContext(ctx, s.db.Rebind(
			`INSERT INTO setfield_options (model_table, field_name, options) VALUES (?, ?, ?)`),
			m.Table, f.Name(), string(encoded))
		if err != nil {
			return fmt.Errorf("lock options %s.%s: %w", m.Table, f.Name(), err)
		}
		s.logger.Debug("options recorded", "table", m.Table, "field", f.Name(), "options", current)
		return nil
	}
	if err != nil {
		return fmt.Errorf("lock options %s.%s: %w", m.Table, f.Name(), err)
	}

	var recorded []string
	if err := json.Unmarshal([]byte(row.Options), &recorded); err != nil {
		return fmt.Errorf("lock options %s.%s: decode recorded options: %w", m.Table, f.Name(), err)
	}

	if !isPrefix(recorded, current) {
		return fmt.Errorf("%w: %s.%s was %q, now %q (options may only be appended)",
			ErrOptionsChanged, m.Table, f.Name(), recorded, current)
	}
	if len(recorded) == len(current) {
		return nil
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE setfield_options SET options = ? WHERE model_table = ? AND field_name = ?`),
		string(encoded), m.Table, f.Name())
	if err != nil {
		return fmt.Errorf("lock options %s.%s: %w", m.Table, f.Name(), err)
	}
	s.logger.Info("options appended", "table", m.Table, "field", f.Name(),
		"added", current[len(recorded):])
	return nil
}

func isPrefix(prefix, full []string) bool {
	if len(prefix) > len(full) {
		return false
	}
	for i := range prefix {
		if prefix[i] != full[i] {
			return false
		}
	}
	return true
}
