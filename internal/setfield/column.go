package setfield

import (
	"database/sql/driver"
	"fmt"
	"strconv"
)

// Column binds a Set to its Field for use with database/sql.
//
// As a query argument it encodes (and validates) the set; as a scan
// destination it decodes the stored integer into the set.
type Column struct {
	field *Field
	set   *Set
}

// Column returns a Column over s. s must not be nil.
func (f *Field) Column(s *Set) *Column {
	return &Column{field: f, set: s}
}

// Value implements driver.Valuer. Invalid members fail here, so an invalid
// set never reaches the database.
func (c *Column) Value() (driver.Value, error) {
	mask, err := c.field.Encode(*c.set)
	if err != nil {
		return nil, err
	}
	return mask, nil
}

// Scan implements sql.Scanner. NULL scans as the empty set.
func (c *Column) Scan(src any) error {
	var mask int64
	switch v := src.(type) {
	case nil:
		*c.set = NewSet()
		return nil
	case int64:
		mask = v
	case int32:
		mask = int64(v)
	case int:
		mask = int64(v)
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("scan field %s: %w", c.field.name, err)
		}
		mask = n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("scan field %s: %w", c.field.name, err)
		}
		mask = n
	default:
		return fmt.Errorf("scan field %s: unsupported source type %T", c.field.name, src)
	}

	s, err := c.field.Decode(mask)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	*c.set = s
	return nil
}
