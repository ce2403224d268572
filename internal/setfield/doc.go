// Package setfield stores a bounded set of string options as a single
// integer bitmask.
//
// A Field is built from an ordered options list. Position i in that list
// owns bit i of the stored value (1<<i), so a field holds at most
// MaxOptions options and every encoded value is a non-negative int64.
//
//	f, _ := setfield.New("tags", []string{"TOMTOM", "NANA"})
//	mask, _ := f.Encode(setfield.NewSet("NANA")) // 2
//	set, _ := f.Decode(3)                        // {TOMTOM, NANA}
//
// # Validation
//
// Every member of a persisted set must be one of the field's options.
// Encode, Validate and Column.Value reject unknown members with a
// *ValidationError; they are never dropped silently. Decode ignores bits
// at or above len(options).
//
// # Normalization
//
// Options and members are compared in Unicode NFC form, so a composed and a
// decomposed spelling of the same option are the same member.
//
// # SQL
//
// Column binds a *Set to a Field and implements sql.Scanner and
// driver.Valuer, which lets a set be passed straight to database/sql and
// sqlx as a query argument or a scan destination.
package setfield
