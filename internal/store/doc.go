// Package store provides SQL-backed storage for models with set fields.
//
// Each schema model maps to one table:
//
//	CREATE TABLE tests_testmodel (
//	    id   INTEGER PRIMARY KEY AUTOINCREMENT,
//	    tags INTEGER NOT NULL DEFAULT 0 CHECK (tags >= 0)
//	)
//
// Set fields are stored as their bitmask; reads decode them back into
// setfield.Set values and writes validate before anything reaches the
// database.
//
// # Critical Patterns
//
// Option-order lock:
//   - setfield_options records every field's options list (goose migration)
//   - Reordering or removing options would silently change the meaning of
//     stored bits, so Open fails with ErrOptionsChanged instead
//   - Appending options keeps existing bits valid and is recorded
//
// Deterministic reads:
//   - Every select is compiled by querysql with ORDER BY id
//
// All-or-nothing loads:
//   - Load writes a batch of records in one transaction; one invalid record
//     rolls back the batch
//
// # Database Configuration
//
// SQLite (default driver "sqlite3"):
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single open connection: one writer at a time
//
// Postgres (driver "postgres", lib/pq) uses $n placeholders; queries are
// rebound by sqlx.
package store
