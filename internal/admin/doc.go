// Package admin serves a JSON admin API over a store: a filtered record
// list with per-option facet counts, record create/read/update/delete, and
// Prometheus metrics.
//
// A set field is filtered through SetFieldFilter. Selecting options narrows
// the list to rows holding every selected option:
//
//	GET /api/models/tests.testmodel/records?tags__includes=NANA&tags__includes=TOMTOM
package admin
