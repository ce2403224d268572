// Package lookup turns "<field>__<lookup>=<value>" filters into queryir
// predicates.
//
// The lookups registered by default are:
//
//	tags__includes=NANA      (tags & 2) > 0
//	tags__excludes=NANA      NOT ((tags & 2) > 0)
//	tags__any=NANA,TOMTOM    (tags & 3) > 0
//	tags__exact=NANA,TOMTOM  tags = 3
//	tags=NANA,TOMTOM         same as exact
//	id=7                     id = 7
//
// Option values are validated against the field, so an unknown option fails
// with *setfield.ValidationError before any SQL is built.
package lookup
