// Package fixture reads and writes model records as fixture files.
//
// A fixture is a list of objects:
//
//	[
//	  {"model": "tests.testmodel", "pk": 1, "fields": {"tags": ["NANA", "TOMTOM"]}}
//	]
//
// The format is chosen by extension: .json, or .yaml/.yml for the same
// shape in YAML. A trailing .gz, .zst, .lz4 or .br compresses the file, as
// in "dump.json.zst".
//
// Set members are written sorted, so dumps of the same rows are byte-stable.
package fixture
