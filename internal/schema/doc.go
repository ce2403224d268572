// Package schema declares the models whose set fields the store persists.
//
// Models are written in CUE, grouped by app the way table labels are
// ("<app>.<model>"):
//
//	model: tests: testmodel: {
//		fields: tags: options: ["TOMTOM", "NANA"]
//	}
//
//	model: tests: testmodelwithdefault: {
//		table: "tests_defaults"
//		fields: tags: {
//			options: ["TOMTOM", "NANA"]
//			default: ["TOMTOM"]
//			colors: TOMTOM: "#e9c46a"
//		}
//	}
//
// Every model gets an integer "id" primary key, so "id" is not a valid
// field name. The table name defaults to "<app>_<model>".
package schema
