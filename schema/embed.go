// Package schema embeds the JSON Schema formulas are validated against.
package schema

import _ "embed"

// FormulaSchemaName identifies the formula schema in compiler resources and errors
const FormulaSchemaName = "keg-formula.schema.json"

//go:embed keg-formula.schema.json
var FormulaSchema []byte
