// Package schema validates formula documents against the embedded JSON Schema.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"sigs.k8s.io/yaml"

	schemapkg "github.com/ochairo/keg/schema"
)

// Violation is one failed schema constraint
type Violation struct {
	Location string // JSON pointer into the document, "/" for the root
	Message  string
}

// ValidationError lists every violation found in one document
type ValidationError struct {
	Document   string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s does not match the formula schema:", e.Document)
	for _, v := range e.Violations {
		fmt.Fprintf(&b, "\n  %s: %s", v.Location, v.Message)
	}
	return b.String()
}

// Validator checks YAML formulas against the compiled schema
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded formula schema
func NewValidator() (*Validator, error) {
	comp := jsonschema.NewCompiler()
	if err := comp.AddResource(schemapkg.FormulaSchemaName, bytes.NewReader(schemapkg.FormulaSchema)); err != nil {
		return nil, fmt.Errorf("loading schema %q: %w", schemapkg.FormulaSchemaName, err)
	}
	sch, err := comp.Compile(schemapkg.FormulaSchemaName)
	if err != nil {
		return nil, fmt.Errorf("compiling schema %q: %w", schemapkg.FormulaSchemaName, err)
	}
	return &Validator{schema: sch}, nil
}

// ValidateYAML converts a YAML formula to JSON and validates it. document
// names the formula in errors. Schema failures are returned as *ValidationError.
func (v *Validator) ValidateYAML(document string, data []byte) error {
	dataJSON, err := yaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("%s: YAML to JSON conversion failed: %w", document, err)
	}

	// unmarshal into interface{} so the validator can walk it
	var doc interface{}
	if err := json.Unmarshal(dataJSON, &doc); err != nil {
		return fmt.Errorf("%s: invalid JSON: %w", document, err)
	}

	err = v.schema.Validate(doc)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("%s: schema validation failed: %w", document, err)
	}
	return &ValidationError{Document: document, Violations: collect(ve)}
}

// collect flattens the validation error tree down to its leaves
func collect(ve *jsonschema.ValidationError) []Violation {
	var out []Violation
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, Violation{Location: loc, Message: e.Message})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}
