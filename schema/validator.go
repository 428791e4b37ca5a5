// Package schema validates framefill configuration against the embedded JSON Schema.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:generate go run ../tools/schema-generator -out definitions/framefill.schema.json

//go:embed framefill.embedded.schema.json
var embeddedSchemaData []byte

const resourceName = "framefill.json"

var compiled = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(resourceName, bytes.NewReader(embeddedSchemaData)); err != nil {
		return nil, fmt.Errorf("failed to add embedded schema: %w", err)
	}
	return c.Compile(resourceName)
})

// EmbeddedSchema returns the raw schema document.
func EmbeddedSchema() []byte {
	return embeddedSchemaData
}

// Problem is one schema violation.
type Problem struct {
	Location string `json:"location"`
	Message  string `json:"message"`
}

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		lines[i] = fmt.Sprintf("- %s: %s", p.Location, p.Message)
	}
	return "schema validation failed:\n" + strings.Join(lines, "\n")
}

// Validate checks v, anything that marshals to JSON, against the embedded
// schema. Violations are returned as a *ValidationError.
func Validate(v interface{}) error {
	sch, err := compiled()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal config for validation: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to decode config for validation: %w", err)
	}

	err = sch.Validate(doc)
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}
	out := &ValidationError{}
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out.Problems = append(out.Problems, Problem{Location: loc, Message: e.Message})
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Slice(out.Problems, func(i, j int) bool { return out.Problems[i].Location < out.Problems[j].Location })
	return out
}
