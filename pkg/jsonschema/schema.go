// Package jsonschema validates JSON documents against a compiled JSON Schema.
package jsonschema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Violation is one schema failure at an instance location (a JSON pointer).
type Violation struct {
	Location string
	Message  string
}

func (v Violation) String() string {
	loc := v.Location
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s: %s", loc, v.Message)
}

// Violations is returned by Validate when the document does not conform.
type Violations []Violation

func (vs Violations) Error() string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return "schema violation: " + strings.Join(parts, "; ")
}

// Schema is a compiled schema; it is safe for concurrent use.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
}

// Compile compiles source under the resource name name.
func Compile(name, source string) (*Schema, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource(name, strings.NewReader(source)); err != nil {
		return nil, fmt.Errorf("invalid schema %s: %w", name, err)
	}

	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("invalid schema %s: %w", name, err)
	}

	return &Schema{name: name, compiled: compiled}, nil
}

// MustCompile is like Compile but panics on error. Use it for embedded schemas.
func MustCompile(name, source string) *Schema {
	s, err := Compile(name, source)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks a JSON document. It returns Violations when the document
// parses but does not conform, and a plain error when it does not parse.
func (s *Schema) Validate(doc []byte) error {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return s.ValidateValue(v)
}

// ValidateValue checks an already decoded document (maps, slices and
// json.Number or float64 values).
func (s *Schema) ValidateValue(v interface{}) error {
	err := s.compiled.Validate(v)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if errors.As(err, &verr) {
		return collect(verr, nil)
	}
	return err
}

// collect flattens the cause tree, keeping the leaves: they carry the
// specific messages, the inner nodes only say "doesn't validate with ...".
func collect(err *jsonschema.ValidationError, out Violations) Violations {
	if len(err.Causes) == 0 {
		return append(out, Violation{Location: err.InstanceLocation, Message: err.Message})
	}
	for _, cause := range err.Causes {
		out = collect(cause, out)
	}
	return out
}
