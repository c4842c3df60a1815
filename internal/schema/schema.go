// Package schema validates result documents against the versioned result
// schema before they are written.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/thoth-station/resultstore/pkg/errors"
	"github.com/thoth-station/resultstore/pkg/types"
)

// Version of the embedded result schema.
const Version = "v1"

//go:embed result_schema.json
var resultSchemaJSON []byte

// Validator checks a document against a schema definition. A nil return
// means the document may be stored; anything else describes the violation.
type Validator interface {
	Validate(doc types.Document) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(doc types.Document) error

// Validate calls f(doc).
func (f ValidatorFunc) Validate(doc types.Document) error {
	return f(doc)
}

// JSONSchemaValidator validates documents with a resolved JSON Schema.
type JSONSchemaValidator struct {
	resolved *jsonschema.Resolved
	version  string
}

// NewJSONSchemaValidator parses and resolves a JSON Schema document.
func NewJSONSchemaValidator(schemaJSON []byte, version string) (*JSONSchemaValidator, error) {
	var s jsonschema.Schema
	if err := json.Unmarshal(schemaJSON, &s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSchemaInvalid, "failed to parse schema", err).
			WithComponent("schema")
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSchemaInvalid, "failed to resolve schema", err).
			WithComponent("schema")
	}
	return &JSONSchemaValidator{resolved: resolved, version: version}, nil
}

// Validate normalizes doc to its JSON form and validates it. The returned
// error is the validator diagnostic, unwrapped.
func (v *JSONSchemaValidator) Validate(doc types.Document) error {
	if doc == nil {
		return fmt.Errorf("document is nil")
	}
	normalized, err := doc.Normalize()
	if err != nil {
		return fmt.Errorf("document is not JSON-serializable: %w", err)
	}
	return v.resolved.Validate(numbersToNative(map[string]any(normalized)))
}

// numbersToNative replaces json.Number leaves with int64, or float64 when the
// value is not an integer, since the validator types json.Number as a string.
func numbersToNative(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val
	case map[string]any:
		for k, elem := range val {
			val[k] = numbersToNative(elem)
		}
		return val
	case []any:
		for i, elem := range val {
			val[i] = numbersToNative(elem)
		}
		return val
	default:
		return v
	}
}

// Version returns the schema version this validator enforces.
func (v *JSONSchemaValidator) Version() string {
	return v.version
}

var (
	defaultOnce      sync.Once
	defaultValidator *JSONSchemaValidator
)

// Default returns the validator for the embedded result schema. The
// embedded schema is part of the build, so a failure to load it panics.
func Default() *JSONSchemaValidator {
	defaultOnce.Do(func() {
		v, err := NewJSONSchemaValidator(resultSchemaJSON, Version)
		if err != nil {
			panic(fmt.Sprintf("schema: embedded result schema: %v", err))
		}
		defaultValidator = v
	})
	return defaultValidator
}
