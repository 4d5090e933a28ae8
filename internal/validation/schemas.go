package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaValidator validates API payloads against JSON schemas before they
// reach the service layer. Schemas are compiled once at startup.
type SchemaValidator struct {
	schemas map[string]*gojsonschema.Schema
}

// ValidationResult reports schema validation failures field by field.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

const weightConfigSchema = `{
	"type": "object",
	"required": ["name", "weights"],
	"additionalProperties": false,
	"properties": {
		"name": {"type": "string", "minLength": 1, "maxLength": 255},
		"weights": {
			"type": "object",
			"required": ["impact", "urgency", "effort", "strategic", "trend"],
			"additionalProperties": false,
			"properties": {
				"impact": {"type": "number", "minimum": 0, "maximum": 1},
				"urgency": {"type": "number", "minimum": 0, "maximum": 1},
				"effort": {"type": "number", "minimum": 0, "maximum": 1},
				"strategic": {"type": "number", "minimum": 0, "maximum": 1},
				"trend": {"type": "number", "minimum": 0, "maximum": 1}
			}
		},
		"created_by": {"type": "string"},
		"make_active": {"type": "boolean"}
	}
}`

const previewSchema = `{
	"type": "object",
	"required": ["weights"],
	"additionalProperties": false,
	"properties": {
		"weights": {"type": "object"},
		"sample_size": {"type": "integer", "minimum": 1, "maximum": 200}
	}
}`

const recomputeSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"course_ids": {"type": "array", "items": {"type": "string", "minLength": 1}},
		"force_refresh": {"type": "boolean"}
	}
}`

func NewSchemaValidator() (*SchemaValidator, error) {
	sv := &SchemaValidator{schemas: make(map[string]*gojsonschema.Schema)}

	sources := map[string]string{
		"weight-config": weightConfigSchema,
		"preview":       previewSchema,
		"recompute":     recomputeSchema,
	}

	for name, source := range sources {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
		sv.schemas[name] = schema
	}

	return sv, nil
}

// ValidateWeightConfig validates a weight-config creation payload.
func (sv *SchemaValidator) ValidateWeightConfig(data interface{}) *ValidationResult {
	return sv.validate("weight-config", data)
}

// ValidatePreview validates a preview payload.
func (sv *SchemaValidator) ValidatePreview(data interface{}) *ValidationResult {
	return sv.validate("preview", data)
}

// ValidateRecompute validates a recompute payload.
func (sv *SchemaValidator) ValidateRecompute(data interface{}) *ValidationResult {
	return sv.validate("recompute", data)
}

func (sv *SchemaValidator) validate(name string, data interface{}) *ValidationResult {
	schema, ok := sv.schemas[name]
	if !ok {
		return &ValidationResult{Valid: false, Errors: []string{fmt.Sprintf("unknown schema: %s", name)}}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return &ValidationResult{Valid: false, Errors: []string{err.Error()}}
	}

	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	vr := &ValidationResult{Valid: false}
	for _, e := range result.Errors() {
		vr.Errors = append(vr.Errors, e.String())
	}
	return vr
}
