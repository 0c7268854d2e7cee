package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema names for the record payloads carried by change events.
const (
	SchemaOrderNotification   = "orderNotification"
	SchemaAppointmentReminder = "appointmentReminder"
	SchemaAppointment         = "appointment"
)

// deviceToken is optional: an empty token yields a failed dispatch outcome,
// not a rejected payload.
var builtinSchemas = map[string]string{
	SchemaOrderNotification: `{
		"type": "object",
		"properties": {
			"id":          {"type": "string"},
			"title":       {"type": "string"},
			"description": {"type": "string"},
			"deviceToken": {"type": "string"}
		},
		"required": ["title", "description"]
	}`,
	SchemaAppointmentReminder: `{
		"type": "object",
		"properties": {
			"id":          {"type": "string"},
			"title":       {"type": "string"},
			"description": {"type": "string"},
			"deviceToken": {"type": "string"},
			"bookedDate":  {"type": "integer", "minimum": 0}
		},
		"required": ["bookedDate"]
	}`,
	SchemaAppointment: `{
		"type": "object",
		"properties": {
			"id":          {"type": "string"},
			"status":      {"type": ["integer", "string"], "pattern": "^-?[0-9]+$"},
			"deviceToken": {"type": "string"}
		},
		"required": ["status"]
	}`,
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator holds compiled JSON schemas for record payloads.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

func NewValidator() (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema, len(builtinSchemas))}
	for name, raw := range builtinSchemas {
		if err := v.Register(name, raw); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Register compiles schemaJSON under name, replacing any previous schema.
func (v *Validator) Register(name, schemaJSON string) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return fmt.Errorf("compile schema %s: %w", name, err)
	}
	v.schemas[name] = schema
	return nil
}

// Validate checks a raw JSON document against the named schema.
func (v *Validator) Validate(name string, document []byte) (*ValidationResult, error) {
	schema, ok := v.schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema: %s", name)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// Summary joins all error messages into one line.
func (vr *ValidationResult) Summary() string {
	return strings.Join(vr.GetErrorMessages(), "; ")
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
