package validation

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaValidator validates inbound payloads at the service boundary. The
// negotiation core assumes validated records and never re-checks them, so
// everything crossing the HTTP or Kafka edge goes through here first.
type SchemaValidator struct {
	schemas map[string]*gojsonschema.Schema
}

// Schemas are embedded: the payload shapes are part of the engine's
// contract with the surrounding chatbot, not deployment configuration.
var schemaSources = map[string]string{
	"offer":          offerSchema,
	"meso-selection": mesoSelectionSchema,
	"weight-table":   weightTableSchema,
}

const offerSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"deal_id": {"type": "string", "format": "uuid"},
		"vendor_id": {"type": "string", "format": "uuid"},
		"total_price": {"type": ["number", "null"], "minimum": 0},
		"payment_terms": {
			"type": ["object", "null"],
			"properties": {
				"label": {"type": "string", "minLength": 1},
				"days": {"type": ["integer", "null"], "minimum": 1, "maximum": 120}
			},
			"required": ["label"]
		},
		"delivery_weeks": {"type": ["integer", "null"], "minimum": 0},
		"warranty_months": {"type": ["integer", "null"], "minimum": 0},
		"round": {"type": "integer", "minimum": 0}
	},
	"required": ["deal_id", "vendor_id", "round"]
}`

const mesoSelectionSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"vendor_id": {"type": "string", "format": "uuid"},
		"deal_id": {"type": "string", "format": "uuid"},
		"round": {"type": "integer", "minimum": 1},
		"selected_option_id": {"type": "string", "minLength": 1},
		"inferred_preferences": {
			"type": "object",
			"additionalProperties": {"type": "number", "minimum": 0, "maximum": 1}
		}
	},
	"required": ["vendor_id", "deal_id", "round", "selected_option_id", "inferred_preferences"]
}`

const weightTableSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"additionalProperties": {"type": "integer", "minimum": 0, "maximum": 100},
	"minProperties": 1
}`

func NewSchemaValidator() (*SchemaValidator, error) {
	sv := &SchemaValidator{
		schemas: make(map[string]*gojsonschema.Schema, len(schemaSources)),
	}

	for name, source := range schemaSources {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
		sv.schemas[name] = schema
	}

	return sv, nil
}

// ValidateOffer validates an extracted offer payload.
func (sv *SchemaValidator) ValidateOffer(data interface{}) *ValidationResult {
	return sv.validate("offer", data)
}

// ValidateMesoSelection validates a vendor-response interpreter payload.
func (sv *SchemaValidator) ValidateMesoSelection(data interface{}) *ValidationResult {
	return sv.validate("meso-selection", data)
}

// ValidateWeightTable validates a base weight mapping.
func (sv *SchemaValidator) ValidateWeightTable(data interface{}) *ValidationResult {
	return sv.validate("weight-table", data)
}

func (sv *SchemaValidator) validate(schemaName string, data interface{}) *ValidationResult {
	schema, exists := sv.schemas[schemaName]
	if !exists {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "schema",
				Message: fmt.Sprintf("Schema '%s' not found", schemaName),
				Code:    "SCHEMA_NOT_FOUND",
			}},
		}
	}

	var documentLoader gojsonschema.JSONLoader
	switch v := data.(type) {
	case string:
		documentLoader = gojsonschema.NewStringLoader(v)
	case []byte:
		documentLoader = gojsonschema.NewBytesLoader(v)
	default:
		jsonBytes, err := json.Marshal(data)
		if err != nil {
			return &ValidationResult{
				Valid: false,
				Errors: []ValidationError{{
					Field:   "data",
					Message: fmt.Sprintf("Failed to marshal data to JSON: %v", err),
					Code:    "JSON_MARSHAL_ERROR",
				}},
			}
		}
		documentLoader = gojsonschema.NewBytesLoader(jsonBytes)
	}

	result, err := schema.Validate(documentLoader)
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "validation",
				Message: fmt.Sprintf("Validation error: %v", err),
				Code:    "VALIDATION_ERROR",
			}},
		}
	}

	validationResult := &ValidationResult{
		Valid:  result.Valid(),
		Errors: make([]ValidationError, 0),
	}

	if !result.Valid() {
		for _, err := range result.Errors() {
			validationResult.Errors = append(validationResult.Errors, ValidationError{
				Field:   err.Field(),
				Message: err.Description(),
				Code:    "VALIDATION_ERROR",
				Value:   err.Value(),
				Context: err.Context().String(),
			})
		}
	}

	return validationResult
}

// ValidationResult represents the result of a validation operation
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Value   interface{} `json:"value,omitempty"`
	Context string      `json:"context,omitempty"`
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", ve.Field, ve.Message)
}

// ToAPIError converts validation errors to API error format
func (vr *ValidationResult) ToAPIError() map[string]interface{} {
	if vr.Valid {
		return nil
	}

	errorDetails := make(map[string]interface{})
	errorDetails["validationErrors"] = vr.Errors

	fieldErrors := make(map[string][]string)
	for _, err := range vr.Errors {
		if err.Field != "" {
			fieldErrors[err.Field] = append(fieldErrors[err.Field], err.Message)
		}
	}

	if len(fieldErrors) > 0 {
		errorDetails["fieldErrors"] = fieldErrors
	}

	return map[string]interface{}{
		"error": map[string]interface{}{
			"code":    "VALIDATION_ERROR",
			"message": "Request validation failed",
			"details": errorDetails,
		},
	}
}
