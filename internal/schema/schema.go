// Package schema validates engine results against JSON schemas before they
// are persisted or handed to a reviewer.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/common"
	"github.com/joseph-ayodele/medscan/internal/extract"
)

const isoDatePattern = `^\d{4}-\d{2}-\d{2}$`

// LabResultSchema returns the JSON schema (draft 2020-12 subset) of a LabResult.
func LabResultSchema() map[string]any {
	candidate := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"fieldKey":       map[string]any{"type": "string", "enum": constants.FieldKeysAsStringSlice()},
			"displayName":    map[string]any{"type": "string", "minLength": 1},
			"value":          map[string]any{"type": "number"},
			"unit":           map[string]any{"type": "string", "minLength": 1},
			"sourceLine":     map[string]any{"type": "string", "minLength": 1},
			"lineIndex":      map[string]any{"type": "integer", "minimum": 0},
			"confidenceTier": map[string]any{"type": "string", "enum": []string{string(constants.TierHigh), string(constants.TierMedium)}},
		},
		"required": []string{"fieldKey", "displayName", "value", "sourceLine", "lineIndex", "confidenceTier"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"documentId":        map[string]any{"type": "string", "minLength": 36, "maxLength": 36},
			"kind":              map[string]any{"const": string(constants.KindLab)},
			"detectedDate":      map[string]any{"type": "string", "pattern": isoDatePattern},
			"requiresDateEntry": map[string]any{"type": "boolean"},
			"candidates":        map[string]any{"type": "array", "items": candidate},
			"confidence":        tierProp(),
			"rawText":           map[string]any{"type": "string"},
		},
		"required": []string{"documentId", "kind", "requiresDateEntry", "candidates", "confidence", "rawText"},
	}
}

// MedicationResultSchema returns the JSON schema of a MedicationLabelResult.
func MedicationResultSchema() map[string]any {
	text := func() map[string]any { return map[string]any{"type": "string", "minLength": 1} }
	count := func() map[string]any { return map[string]any{"type": "integer", "minimum": 0} }
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"documentId":    map[string]any{"type": "string", "minLength": 36, "maxLength": 36},
			"kind":          map[string]any{"const": string(constants.KindMedication)},
			"displayName":   text(),
			"strength":      text(),
			"directions":    text(),
			"pharmacy":      text(),
			"pharmacyPhone": map[string]any{"type": "string", "pattern": `^\(\d{3}\) \d{3}-\d{4}$`},
			"rxNumber":      text(),
			"ndc":           text(),
			"quantity":      count(),
			"refills":       count(),
			"fillDate":      map[string]any{"type": "string", "pattern": isoDatePattern},
			"patientName":   text(),
			"prescriber":    text(),
			"rawOcrText":    map[string]any{"type": "string"},
			"confidence":    tierProp(),
		},
		"required": []string{"documentId", "kind", "rawOcrText", "confidence"},
	}
}

func tierProp() map[string]any {
	return map[string]any{"type": "string", "enum": constants.Tiers()}
}

// Validate validates "data" against "schemaMap".
func Validate(schemaMap map[string]any, data []byte) error {
	schema, err := compile(schemaMap)
	if err != nil {
		return err
	}
	return validateCompiled(schema, data)
}

func compile(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validateCompiled(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return common.NewAppError("SCHEMA_MISMATCH", "json does not match schema", fmt.Errorf("%w: %v", common.ErrValidation, err))
	}
	return nil
}

var (
	compileOnce                 sync.Once
	labSchema, medicationSchema *jsonschema.Schema
	compileErr                  error
)

func compiled() (*jsonschema.Schema, *jsonschema.Schema, error) {
	compileOnce.Do(func() {
		labSchema, compileErr = compile(LabResultSchema())
		if compileErr != nil {
			return
		}
		medicationSchema, compileErr = compile(MedicationResultSchema())
	})
	return labSchema, medicationSchema, compileErr
}

// ValidateResult encodes an engine result and checks it against the schema
// for its kind. It accepts extract.Result, LabResult and MedicationLabelResult
// (by value or pointer).
func ValidateResult(result any) error {
	lab, med, err := compiled()
	if err != nil {
		return err
	}

	var target *jsonschema.Schema
	var payload any
	switch r := result.(type) {
	case extract.Result:
		return ValidateResult(r.Payload())
	case *extract.Result:
		return ValidateResult(r.Payload())
	case extract.LabResult, *extract.LabResult:
		target, payload = lab, r
	case extract.MedicationLabelResult, *extract.MedicationLabelResult:
		target, payload = med, r
	default:
		return common.NewAppError("SCHEMA_UNSUPPORTED", fmt.Sprintf("no schema for %T", result), common.ErrUnsupported)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return validateCompiled(target, data)
}
