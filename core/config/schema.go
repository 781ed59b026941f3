package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

const schemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"root": {"type": "string"},
		"directive": {"type": "string", "pattern": "^[A-Za-z_$][A-Za-z0-9_$.]*$"},
		"log_level": {"enum": ["debug", "info", "notice", "warn", "error", "silent"]},
		"namespaces": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		},
		"targets": {
			"type": "array",
			"items": {
				"type": "object",
				"additionalProperties": false,
				"properties": {
					"entry": {"type": "string", "minLength": 1},
					"js": {"type": "string"},
					"css": {"type": "string"},
					"img": {"type": "string"},
					"jsfiles": {"type": "string"},
					"copy_images": {"type": "boolean"}
				},
				"required": ["entry"]
			}
		},
		"watch": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"ignore_patterns": {"type": "array", "items": {"type": "string"}},
				"extensions": {"type": "array", "items": {"type": "string"}},
				"debounce_ms": {"type": "integer", "minimum": 0},
				"max_wait_ms": {"type": "integer", "minimum": 0}
			}
		},
		"serve": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"addr": {"type": "string"}
			}
		}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

// validateSchema checks the raw YAML document against schemaJSON.
func validateSchema(data []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if doc == nil {
		// Empty file.
		return nil
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return &ValidationError{Problems: problems}
}

// FormatValidationErrors renders one problem per line.
func FormatValidationErrors(err error) string {
	if err == nil {
		return ""
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}
	return strings.Join(verr.Problems, "\n")
}
