// Package validation checks the persisted collection snapshot against a
// JSON schema before the offline-first restore path trusts it. A
// corrupt or hand-edited snapshot fails closed instead of producing a
// half-formed tree.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	ErrSnapshotInvalid    = errors.New("validation: snapshot invalid")
	ErrSnapshotValidation = errors.New("validation: snapshot validation failed")
)

// ValidationIssue captures a single validation failure.
type ValidationIssue struct {
	Location string
	Message  string
}

// SnapshotValidationError surfaces validation issues with schema-aware context.
type SnapshotValidationError struct {
	Issues []ValidationIssue
	Cause  error
}

func (e *SnapshotValidationError) Error() string {
	if len(e.Issues) == 0 {
		if e.Cause != nil {
			return e.Cause.Error()
		}
		return ErrSnapshotValidation.Error()
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		location := strings.TrimSpace(issue.Location)
		if location == "" {
			location = "#"
		} else if !strings.HasPrefix(location, "#") {
			location = "#" + location
		}
		if issue.Message == "" {
			parts = append(parts, location)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", location, issue.Message))
	}
	return strings.Join(parts, "; ")
}

func (e *SnapshotValidationError) Unwrap() error {
	return ErrSnapshotValidation
}

// Issues extracts validation issues from an error.
func Issues(err error) []ValidationIssue {
	if err == nil {
		return nil
	}
	var snapshotErr *SnapshotValidationError
	if errors.As(err, &snapshotErr) && snapshotErr != nil {
		return snapshotErr.Issues
	}
	var validationErr *jsonschema.ValidationError
	if errors.As(err, &validationErr) && validationErr != nil {
		return collectValidationIssues(validationErr)
	}
	return []ValidationIssue{{Message: err.Error()}}
}

// metadataSchema is shared by every tree level. The lastSynced marker
// is local state and never serialized, so the schema does not admit it.
var metadataSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"lastModified": map[string]any{"type": "string", "format": "date-time"},
		"isDeleted":    map[string]any{"type": "boolean"},
	},
}

// snapshotSchema describes the serialized collection tree.
var snapshotSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []any{"version"},
	"properties": map[string]any{
		"version":  map[string]any{"type": "integer", "const": 1},
		"metadata": metadataSchema,
		"categories": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []any{"name"},
				"properties": map[string]any{
					"name":     map[string]any{"type": "string", "minLength": 1},
					"metadata": metadataSchema,
					"bundles": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":                 "object",
							"additionalProperties": false,
							"required":             []any{"name"},
							"properties": map[string]any{
								"name":     map[string]any{"type": "string", "minLength": 1},
								"metadata": metadataSchema,
								"bookmarks": map[string]any{
									"type": "array",
									"items": map[string]any{
										"type":                 "object",
										"additionalProperties": false,
										"required":             []any{"id", "title", "url"},
										"properties": map[string]any{
											"id":       map[string]any{"type": "string", "format": "uuid"},
											"title":    map[string]any{"type": "string", "minLength": 1},
											"url":      map[string]any{"type": "string", "minLength": 1},
											"tags":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
											"notes":    map[string]any{"type": "string"},
											"metadata": metadataSchema,
										},
									},
								},
							},
						},
					},
				},
			},
		},
	},
}

// ValidateSnapshot validates serialized snapshot bytes against the
// collection schema.
func ValidateSnapshot(data []byte) error {
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
	}

	compiled, err := compileSchema(snapshotSchema)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
	}
	if err := compiled.Validate(payload); err != nil {
		return &SnapshotValidationError{
			Issues: Issues(err),
			Cause:  err,
		}
	}
	return nil
}

func compileSchema(schema map[string]any) (*jsonschema.Schema, error) {
	encoded, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("snapshot.json", bytes.NewReader(encoded)); err != nil {
		return nil, err
	}
	return compiler.Compile("snapshot.json")
}

func collectValidationIssues(err *jsonschema.ValidationError) []ValidationIssue {
	if err == nil {
		return nil
	}
	issues := []ValidationIssue{}
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if node == nil {
			return
		}
		if len(node.Causes) == 0 {
			issues = append(issues, ValidationIssue{
				Location: strings.TrimSpace(node.InstanceLocation),
				Message:  strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(err)
	return issues
}
