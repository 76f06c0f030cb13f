package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

var selectorSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"kind", "value"},
	"properties": map[string]interface{}{
		"kind": map[string]interface{}{
			"type": "string",
			"enum": []string{"id", "class", "tag", "button-text", "css"},
		},
		"value": map[string]interface{}{"type": "string", "minLength": 1},
	},
	"additionalProperties": false,
}

func profileSchema() map[string]interface{} {
	selectors := map[string]interface{}{}
	for _, name := range []string{
		"heading", "title_input", "description_input", "priority_select", "submit",
		"delete_all", "item", "item_title", "item_description", "item_status", "body",
	} {
		selectors[name] = selectorSchema
	}
	str := map[string]interface{}{"type": "string"}
	nonEmpty := map[string]interface{}{"type": "string", "minLength": 1}

	return map[string]interface{}{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"title":    "Workflow Target Profile",
		"type":     "object",
		"required": []string{"name", "app_name", "noun"},
		"properties": map[string]interface{}{
			"name":         map[string]interface{}{"type": "string", "pattern": "^[a-z0-9][a-z0-9-]*$"},
			"app_name":     nonEmpty,
			"noun":         map[string]interface{}{"type": "string", "pattern": "^[a-z][a-z0-9-]*$"},
			"default_url":  map[string]interface{}{"type": "string", "pattern": "^https?://"},
			"health_path":  map[string]interface{}{"type": "string", "pattern": "^/"},
			"health_token": nonEmpty,
			"selectors": map[string]interface{}{
				"type":                 "object",
				"properties":           selectors,
				"additionalProperties": false,
			},
			"labels": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"complete": str, "in_progress": str, "delete": str,
				},
				"additionalProperties": false,
			},
			"classes": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"priority_prefix": str, "status_completed": str, "status_in_progress": str,
				},
				"additionalProperties": false,
			},
		},
		"additionalProperties": false,
	}
}

// ValidationError lists the schema violations of a profile document
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid profile: " + strings.Join(e.Problems, "; ")
}

// LoadFile reads a YAML profile from path
func LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return p, nil
}

// Parse validates a YAML profile document against the profile schema and
// decodes it. Fields the document omits are derived from its noun.
func Parse(data []byte) (*Profile, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, &ValidationError{Problems: []string{"document is empty"}}
	}

	docJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	schemaJSON, err := json.Marshal(profileSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(docJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		verr := &ValidationError{}
		for _, e := range result.Errors() {
			verr.Problems = append(verr.Problems, e.String())
		}
		return nil, verr
	}

	noun, _ := raw["noun"].(string)
	p := ForNoun(noun)
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.DefaultURL == "" {
		p.DefaultURL = "http://localhost:3000"
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Resolve returns the profile from file when set, otherwise the built-in name
func Resolve(name, file string) (*Profile, error) {
	if file != "" {
		return LoadFile(file)
	}
	return Lookup(name)
}
