package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/acekavi/docqa/internal/core/domain"
)

// defaultSchemaJSON is used when no schema file is configured. It matches
// the shape most callers extract from free-form documents.
const defaultSchemaJSON = `{
	"type": "object",
	"properties": {
		"title": {"type": "string"},
		"summary": {"type": "string"},
		"topics": {
			"type": "array",
			"items": {"type": "string"}
		}
	},
	"required": ["title", "summary"],
	"additionalProperties": false
}`

// Schema validates structured extraction output against a JSON Schema
// loaded from a YAML file.
type Schema struct {
	name   string
	schema *openapi3.Schema
}

// LoadFromFile reads a YAML schema description and compiles it. The schema
// name is the file name without its extension.
func LoadFromFile(path string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "parse schema yaml", err)
	}

	jsonRaw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert schema to json: %w", err)
	}

	compiled := openapi3.NewSchema()
	if err := compiled.UnmarshalJSON(jsonRaw); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "compile schema", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &Schema{name: name, schema: compiled}, nil
}

// Default returns the built-in extraction schema.
func Default() *Schema {
	compiled := openapi3.NewSchema()
	if err := compiled.UnmarshalJSON([]byte(defaultSchemaJSON)); err != nil {
		panic(fmt.Sprintf("built-in schema does not compile: %v", err))
	}
	return &Schema{name: "default", schema: compiled}
}

func (s *Schema) Name() string {
	return s.name
}

// Validate checks data against the schema and returns one message per
// violation. An empty slice means the data conforms.
func (s *Schema) Validate(data map[string]any) []string {
	err := s.schema.VisitJSON(data, openapi3.MultiErrors())
	if err == nil {
		return nil
	}

	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		messages := make([]string, 0, len(multi))
		for _, item := range multi {
			messages = append(messages, describeViolation(item))
		}
		return messages
	}
	return []string{describeViolation(err)}
}

// PromptDescription renders the schema as indented JSON for embedding in
// a generation prompt.
func (s *Schema) PromptDescription() string {
	raw, err := s.schema.MarshalJSON()
	if err != nil {
		return ""
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw)
	}
	return pretty.String()
}

func describeViolation(err error) string {
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		pointer := strings.Join(schemaErr.JSONPointer(), "/")
		if pointer == "" {
			return schemaErr.Reason
		}
		return fmt.Sprintf("%s: %s", pointer, schemaErr.Reason)
	}
	return err.Error()
}
