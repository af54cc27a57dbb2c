package studio

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const ideasSchemaJSON = `{
  "type": "object",
  "required": ["ideas"],
  "properties": {
    "ideas": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title", "concept"],
        "properties": {
          "title": {"type": "string", "minLength": 1},
          "concept": {"type": "string"},
          "bookType": {"type": "string"},
          "bookMode": {"type": "string"},
          "targetAge": {"type": "string"},
          "pageCount": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

const pageIdeasSchemaJSON = `{
  "type": "object",
  "required": ["pages"],
  "properties": {
    "pages": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["ideaText"],
        "properties": {
          "ideaText": {"type": "string"}
        }
      }
    }
  }
}`

func compileSchema(name, src string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		return nil, fmt.Errorf("failed to load %s schema: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s schema: %w", name, err)
	}
	return schema, nil
}
