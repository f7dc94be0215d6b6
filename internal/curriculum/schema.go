package curriculum

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["modules"],
  "additionalProperties": false,
  "properties": {
    "modules": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "lessons"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "lessons": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["name", "content", "quiz", "challenge"],
              "additionalProperties": false,
              "properties": {
                "name": {"type": "string", "minLength": 1},
                "content": {"type": "string"},
                "challenge": {"type": "string"},
                "quiz": {
                  "type": "object",
                  "required": ["question", "options", "answer"],
                  "additionalProperties": false,
                  "properties": {
                    "question": {"type": "string", "minLength": 1},
                    "options": {
                      "type": "array",
                      "minItems": 1,
                      "uniqueItems": true,
                      "items": {"type": "string", "minLength": 1}
                    },
                    "answer": {"type": "string", "minLength": 1}
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

// checkSchema validates a decoded YAML tree against the curriculum schema.
func checkSchema(tree any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(tree))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return fmt.Errorf("curriculum does not match schema: %s", strings.Join(problems, "; "))
}
