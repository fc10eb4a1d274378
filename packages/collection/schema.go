package collection

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema is the subset of the Postman v2.1 schema that runners
// depend on: info, and items with a method, a url and a test event.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["info", "item"],
  "properties": {
    "info": {
      "type": "object",
      "required": ["name", "schema"],
      "properties": {
        "name": {"type": "string"},
        "schema": {"type": "string", "format": "uri"}
      }
    },
    "item": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "request"],
        "properties": {
          "id": {"type": "string"},
          "name": {"type": "string"},
          "request": {
            "type": "object",
            "required": ["method", "url"],
            "properties": {
              "method": {"type": "string", "minLength": 1},
              "url": {"type": "string"}
            }
          },
          "event": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["listen", "script"],
              "properties": {
                "listen": {"enum": ["test", "prerequest"]},
                "script": {
                  "type": "object",
                  "required": ["exec"],
                  "properties": {
                    "exec": {"type": "array", "items": {"type": "string"}}
                  }
                }
              }
            }
          },
          "assertions": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["subject", "operator"],
              "properties": {
                "subject": {"type": "string"},
                "operator": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// Validate checks the document against the structure runners rely on.
func (c *Collection) Validate() error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling collection: %w", err)
	}
	return ValidateDocument(data)
}

// ValidateDocument validates raw collection JSON.
func ValidateDocument(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var errors []string
	for _, desc := range result.Errors() {
		errors = append(errors, desc.String())
	}
	return fmt.Errorf("invalid collection: %s", strings.Join(errors, "; "))
}
