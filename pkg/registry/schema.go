package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://asf-mission-data-tool.local/registry.schema.json"

const registrySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "dataset": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["versions"],
        "properties": {
          "versions": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["release_date", "file_url"],
              "properties": {
                "release_date": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
                "file_url": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
                "file_bronze": {"type": "array", "items": {"type": "string"}}
              }
            }
          }
        }
      }
    }
  }
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, strings.NewReader(registrySchema)); err != nil {
			compileErr = fmt.Errorf("registry schema load failed: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(schemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("registry schema compile failed: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// Validate checks the shape of the dataset section of reg.
func Validate(reg *Registry) error {
	s, err := schema()
	if err != nil {
		return err
	}
	if err := s.Validate(validationDocument(reg)); err != nil {
		return fmt.Errorf("registry schema validation failed: %w", err)
	}
	return nil
}

// validationDocument converts the typed registry to the generic JSON
// values the validator understands.
func validationDocument(reg *Registry) map[string]any {
	datasets := make(map[string]any, len(reg.Datasets))
	for name, ds := range reg.Datasets {
		if ds == nil {
			datasets[name] = map[string]any{}
			continue
		}
		versions := make([]any, 0, len(ds.Versions))
		for _, rel := range ds.Versions {
			if rel == nil {
				versions = append(versions, nil)
				continue
			}
			v := map[string]any{
				"release_date": rel.ReleaseDate,
				"file_url":     stringsToAny(rel.FileURL),
			}
			if rel.FileBronze != nil {
				v["file_bronze"] = stringsToAny(rel.FileBronze)
			}
			versions = append(versions, v)
		}
		datasets[name] = map[string]any{"versions": versions}
	}
	return map[string]any{"dataset": datasets}
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
