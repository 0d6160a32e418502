package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("config.schema.json", schemaJSON)
})

// validateSchema checks a YAML document against the embedded schema. The
// document is converted to JSON first so numbers reach the validator with
// JSON types.
func validateSchema(data []byte) error {
	sch, err := compileSchema()
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode config yaml: %w", err)
	}
	if doc == nil {
		return nil
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config is not representable as json: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("config validation failed: %w: %w", ErrInvalidConfig, err)
	}
	return nil
}
