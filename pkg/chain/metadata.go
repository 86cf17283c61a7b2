package chain

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// metadataSchemaSrc bounds metadata to depth MaxMetadataDepth and to plain
// JSON value types, turning the spec's informal "metadata depth <= 5,
// bounded" rule (§3) into an enforced validation, the way the teacher uses
// jsonschema/v5 to validate tool-call parameters in pkg/firewall/firewall.go.
const metadataSchemaSrc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": ["object", "null"],
  "additionalProperties": {"$ref": "#/$defs/depth4"},
  "$defs": {
    "depth0": {"type": ["string", "number", "boolean", "null"]},
    "depth1": {"anyOf": [{"$ref": "#/$defs/depth0"}, {"type": "array", "items": {"$ref": "#/$defs/depth0"}}, {"type": "object", "additionalProperties": {"$ref": "#/$defs/depth0"}}]},
    "depth2": {"anyOf": [{"$ref": "#/$defs/depth1"}, {"type": "array", "items": {"$ref": "#/$defs/depth1"}}, {"type": "object", "additionalProperties": {"$ref": "#/$defs/depth1"}}]},
    "depth3": {"anyOf": [{"$ref": "#/$defs/depth2"}, {"type": "array", "items": {"$ref": "#/$defs/depth2"}}, {"type": "object", "additionalProperties": {"$ref": "#/$defs/depth2"}}]},
    "depth4": {"anyOf": [{"$ref": "#/$defs/depth3"}, {"type": "array", "items": {"$ref": "#/$defs/depth3"}}, {"type": "object", "additionalProperties": {"$ref": "#/$defs/depth3"}}]}
  }
}`

const metadataSchemaURL = "https://memchain.local/schemas/metadata.schema.json"

var (
	metadataSchemaOnce sync.Once
	metadataSchema     *jsonschema.Schema
	metadataSchemaErr  error
)

func compiledMetadataSchema() (*jsonschema.Schema, error) {
	metadataSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(metadataSchemaURL, strings.NewReader(metadataSchemaSrc)); err != nil {
			metadataSchemaErr = fmt.Errorf("chain: load metadata schema: %w", err)
			return
		}
		schema, err := c.Compile(metadataSchemaURL)
		if err != nil {
			metadataSchemaErr = fmt.Errorf("chain: compile metadata schema: %w", err)
			return
		}
		metadataSchema = schema
	})
	return metadataSchema, metadataSchemaErr
}

// validateMetadataShape enforces the bounded-depth, plain-JSON-value
// invariant on metadata via the compiled JSON Schema above. A nil metadata
// map always passes.
func validateMetadataShape(metadata map[string]any) error {
	if metadata == nil {
		return nil
	}
	schema, err := compiledMetadataSchema()
	if err != nil {
		return err
	}

	// jsonschema/v5 validates against decoded JSON values (map[string]any,
	// []any, json.Number, ...); round-trip through encoding/json so any
	// non-JSON-representable Go value (e.g. a channel) surfaces as the same
	// ErrMetadataTooDeep-class failure rather than panicking the validator.
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMetadataTooDeep, err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("%w: %v", ErrMetadataTooDeep, err)
	}

	if err := schema.Validate(decoded); err != nil {
		return fmt.Errorf("%w: %v", ErrMetadataTooDeep, err)
	}
	return nil
}
