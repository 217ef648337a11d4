package tools

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateArguments checks args against a tool's input_schema (JSON Schema
// draft understood by santhosh-tekuri/jsonschema). A nil or empty schema is
// treated as "accept anything" since several tools (e.g. Bash) declare a
// permissive schema that isn't worth compiling per call.
func ValidateArguments(schemaDoc map[string]any, args map[string]any) error {
	if len(schemaDoc) == 0 {
		return nil
	}

	compiler := jsonschema.NewCompiler()
	schemaBytes, err := json.Marshal(schemaDoc)
	if err != nil {
		return fmt.Errorf("marshal input_schema: %w", err)
	}

	const resourceName = "tool-input-schema.json"
	if err := compiler.AddResource(resourceName, bytes.NewReader(schemaBytes)); err != nil {
		return fmt.Errorf("load input_schema: %w", err)
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return fmt.Errorf("compile input_schema: %w", err)
	}

	argsBytes, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal arguments: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(argsBytes, &decoded); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}

	if err := compiled.Validate(decoded); err != nil {
		return fmt.Errorf("arguments failed schema validation: %w", err)
	}
	return nil
}
