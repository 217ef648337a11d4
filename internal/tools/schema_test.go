package tools

import "testing"

func TestValidateArgumentsAcceptsEmptySchema(t *testing.T) {
	if err := ValidateArguments(nil, map[string]any{"anything": 1}); err != nil {
		t.Errorf("expected nil schema to accept anything, got %v", err)
	}
}

func TestValidateArgumentsEnforcesRequired(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"file_path": map[string]any{"type": "string"}},
		"required":   []any{"file_path"},
	}
	if err := ValidateArguments(schema, map[string]any{}); err == nil {
		t.Error("expected validation error for missing required field")
	}
	if err := ValidateArguments(schema, map[string]any{"file_path": "a.go"}); err != nil {
		t.Errorf("expected valid arguments to pass, got %v", err)
	}
}

func TestValidateArgumentsRejectsWrongType(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"count": map[string]any{"type": "integer"}},
	}
	if err := ValidateArguments(schema, map[string]any{"count": "not a number"}); err == nil {
		t.Error("expected validation error for wrong type")
	}
}
