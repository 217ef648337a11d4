package toon

import (
	"strings"
	"testing"
)

func TestEncodeTabularArray(t *testing.T) {
	rows := []any{
		map[string]any{"id": float64(1), "name": "a"},
		map[string]any{"id": float64(2), "name": "b"},
	}
	out := Encode(rows)
	if !strings.Contains(out, "[2]{id,name}") {
		t.Errorf("expected a tabular header, got %q", out)
	}
	if !strings.Contains(out, "1,a") || !strings.Contains(out, "2,b") {
		t.Errorf("expected row data, got %q", out)
	}
}

func TestEncodeNonUniformArrayFallsBackToList(t *testing.T) {
	items := []any{
		map[string]any{"id": float64(1)},
		map[string]any{"different": "shape"},
	}
	out := Encode(items)
	if strings.Contains(out, "{id}") {
		t.Errorf("expected fallback rendering, not tabular, got %q", out)
	}
}

func TestEncodeObjectRendersKeySortedPairs(t *testing.T) {
	out := Encode(map[string]any{"b": "two", "a": "one"})
	if strings.Index(out, "a:") > strings.Index(out, "b:") {
		t.Errorf("expected keys in sorted order, got %q", out)
	}
}

func TestEncodeScalarTypes(t *testing.T) {
	if got := Encode("x"); strings.TrimSpace(got) != "x" {
		t.Errorf("Encode(string) = %q", got)
	}
	if got := Encode(true); strings.TrimSpace(got) != "true" {
		t.Errorf("Encode(bool) = %q", got)
	}
}
