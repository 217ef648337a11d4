// Package toon implements a minimal TOON-style (Token-Oriented Object
// Notation) encoder: a compact, indentation-based text form for JSON-like
// data that is cheaper to tokenize than the equivalent JSON, used to shrink
// oversized JSON-shaped message bodies before they're sent to a model.
//
// No TOON implementation exists anywhere in the reference corpus this
// package was grounded on, so this is a from-scratch minimal encoder rather
// than an adaptation of an existing one (see the grounding ledger).
package toon

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Encode renders value in TOON form. Uniform arrays of flat objects become a
// tabular block (field names once, then one row per element); everything
// else falls back to an indented key: value tree. Encode never errors —
// values it doesn't recognize are rendered via fmt.Sprintf("%v", ...).
func Encode(value any) string {
	var sb strings.Builder
	encodeValue(&sb, value, 0)
	return sb.String()
}

func encodeValue(sb *strings.Builder, value any, indent int) {
	switch v := value.(type) {
	case map[string]any:
		encodeObject(sb, v, indent)
	case []any:
		if rows, fields, ok := tabularRows(v); ok {
			encodeTable(sb, fields, rows, indent)
			return
		}
		for _, item := range v {
			sb.WriteString(pad(indent))
			sb.WriteString("- ")
			encodeInline(sb, item, indent+1)
			sb.WriteByte('\n')
		}
	default:
		sb.WriteString(pad(indent))
		sb.WriteString(scalar(value))
		sb.WriteByte('\n')
	}
}

func encodeObject(sb *strings.Builder, obj map[string]any, indent int) {
	keys := sortedKeys(obj)
	for _, k := range keys {
		v := obj[k]
		switch v.(type) {
		case map[string]any, []any:
			sb.WriteString(pad(indent))
			sb.WriteString(k)
			sb.WriteString(":\n")
			encodeValue(sb, v, indent+1)
		default:
			sb.WriteString(pad(indent))
			sb.WriteString(k)
			sb.WriteString(": ")
			sb.WriteString(scalar(v))
			sb.WriteByte('\n')
		}
	}
}

func encodeInline(sb *strings.Builder, value any, indent int) {
	switch v := value.(type) {
	case map[string]any:
		keys := sortedKeys(v)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+scalar(v[k]))
		}
		sb.WriteString(strings.Join(parts, ", "))
	default:
		sb.WriteString(scalar(value))
	}
}

// tabularRows detects an array of flat (no nested map/slice values) objects
// that all share the same field set, which can be rendered as a table.
func tabularRows(items []any) ([]map[string]any, []string, bool) {
	if len(items) == 0 {
		return nil, nil, false
	}
	rows := make([]map[string]any, 0, len(items))
	var fields []string
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, nil, false
		}
		for _, v := range obj {
			switch v.(type) {
			case map[string]any, []any:
				return nil, nil, false
			}
		}
		if i == 0 {
			fields = sortedKeys(obj)
		} else if !sameFields(fields, obj) {
			return nil, nil, false
		}
		rows = append(rows, obj)
	}
	return rows, fields, true
}

func sameFields(fields []string, obj map[string]any) bool {
	if len(obj) != len(fields) {
		return false
	}
	for _, f := range fields {
		if _, ok := obj[f]; !ok {
			return false
		}
	}
	return true
}

func encodeTable(sb *strings.Builder, fields []string, rows []map[string]any, indent int) {
	sb.WriteString(pad(indent))
	sb.WriteString(fmt.Sprintf("[%d]{%s}:\n", len(rows), strings.Join(fields, ",")))
	for _, row := range rows {
		sb.WriteString(pad(indent + 1))
		vals := make([]string, len(fields))
		for i, f := range fields {
			vals[i] = scalar(row[f])
		}
		sb.WriteString(strings.Join(vals, ","))
		sb.WriteByte('\n')
	}
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func pad(indent int) string {
	return strings.Repeat("  ", indent)
}
