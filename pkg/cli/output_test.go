package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONFormatter(t *testing.T) {
	formatter := NewFormatter(FormatJSON)

	var buf bytes.Buffer
	data := map[string]any{"file": "p.yaml", "valid": true}
	if err := formatter.FormatTo(&buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["valid"] != true {
		t.Errorf("valid = %v, want true", decoded["valid"])
	}
}

func TestTextFormatterIsDefault(t *testing.T) {
	formatter := NewFormatter("bogus")

	var buf bytes.Buffer
	if err := formatter.FormatTo(&buf, "hello"); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("output = %q, want it to contain hello", buf.String())
	}
}
