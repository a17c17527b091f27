package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatError(t *testing.T) {
	tests := []struct {
		name     string
		opts     ErrorOptions
		contains []string
	}{
		{
			name: "basic error",
			opts: ErrorOptions{
				Level:   ErrorLevelError,
				Context: "entity set not found",
				Problem: "Cannot find entity set 'X'.",
			},
			contains: []string{"❌", "ENTITY SET NOT FOUND: Cannot find entity set 'X'."},
		},
		{
			name: "suggestions",
			opts: ErrorOptions{
				Problem:     "Cannot find entity set 'Custmers'.",
				Suggestions: []string{"Customers", "Customer_and_Suppliers_by_Cities"},
			},
			contains: []string{"Did you mean: Customers, Customer_and_Suppliers_by_Cities?"},
		},
		{
			name: "help commands",
			opts: ErrorOptions{
				Problem:      "bad",
				HelpCommands: []string{"Get help: odatakit --help"},
			},
			contains: []string{"   → Get help: odatakit --help"},
		},
		{
			name:     "warning",
			opts:     ErrorOptions{Level: ErrorLevelWarning, Problem: "careful"},
			contains: []string{"⚠️ careful"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.NoColor = true
			out := FormatError(tt.opts)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestEntitySetNotFoundError(t *testing.T) {
	out := EntitySetNotFoundError("Custmers", "northwind.xml", []string{"Customers"}, true)
	assert.Contains(t, out, "ENTITY SET NOT FOUND")
	assert.Contains(t, out, "Did you mean: Customers?")
	assert.Contains(t, out, "odatakit entitysets northwind.xml")
}

func TestConfigError(t *testing.T) {
	out := ConfigError("metadata.map[0]: url is required", true)
	assert.Contains(t, out, "CONFIGURATION ERROR: metadata.map[0]: url is required")
	assert.Contains(t, out, "odatakit config")
}

func TestWriteSuccess(t *testing.T) {
	var buf bytes.Buffer
	WriteSuccess(&buf, "3 files ok", true)
	assert.Equal(t, "✓ 3 files ok\n", buf.String())

	assert.Contains(t, Warning("stale cache", true), "stale cache")
}
