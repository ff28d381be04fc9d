package util

import "testing"

func TestSanitizeEnvValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"strips double quotes", `"64"`, "64"},
		{"strips single quotes", `'debug'`, "debug"},
		{"trims whitespace", "  json  ", "json"},
		{"strips quotes and trims", `  " info "  `, "info"},
		{"empty string", "", ""},
		{"lone quote", `"`, `"`},
		{"mismatched quotes", `"value'`, `"value'`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeEnvValue(tc.input); got != tc.want {
				t.Errorf("SanitizeEnvValue(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
