// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

const testSchema = `
#Doc: {
	name: string & !=""
	count?: int & >=0
	items?: [...{id: string}]
}
`

func TestValidateYAML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "valid", data: "name: demo\ncount: 2\nitems:\n  - id: a\n"},
		{name: "missing required field", data: "count: 1\n", wantErr: "name"},
		{name: "wrong type", data: "name: demo\ncount: many\n", wantErr: "count"},
		{name: "constraint violated", data: "name: demo\ncount: -1\n", wantErr: "count"},
		{name: "unknown field", data: "name: demo\nextra: 1\n", wantErr: "extra"},
		{name: "nested path", data: "name: demo\nitems:\n  - id: 3\n", wantErr: "items[0].id"},
		{name: "bad yaml", data: "name: [unclosed\n", wantErr: "doc.yml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ValidateYAML([]byte(testSchema), []byte(tt.data), "#Doc", WithFilename("doc.yml"))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateYAML_DecodesUnifiedValue(t *testing.T) {
	t.Parallel()

	v, err := ValidateYAML([]byte(testSchema), []byte("name: demo\ncount: 3\n"), "#Doc")
	if err != nil {
		t.Fatalf("ValidateYAML() error: %v", err)
	}
	var m map[string]any
	if err := v.Decode(&m); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if m["name"] != "demo" {
		t.Errorf("decoded = %v", m)
	}
}

func TestValidateYAML_FileSize(t *testing.T) {
	t.Parallel()

	_, err := ValidateYAML([]byte(testSchema), []byte("name: demo\n"), "#Doc", WithMaxFileSize(4))
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestFormatError(t *testing.T) {
	t.Parallel()

	if FormatError(nil, "x.yml") != nil {
		t.Error("FormatError(nil) should be nil")
	}
	err := FormatError(errors.New("some error"), "x.yml")
	if err == nil || !strings.Contains(err.Error(), "x.yml") || !strings.Contains(err.Error(), "some error") {
		t.Errorf("FormatError() = %v", err)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{"steps"}, "steps"},
		{[]string{"steps", "0", "name"}, "steps[0].name"},
		{[]string{"spaces", "2"}, "spaces[2]"},
		{[]string{"env", "10", "x", "1"}, "env[10].x[1]"},
	}
	for _, tt := range tests {
		if got := formatPath(tt.in); got != tt.want {
			t.Errorf("formatPath(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
