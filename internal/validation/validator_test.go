// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package validation

import (
	"strings"
	"testing"
)

type lineQuery struct {
	LineID string `query:"lineID" validate:"required,entityid"`
	Limit  int    `query:"limit" validate:"min=0,max=1000"`
}

type feedSettings struct {
	Endpoint string  `koanf:"endpoint" validate:"required,wsurl"`
	Jitter   float64 `koanf:"jitter" validate:"gte=0,lte=1"`
	Format   string  `json:"format" validate:"oneof=json console"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct_LineQuery(t *testing.T) {
	tests := []struct {
		name    string
		input   lineQuery
		wantTag string
	}{
		{"valid", lineQuery{LineID: "line-7", Limit: 60}, ""},
		{"numeric id", lineQuery{LineID: "12"}, ""},
		{"missing id", lineQuery{Limit: 1}, "required"},
		{"bad characters", lineQuery{LineID: "a/b"}, "entityid"},
		{"too long", lineQuery{LineID: strings.Repeat("x", 65)}, "entityid"},
		{"limit too large", lineQuery{LineID: "1", Limit: 1001}, "max"},
		{"negative limit", lineQuery{LineID: "1", Limit: -1}, "min"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.input)
			if tt.wantTag == "" {
				if verr != nil {
					t.Fatalf("unexpected error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("expected a validation error")
			}
			if got := verr.Errors()[0].Tag(); got != tt.wantTag {
				t.Errorf("tag = %q, want %q", got, tt.wantTag)
			}
		})
	}
}

func TestValidateStruct_FieldNames(t *testing.T) {
	verr := ValidateStruct(&feedSettings{Endpoint: "http://x", Jitter: 2, Format: "xml"})
	if verr == nil {
		t.Fatal("expected errors")
	}

	fields := make(map[string]string)
	for _, e := range verr.Errors() {
		fields[e.Field()] = e.Error()
	}
	for _, name := range []string{"endpoint", "jitter", "format"} {
		if _, ok := fields[name]; !ok {
			t.Errorf("missing error for %q in %v", name, fields)
		}
	}
	if msg := fields["format"]; msg != "format must be one of: json console" {
		t.Errorf("format message = %q", msg)
	}
}

func TestToAPIError(t *testing.T) {
	single := ValidateStruct(&lineQuery{LineID: "1", Limit: 5000}).ToAPIError()
	if single.Code != "VALIDATION_ERROR" || single.Details["field"] != "limit" {
		t.Errorf("single = %+v", single)
	}
	if single.Message != "limit must be at most 1000" {
		t.Errorf("message = %q", single.Message)
	}

	multi := ValidateStruct(&lineQuery{LineID: "", Limit: -5}).ToAPIError()
	fields, ok := multi.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Fatalf("multi details = %+v", multi.Details)
	}
	if !strings.Contains(multi.Message, "; ") {
		t.Errorf("multi message = %q", multi.Message)
	}

	empty := (&RequestValidationError{}).ToAPIError()
	if empty.Message != "Validation failed" {
		t.Errorf("empty message = %q", empty.Message)
	}
}

func TestIsWebSocketURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ws://localhost:8080", true},
		{"wss://feed.example.com/stream", true},
		{"http://localhost", false},
		{"ws://", false},
		{"not a url", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsWebSocketURL(tt.in); got != tt.want {
			t.Errorf("IsWebSocketURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsEntityID(t *testing.T) {
	for _, ok := range []string{"1", "line_A", "plant:3.line-2"} {
		if !IsEntityID(ok) {
			t.Errorf("IsEntityID(%q) = false", ok)
		}
	}
	for _, bad := range []string{"", "a b", "x/y", "?"} {
		if IsEntityID(bad) {
			t.Errorf("IsEntityID(%q) = true", bad)
		}
	}
}
