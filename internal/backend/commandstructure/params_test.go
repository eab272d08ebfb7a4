package commandstructure

import (
	"testing"
)

func TestGetStringParam(t *testing.T) {
	params := map[string]any{
		"mode":  " nearest ",
		"width": 123,
	}

	tests := []struct {
		key  string
		want string
	}{
		{"mode", "nearest"},
		{"width", "default"},
		{"missing", "default"},
	}
	for _, tt := range tests {
		if got := GetStringParam(params, tt.key, "default"); got != tt.want {
			t.Errorf("GetStringParam(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestGetIntParam(t *testing.T) {
	params := map[string]any{
		"int":     123,
		"int64":   int64(456),
		"float":   float64(789),
		"numeric": "256",
		"padded":  " 64 ",
		"text":    "not-an-int",
	}

	tests := []struct {
		key  string
		want int
	}{
		{"int", 123},
		{"int64", 456},
		{"float", 789},
		{"numeric", 256},
		{"padded", 64},
		{"text", 999},
		{"missing", 999},
	}
	for _, tt := range tests {
		if got := GetIntParam(params, tt.key, 999); got != tt.want {
			t.Errorf("GetIntParam(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}

func TestHasAnyParam(t *testing.T) {
	params := map[string]any{"height": 64}

	if !HasAnyParam(params, "width", "height") {
		t.Error("Expected height to be found")
	}
	if HasAnyParam(params, "width") {
		t.Error("Expected width to be absent")
	}
	if HasAnyParam(nil, "width") {
		t.Error("Expected nil params to have no keys")
	}
}
