package util

import (
	"reflect"
	"testing"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"true", false, true},
		{"Yes", false, true},
		{"0", true, false},
		{"off", true, false},
		{"banana", true, true},
	}
	for _, tt := range tests {
		t.Setenv("DOCFORGE_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("DOCFORGE_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestParseInt64Env(t *testing.T) {
	t.Setenv("DOCFORGE_TEST_INT", "-1001234567890")
	if got := ParseInt64Env("DOCFORGE_TEST_INT", 0); got != -1001234567890 {
		t.Errorf("ParseInt64Env = %d, want -1001234567890", got)
	}
	t.Setenv("DOCFORGE_TEST_INT", "nope")
	if got := ParseInt64Env("DOCFORGE_TEST_INT", 5); got != 5 {
		t.Errorf("ParseInt64Env invalid = %d, want default 5", got)
	}
	t.Setenv("DOCFORGE_TEST_INT", "")
	if got := ParseInt64Env("DOCFORGE_TEST_INT", 7); got != 7 {
		t.Errorf("ParseInt64Env unset = %d, want default 7", got)
	}
}

func TestParseInt64List(t *testing.T) {
	tests := []struct {
		raw  string
		want []int64
	}{
		{"", nil},
		{"  ", nil},
		{"1", []int64{1}},
		{"1, 2,3", []int64{1, 2, 3}},
		{"1,x,3", []int64{1, 3}},
		{",,5,", []int64{5}},
	}
	for _, tt := range tests {
		if got := ParseInt64List(tt.raw); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseInt64List(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
