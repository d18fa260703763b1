package clp

import (
	"testing"
	"time"
)

func TestConstResolverTimeAndUnitConstants(t *testing.T) {
	now := time.Unix(1700000000, 0)
	r := NewConstResolver(now, 1)

	tests := []struct {
		name    string
		wantInt int64
	}{
		{"NOW", 1700000000},
		{"MINUTE", 60},
		{"HOUR", 3600},
		{"DAY", 86400},
		{"KiB", 1024},
		{"MiB", 1048576},
		{"GiB", 1073741824},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := r.Resolve(tt.name)
			if !ok {
				t.Fatalf("Resolve(%q) not found", tt.name)
			}
			if v.Kind != VInt || v.Int != tt.wantInt {
				t.Errorf("Resolve(%q) = %v, want int %d", tt.name, v, tt.wantInt)
			}
		})
	}
}

func TestConstResolverPi(t *testing.T) {
	r := NewConstResolver(time.Now(), 1)
	v, ok := r.Resolve("PI")
	if !ok || v.Kind != VFloat {
		t.Fatalf("Resolve(\"PI\") = %v, %v, want a float", v, ok)
	}
	if v.Flt < 3.14 || v.Flt > 3.15 {
		t.Errorf("PI = %v, want ~3.14159", v.Flt)
	}
}

func TestConstResolverUnknownNameNotFound(t *testing.T) {
	r := NewConstResolver(time.Now(), 1)
	if _, ok := r.Resolve("NOT_A_CONSTANT"); ok {
		t.Error("Resolve() found a value for an unreserved name")
	}
}

func TestConstResolverRandomDigitsRespectLengthAndAlphabet(t *testing.T) {
	r := NewConstResolver(time.Now(), 42)
	v, ok := r.Resolve("5RND10")
	if !ok || v.Kind != VStr {
		t.Fatalf("Resolve(\"5RND10\") = %v, %v, want a 5-digit decimal string", v, ok)
	}
	if len(v.Str) != 5 {
		t.Fatalf("len(5RND10) = %d, want 5", len(v.Str))
	}
	for _, c := range v.Str {
		if c < '0' || c > '9' {
			t.Errorf("5RND10 contained non-decimal byte %q", c)
		}
	}

	v2, ok := r.Resolve("3RND16")
	if !ok || len(v2.Str) != 3 {
		t.Fatalf("Resolve(\"3RND16\") = %v, %v, want a 3-digit hex string", v2, ok)
	}
	for _, c := range v2.Str {
		isHex := (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
		if !isHex {
			t.Errorf("3RND16 contained non-hex byte %q", c)
		}
	}
}

func TestConstResolverRandomScalarsVaryAcrossCalls(t *testing.T) {
	r := NewConstResolver(time.Now(), 7)
	a, _ := r.Resolve("RND8")
	b, _ := r.Resolve("RND8")
	if a.Int == b.Int {
		t.Error("two successive RND8 resolutions produced the same value (PRNG not advancing)")
	}
}

func TestConstResolverGMTimestampFields(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	r := NewConstResolver(now, 1)
	v, ok := r.Resolve("GMDATE")
	if !ok || string(v.Str) != "20240315" {
		t.Errorf("Resolve(\"GMDATE\") = %v, %v, want \"20240315\"", v, ok)
	}
	v2, ok := r.Resolve("GMYEAR")
	if !ok || string(v2.Str) != "2024" {
		t.Errorf("Resolve(\"GMYEAR\") = %v, %v, want \"2024\"", v2, ok)
	}
}
