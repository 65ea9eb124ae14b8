package model

import (
	"math"
	"testing"
)

func TestScalar_String(t *testing.T) {
	tests := []struct {
		in   Scalar
		want string
	}{
		{0, "0"},
		{1.5, "1.5"},
		{-0.25, "-0.25"},
		{1718000000.123, "1718000000.123"},
		{0.1, "0.1"},
	}

	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("Scalar(%v).String() = %q, want %q", float64(tt.in), got, tt.want)
		}
	}
}

func TestVector_String(t *testing.T) {
	if got := (Vector{1, 2.5, -3}).String(); got != "[1, 2.5, -3]" {
		t.Errorf("unexpected vector format: %q", got)
	}
	if got := (Vector{}).String(); got != "[]" {
		t.Errorf("unexpected empty vector format: %q", got)
	}
}

func TestVector_Clone(t *testing.T) {
	original := Vector{1, 2, 3}
	clone := original.Clone()
	clone[0] = 42

	if original[0] != 1 {
		t.Error("modifying clone should not affect original")
	}
	if Vector(nil).Clone() != nil {
		t.Error("clone of nil vector should be nil")
	}
}

func TestParseValue_RoundTrip(t *testing.T) {
	values := []Value{
		Scalar(0),
		Scalar(math.Pi),
		Scalar(-1e-9),
		Scalar(123456789.000001),
		Vector{},
		Vector{0.1, 0.2, 0.30000000000000004},
		Vector{-1.5, 1e21},
	}

	for _, v := range values {
		line := FormatValue(v)
		parsed, err := ParseValue(line)
		if err != nil {
			t.Fatalf("ParseValue(%q) failed: %v", line, err)
		}
		if FormatValue(parsed) != line {
			t.Errorf("round trip mismatch: %q -> %q", line, FormatValue(parsed))
		}

		switch want := v.(type) {
		case Scalar:
			got, ok := parsed.(Scalar)
			if !ok || got != want {
				t.Errorf("expected scalar %v, got %#v", want, parsed)
			}
		case Vector:
			got, ok := parsed.(Vector)
			if !ok || len(got) != len(want) {
				t.Fatalf("expected vector %v, got %#v", want, parsed)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("element %d: expected %v, got %v", i, want[i], got[i])
				}
			}
		}
	}
}

func TestParseValue_Invalid(t *testing.T) {
	for _, line := range []string{"", "abc", "[1, 2", "[1, x]"} {
		if _, err := ParseValue(line); err == nil {
			t.Errorf("expected error for %q", line)
		}
	}
}
