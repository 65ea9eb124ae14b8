// Package model defines the core data structures used throughout the data logger.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a single buffered record. It is either a Scalar or a Vector.
type Value interface {
	// String renders the value as it appears on one output line.
	String() string

	isValue()
}

// Scalar is a single numeric reading, e.g. one force axis or an elapsed time.
type Scalar float64

// Vector is an ordered set of readings captured together, e.g. joint positions.
type Vector []float64

func (Scalar) isValue() {}
func (Vector) isValue() {}

// String formats the scalar with the shortest decimal that parses back to the same float.
func (s Scalar) String() string {
	return formatFloat(float64(s))
}

// String formats the vector as "[a, b, c]".
func (v Vector) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(formatFloat(f))
	}
	b.WriteByte(']')
	return b.String()
}

// Clone returns an independent copy of the vector.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatValue renders a record as one text line body (without the newline).
func FormatValue(v Value) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// ParseValue is the inverse of FormatValue.
func ParseValue(line string) (Value, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("empty record")
	}

	if !strings.HasPrefix(line, "[") {
		f, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing scalar %q: %w", line, err)
		}
		return Scalar(f), nil
	}

	if !strings.HasSuffix(line, "]") {
		return nil, fmt.Errorf("unterminated vector %q", line)
	}

	body := strings.TrimSpace(line[1 : len(line)-1])
	if body == "" {
		return Vector{}, nil
	}

	parts := strings.Split(body, ",")
	vec := make(Vector, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing vector element %q: %w", p, err)
		}
		vec = append(vec, f)
	}
	return vec, nil
}
