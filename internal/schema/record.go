package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Record is one customer feature row. Values are held in canonical text form
// in schema order: categorical values in their declared spelling, numbers in
// plain decimal, binary fields as 1 or 0.
type Record struct {
	schema *Schema
	values []string
}

type FieldError struct {
	Field  string
	Reason string
}

type ValidationError struct {
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.Field + ": " + p.Reason
	}
	return "invalid feature row: " + strings.Join(parts, "; ")
}

// Reasons maps each failing field to its message.
func (e *ValidationError) Reasons() map[string]string {
	out := make(map[string]string, len(e.Problems))
	for _, p := range e.Problems {
		out[p.Field] = p.Reason
	}
	return out
}

// NewRecord validates input against the schema and builds a record. Every
// invalid or missing field is reported in a single *ValidationError. Keys
// not in the schema (the target included) are ignored.
func (s *Schema) NewRecord(input map[string]string) (Record, error) {
	values := make([]string, len(s.Fields))
	var problems []FieldError
	for i, f := range s.Fields {
		raw, ok := input[f.Name]
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			problems = append(problems, FieldError{Field: f.Name, Reason: "is required"})
			continue
		}
		v, err := f.canonical(raw)
		if err != nil {
			problems = append(problems, FieldError{Field: f.Name, Reason: err.Error()})
			continue
		}
		values[i] = v
	}
	if len(problems) > 0 {
		return Record{}, &ValidationError{Problems: problems}
	}
	return Record{schema: s, values: values}, nil
}

func (f Field) canonical(raw string) (string, error) {
	switch f.Kind {
	case KindCategorical:
		folded := cases.Fold().String(raw)
		for _, v := range f.Values {
			if cases.Fold().String(v) == folded {
				return v, nil
			}
		}
		return "", fmt.Errorf("must be one of %s", strings.Join(f.Values, ", "))
	case KindOrdinal:
		n, err := parseInteger(raw)
		if err != nil {
			return "", err
		}
		s := strconv.FormatInt(n, 10)
		for _, v := range f.Values {
			if v == s {
				return s, nil
			}
		}
		return "", fmt.Errorf("must be one of %s", strings.Join(f.Values, ", "))
	case KindInteger:
		n, err := parseInteger(raw)
		if err != nil {
			return "", err
		}
		if err := f.checkRange(float64(n)); err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	case KindFloat:
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
			return "", fmt.Errorf("must be a number")
		}
		if err := f.checkRange(x); err != nil {
			return "", err
		}
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case KindBinary:
		if raw == "1" || raw == "0" {
			return raw, nil
		}
		n, err := EncodeYesNo(raw)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(n), nil
	}
	return "", fmt.Errorf("unsupported kind %q", f.Kind)
}

func (f Field) checkRange(x float64) error {
	if f.Min != nil && x < *f.Min {
		return fmt.Errorf("must be at least %s", formatBound(*f.Min))
	}
	if f.Max != nil && x > *f.Max {
		return fmt.Errorf("must be at most %s", formatBound(*f.Max))
	}
	return nil
}

func formatBound(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

// parseInteger accepts "7" and integral decimals such as "7.0".
func parseInteger(raw string) (int64, error) {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	x, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
		return 0, fmt.Errorf("must be a whole number")
	}
	return int64(x), nil
}

// EncodeYesNo maps Yes to 1 and No to 0, ignoring case.
func EncodeYesNo(s string) (int, error) {
	switch cases.Fold().String(strings.TrimSpace(s)) {
	case cases.Fold().String(Yes):
		return 1, nil
	case cases.Fold().String(No):
		return 0, nil
	}
	return 0, fmt.Errorf("must be Yes or No")
}

func (r Record) Schema() *Schema { return r.schema }

func (r Record) IsZero() bool { return r.schema == nil }

// Get returns the canonical value of a field, or "" for unknown names.
func (r Record) Get(name string) string {
	if r.schema == nil {
		return ""
	}
	i, ok := r.schema.index[name]
	if !ok {
		return ""
	}
	return r.values[i]
}

func (r Record) Float(name string) (float64, error) {
	if r.schema == nil {
		return 0, fmt.Errorf("empty record")
	}
	i, ok := r.schema.index[name]
	if !ok {
		return 0, fmt.Errorf("unknown field %s", name)
	}
	x, err := strconv.ParseFloat(r.values[i], 64)
	if err != nil {
		return 0, fmt.Errorf("field %s is not numeric: %q", name, r.values[i])
	}
	return x, nil
}

// Values returns a copy of the canonical values in schema order.
func (r Record) Values() []string {
	out := make([]string, len(r.values))
	copy(out, r.values)
	return out
}

func (r Record) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	if r.schema == nil {
		return out
	}
	for i, f := range r.schema.Fields {
		out[f.Name] = r.values[i]
	}
	return out
}
