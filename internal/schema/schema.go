// Package schema holds the customer feature record definition shared by the
// dataset publisher and the prediction form. The definition is a versioned
// YAML document embedded in the binary, so column order and value encodings
// cannot drift between the split files and an inference row.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

type Kind string

const (
	KindCategorical Kind = "categorical"
	KindOrdinal     Kind = "ordinal"
	KindInteger     Kind = "integer"
	KindFloat       Kind = "float"
	KindBinary      Kind = "binary"
)

// Binary fields are entered as Yes/No and stored as 1/0.
const (
	Yes = "Yes"
	No  = "No"
)

type Field struct {
	Name    string   `yaml:"name"`
	Label   string   `yaml:"label"`
	Kind    Kind     `yaml:"kind"`
	Values  []string `yaml:"values,omitempty"`
	Min     *float64 `yaml:"min,omitempty"`
	Max     *float64 `yaml:"max,omitempty"`
	Default string   `yaml:"default,omitempty"`
}

// Options returns the values a select input offers for the field.
func (f Field) Options() []string {
	if f.Kind == KindBinary {
		return []string{Yes, No}
	}
	return f.Values
}

// DefaultValue is the form default. Selects start on their first option.
func (f Field) DefaultValue() string {
	if f.Default != "" {
		return f.Default
	}
	if opts := f.Options(); len(opts) > 0 {
		return opts[0]
	}
	return ""
}

func (f Field) IsSelect() bool {
	return f.Kind == KindCategorical || f.Kind == KindOrdinal || f.Kind == KindBinary
}

type Schema struct {
	Version string  `yaml:"version"`
	Target  string  `yaml:"target"`
	Fields  []Field `yaml:"fields"`

	index map[string]int
}

//go:embed schema.yaml
var definition []byte

var (
	loadOnce sync.Once
	loaded   *Schema
	loadErr  error
)

// Load returns the embedded schema definition.
func Load() (*Schema, error) {
	loadOnce.Do(func() {
		loaded, loadErr = Parse(definition)
	})
	return loaded, loadErr
}

func MustLoad() *Schema {
	s, err := Load()
	if err != nil {
		panic(fmt.Sprintf("schema: embedded definition: %v", err))
	}
	return s
}

func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Schema) validate() error {
	if s.Version == "" {
		return errors.New("schema: version is required")
	}
	if s.Target == "" {
		return errors.New("schema: target is required")
	}
	if len(s.Fields) == 0 {
		return errors.New("schema: no fields defined")
	}
	s.index = make(map[string]int, len(s.Fields))
	for i, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema: field %d has no name", i)
		}
		if f.Name == s.Target {
			return fmt.Errorf("schema: target %s listed as a feature", f.Name)
		}
		if _, dup := s.index[f.Name]; dup {
			return fmt.Errorf("schema: duplicate field %s", f.Name)
		}
		switch f.Kind {
		case KindCategorical, KindOrdinal:
			if len(f.Values) == 0 {
				return fmt.Errorf("schema: %s field %s has no values", f.Kind, f.Name)
			}
		case KindInteger, KindFloat, KindBinary:
		default:
			return fmt.Errorf("schema: field %s has unknown kind %q", f.Name, f.Kind)
		}
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			return fmt.Errorf("schema: field %s has min > max", f.Name)
		}
		s.index[f.Name] = i
	}
	return nil
}

// Names returns the feature names in record order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Columns returns the feature names followed by the target.
func (s *Schema) Columns() []string {
	return append(s.Names(), s.Target)
}

func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// Defaults returns the form default for every field.
func (s *Schema) Defaults() map[string]string {
	out := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		out[f.Name] = f.DefaultValue()
	}
	return out
}
