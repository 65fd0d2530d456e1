package classifier

import (
	"encoding/json"
	"fmt"
	"io"

	"tourismprj/internal/schema"
)

const FormatVersion = 1

const (
	KindLogistic         = "logistic"
	KindGradientBoosting = "gradient_boosting"
)

// Artifact is the serialized form of a trained purchase classifier. Inputs
// are bound by feature name, never by column position.
type Artifact struct {
	FormatVersion int        `json:"format_version"`
	Kind          string     `json:"kind"`
	SchemaVersion string     `json:"schema_version"`
	ModelVersion  string     `json:"model_version"`
	Preprocess    Preprocess `json:"preprocess"`
	Logistic      *Logistic  `json:"logistic,omitempty"`
	Boosting      *Boosting  `json:"boosting,omitempty"`
}

type Preprocess struct {
	Numeric     []Scaler `json:"numeric"`
	Categorical []OneHot `json:"categorical"`
	Passthrough []string `json:"passthrough"`
}

// Scaler standardises one numeric field: (x - Mean) / Scale.
type Scaler struct {
	Name  string  `json:"name"`
	Mean  float64 `json:"mean"`
	Scale float64 `json:"scale"`
}

// OneHot expands a field into one "<Name>=<category>" column per category.
type OneHot struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

type Logistic struct {
	Intercept float64            `json:"intercept"`
	Weights   map[string]float64 `json:"weights"`
}

type Boosting struct {
	Init         float64 `json:"init"`
	LearningRate float64 `json:"learning_rate"`
	Trees        []Tree  `json:"trees"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is a split (x[Feature] <= Threshold goes Left) or a leaf.
type Node struct {
	Feature   string  `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Leaf      bool    `json:"leaf,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

// IncompatibleError means the artifact cannot score rows of this schema.
type IncompatibleError struct {
	Reason string
}

func (e *IncompatibleError) Error() string {
	return "incompatible model schema: " + e.Reason
}

func incompatible(format string, args ...any) error {
	return &IncompatibleError{Reason: fmt.Sprintf(format, args...)}
}

// Decode reads an artifact and builds a model for s.
func Decode(r io.Reader, s *schema.Schema) (*Model, error) {
	var a Artifact
	dec := json.NewDecoder(r)
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	return New(a, s)
}

// New validates a against s.
func New(a Artifact, s *schema.Schema) (*Model, error) {
	if a.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("unsupported model format version %d", a.FormatVersion)
	}
	if a.SchemaVersion != s.Version {
		return nil, incompatible("artifact built for schema %q, running schema %q", a.SchemaVersion, s.Version)
	}
	enc, err := newEncoder(a.Preprocess, s)
	if err != nil {
		return nil, err
	}

	var sc scorer
	switch a.Kind {
	case KindLogistic:
		if a.Logistic == nil {
			return nil, fmt.Errorf("logistic artifact has no logistic section")
		}
		sc, err = newLogistic(*a.Logistic, enc)
	case KindGradientBoosting:
		if a.Boosting == nil {
			return nil, fmt.Errorf("gradient_boosting artifact has no boosting section")
		}
		sc, err = newBoosting(*a.Boosting, enc)
	default:
		return nil, fmt.Errorf("unsupported model kind %q", a.Kind)
	}
	if err != nil {
		return nil, err
	}
	return &Model{artifact: a, schema: s, encoder: enc, scorer: sc}, nil
}
