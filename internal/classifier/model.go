package classifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"tourismprj/internal/hub"
	"tourismprj/internal/observability"
	"tourismprj/internal/schema"
)

// Classifier scores one feature record.
type Classifier interface {
	PredictProba(rec schema.Record) (float64, error)
	Version() string
}

// Model is an immutable decoded artifact. It is safe for concurrent use.
type Model struct {
	artifact Artifact
	schema   *schema.Schema
	encoder  *encoder
	scorer   scorer
}

// PredictProba returns the probability of the positive class.
func (m *Model) PredictProba(rec schema.Record) (float64, error) {
	if rec.IsZero() {
		return 0, errors.New("empty feature record")
	}
	if rec.Schema().Version != m.schema.Version {
		return 0, incompatible("record uses schema %q, model expects %q", rec.Schema().Version, m.schema.Version)
	}
	x, err := m.encoder.encode(rec)
	if err != nil {
		return 0, err
	}
	z, err := m.scorer.margin(x)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 0, fmt.Errorf("model produced a non-finite score")
	}
	return sigmoid(z), nil
}

func (m *Model) Version() string { return m.artifact.ModelVersion }

func (m *Model) Kind() string { return m.artifact.Kind }

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

type Downloader interface {
	Download(ctx context.Context, repo hub.Repo, filename string) (io.ReadCloser, error)
}

// Load fetches the artifact from the model repository and decodes it.
func Load(ctx context.Context, store Downloader, repo hub.Repo, filename string, s *schema.Schema) (*Model, error) {
	m, err := load(ctx, store, repo, filename, s)
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.ModelLoadsTotal.WithLabelValues(status).Inc()
	return m, err
}

func load(ctx context.Context, store Downloader, repo hub.Repo, filename string, s *schema.Schema) (*Model, error) {
	body, err := store.Download(ctx, repo, filename)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	m, err := Decode(body, s)
	if err != nil {
		return nil, fmt.Errorf("load %s from %s: %w", filename, repo, err)
	}
	return m, nil
}
