// Package predict turns one submitted feature row into a thresholded
// purchase prediction.
package predict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"tourismprj/internal/classifier"
	"tourismprj/internal/logger"
	"tourismprj/internal/model"
	"tourismprj/internal/observability"
	"tourismprj/internal/schema"
)

const (
	Threshold      = 0.45
	LabelLikely    = "LIKELY TO PURCHASE"
	LabelNotLikely = "NOT LIKELY TO PURCHASE"
)

type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Outcome is the result of one prediction: either a probability with its
// label, or a failure with a reason.
type Outcome struct {
	ID           string            `json:"id"`
	Status       Status            `json:"status"`
	Probability  float64           `json:"probability"`
	Label        string            `json:"label,omitempty"`
	Threshold    float64           `json:"threshold"`
	Reason       string            `json:"reason,omitempty"`
	FieldErrors  map[string]string `json:"field_errors,omitempty"`
	ModelVersion string            `json:"model_version"`
	Features     map[string]string `json:"features,omitempty"`
}

func (o Outcome) OK() bool { return o.Status == StatusOK }

// ProbabilityText renders the probability with three decimals.
func (o Outcome) ProbabilityText() string { return FormatProbability(o.Probability) }

func FormatProbability(p float64) string { return fmt.Sprintf("%.3f", p) }

// Classify labels p against the fixed threshold; p == 0.45 is positive.
func Classify(p float64) string {
	if p >= Threshold {
		return LabelLikely
	}
	return LabelNotLikely
}

type Recorder interface {
	Save(ctx context.Context, p model.Prediction) error
}

type Service struct {
	model  classifier.Classifier
	schema *schema.Schema
	log    *logger.Logger
	audit  Recorder

	// one prediction at a time
	mu sync.Mutex
}

type Option func(*Service)

func WithLogger(l *logger.Logger) Option { return func(s *Service) { s.log = l } }

func WithRecorder(r Recorder) Option { return func(s *Service) { s.audit = r } }

func NewService(m classifier.Classifier, sch *schema.Schema, opts ...Option) *Service {
	s := &Service{model: m, schema: sch, log: logger.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Schema() *schema.Schema { return s.schema }

func (s *Service) ModelVersion() string { return s.model.Version() }

// Predict validates input and scores it. It never returns a Go error:
// every failure is reported in the Outcome.
func (s *Service) Predict(ctx context.Context, input map[string]string) Outcome {
	out := Outcome{
		ID:           uuid.NewString(),
		Threshold:    Threshold,
		ModelVersion: s.model.Version(),
	}

	rec, err := s.schema.NewRecord(input)
	if err != nil {
		out.Status = StatusFailed
		out.Reason = err.Error()
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			out.FieldErrors = verr.Reasons()
		}
		observability.PredictionFailuresTotal.WithLabelValues("validation").Inc()
		s.finish(ctx, out)
		return out
	}
	out.Features = rec.Map()

	start := time.Now()
	p, err := s.score(rec)
	observability.PredictionDuration.Observe(time.Since(start).Seconds())
	if err == nil && (math.IsNaN(p) || p < 0 || p > 1) {
		err = fmt.Errorf("model returned probability %v outside [0,1]", p)
	}
	if err != nil {
		out.Status = StatusFailed
		out.Reason = err.Error()
		observability.PredictionFailuresTotal.WithLabelValues("model").Inc()
		s.log.Warn("prediction failed", "prediction_id", out.ID, "error", err)
		s.finish(ctx, out)
		return out
	}

	out.Status = StatusOK
	out.Probability = p
	out.Label = Classify(p)
	observability.PredictionsTotal.WithLabelValues(out.Label).Inc()
	s.log.Info("prediction", "prediction_id", out.ID, "probability", out.ProbabilityText(), "label", out.Label)
	s.finish(ctx, out)
	return out
}

func (s *Service) score(rec schema.Record) (p float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model panicked: %v", r)
		}
	}()
	return s.model.PredictProba(rec)
}

func (s *Service) finish(ctx context.Context, out Outcome) {
	if s.audit == nil {
		return
	}
	err := s.audit.Save(ctx, model.Prediction{
		ID:           out.ID,
		Status:       string(out.Status),
		Probability:  out.Probability,
		Label:        out.Label,
		Threshold:    out.Threshold,
		Reason:       out.Reason,
		ModelVersion: out.ModelVersion,
		Features:     out.Features,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("could not record prediction", "prediction_id", out.ID, "error", err)
	}
}
