// Package prep splits the tourism dataset into train and test tables and
// publishes them to the dataset repository.
package prep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"tourismprj/internal/dataset"
	"tourismprj/internal/hub"
	"tourismprj/internal/logger"
	"tourismprj/internal/model"
	"tourismprj/internal/observability"
	"tourismprj/internal/schema"
)

const (
	FileXTrain = "Xtrain.csv"
	FileXTest  = "Xtest.csv"
	FileYTrain = "ytrain.csv"
	FileYTest  = "ytest.csv"

	DefaultSeed      int64 = 42
	DefaultTestRatio       = 0.2
)

type Opener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

type Uploader interface {
	Upload(ctx context.Context, repo hub.Repo, filename string, body io.Reader) error
}

type RunRecorder interface {
	Save(ctx context.Context, run model.SplitRun) error
}

type Options struct {
	Source    string
	Repo      string
	OutputDir string
	Seed      int64
	TestRatio float64
	// DryRun writes the four files and skips the upload.
	DryRun bool
}

func (o Options) validate() error {
	var errs []error
	if o.Source == "" {
		errs = append(errs, errors.New("source is empty"))
	}
	if o.Repo == "" && !o.DryRun {
		errs = append(errs, errors.New("dataset repo is empty"))
	}
	if o.TestRatio <= 0 || o.TestRatio >= 1 {
		errs = append(errs, fmt.Errorf("test ratio %v out of range", o.TestRatio))
	}
	return errors.Join(errs...)
}

type Runner struct {
	Source Opener
	Sink   Uploader
	Schema *schema.Schema
	Runs   RunRecorder
	Log    *logger.Logger
}

type Report struct {
	RunID     string
	Rows      int
	TrainRows int
	TestRows  int
	Status    string
	Files     []model.FileUpload
}

// PublishError lists the files that did not reach the dataset repository.
type PublishError struct {
	Uploaded []string
	Failed   []string
	Errs     []error
}

func (e *PublishError) Error() string {
	parts := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		parts[i] = fmt.Sprintf("%s (%v)", f, e.Errs[i])
	}
	return fmt.Sprintf("published %d of %d files; failed: %s",
		len(e.Uploaded), len(e.Uploaded)+len(e.Failed), strings.Join(parts, ", "))
}

func (e *PublishError) Unwrap() []error { return e.Errs }

type output struct {
	name  string
	table *dataset.Table
}

// Run reads the source, splits it and writes all four files before any
// upload starts. Every upload is attempted; a failed one yields a
// *PublishError and the report says which files made it.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if r.Source == nil || r.Schema == nil {
		return nil, errors.New("runner is missing its source or schema")
	}
	if r.Sink == nil && !opts.DryRun {
		return nil, errors.New("runner has no dataset sink")
	}
	log := r.Log
	if log == nil {
		log = logger.NewNop()
	}

	run := model.SplitRun{
		ID:        uuid.NewString(),
		Source:    opts.Source,
		Repo:      opts.Repo,
		Seed:      opts.Seed,
		TestRatio: opts.TestRatio,
		StartedAt: time.Now().UTC(),
	}
	log = log.With("run_id", run.ID)

	report, err := r.run(ctx, opts, &run, log)
	run.EndedAt = time.Now().UTC()
	if err != nil {
		run.Error = err.Error()
		if run.Status == "" {
			run.Status = model.RunFailed
		}
	}
	if report != nil {
		report.Status = run.Status
	}
	r.saveRun(ctx, run, log)
	return report, err
}

func (r *Runner) run(ctx context.Context, opts Options, run *model.SplitRun, log *logger.Logger) (*Report, error) {
	src, err := r.Source.Open(ctx, opts.Source)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	tbl, err := dataset.ReadCSV(src)
	src.Close()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", opts.Source, err)
	}
	if err := tbl.Require(r.Schema.Columns()); err != nil {
		return nil, err
	}
	log.Info("dataset loaded", "source", opts.Source, "rows", tbl.Len(), "schema_version", r.Schema.Version)

	X, err := tbl.Select(r.Schema.Names())
	if err != nil {
		return nil, err
	}
	y, err := tbl.Select([]string{r.Schema.Target})
	if err != nil {
		return nil, err
	}

	train, test, err := dataset.Split(tbl.Len(), opts.TestRatio, opts.Seed)
	if err != nil {
		return nil, err
	}
	run.Rows, run.TrainRows, run.TestRows = tbl.Len(), len(train), len(test)

	outputs := []output{
		{FileXTrain, X.Take(train)},
		{FileXTest, X.Take(test)},
		{FileYTrain, y.Take(train)},
		{FileYTest, y.Take(test)},
	}

	report := &Report{RunID: run.ID, Rows: run.Rows, TrainRows: run.TrainRows, TestRows: run.TestRows}
	paths, err := r.writeAll(opts.OutputDir, outputs, report)
	if err != nil {
		return report, err
	}
	run.Files = report.Files
	log.Info("split written", "dir", opts.OutputDir, "train_rows", len(train), "test_rows", len(test))

	if opts.DryRun {
		run.Status = model.RunWritten
		return report, nil
	}

	perr := r.publishAll(ctx, hub.Dataset(opts.Repo), outputs, paths, report, log)
	run.Files = report.Files
	switch {
	case perr == nil:
		run.Status = model.RunPublished
	case len(perr.Uploaded) > 0:
		run.Status = model.RunPartial
	default:
		run.Status = model.RunFailed
	}
	if perr != nil {
		return report, perr
	}
	return report, nil
}

func (r *Runner) writeAll(dir string, outputs []output, report *Report) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	paths := make([]string, len(outputs))
	for i, o := range outputs {
		p := filepath.Join(dir, o.name)
		if err := dataset.WriteFile(p, o.table); err != nil {
			return nil, err
		}
		st, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		paths[i] = p
		report.Files = append(report.Files, model.FileUpload{Name: o.name, Bytes: st.Size()})
		observability.DatasetRowsPublished.WithLabelValues(o.name).Set(float64(o.table.Len()))
	}
	return paths, nil
}

func (r *Runner) publishAll(ctx context.Context, repo hub.Repo, outputs []output, paths []string, report *Report, log *logger.Logger) *PublishError {
	perr := &PublishError{}
	for i, o := range outputs {
		err := r.publish(ctx, repo, o.name, paths[i])
		if err != nil {
			log.Error("upload failed", "file", o.name, "repo", repo.ID, "error", err)
			report.Files[i].Error = err.Error()
			perr.Failed = append(perr.Failed, o.name)
			perr.Errs = append(perr.Errs, err)
			continue
		}
		report.Files[i].Uploaded = true
		perr.Uploaded = append(perr.Uploaded, o.name)
		log.Info("uploaded", "file", o.name, "repo", repo.ID)
	}
	if len(perr.Failed) > 0 {
		return perr
	}
	return nil
}

func (r *Runner) publish(ctx context.Context, repo hub.Repo, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.Sink.Upload(ctx, repo, name, f)
}

func (r *Runner) saveRun(ctx context.Context, run model.SplitRun, log *logger.Logger) {
	if r.Runs == nil {
		return
	}
	if err := r.Runs.Save(ctx, run); err != nil {
		log.Warn("could not record split run", "error", err)
	}
}
