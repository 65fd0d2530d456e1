package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tourismprj/internal/config"
	"tourismprj/internal/db"
	"tourismprj/internal/hub"
	"tourismprj/internal/logger"
	"tourismprj/internal/observability"
	"tourismprj/internal/prep"
	"tourismprj/internal/repository"
	"tourismprj/internal/schema"
)

// go run cmd/prep/main.go
// go run cmd/prep/main.go -dry-run -out=./data
// go run cmd/prep/main.go -source=./tourism.csv -repo=me/tourism-package-prediction
func main() {
	cfg := config.Load()

	source := flag.String("source", cfg.DatasetSource, "dataset CSV: hf://datasets/<owner>/<name>/<file>, http(s) URL or local path")
	repo := flag.String("repo", cfg.DatasetRepo, "dataset repository receiving the split files")
	out := flag.String("out", cfg.OutputDir, "directory for Xtrain.csv, Xtest.csv, ytrain.csv, ytest.csv")
	dryRun := flag.Bool("dry-run", false, "split and write the files without uploading them")
	flag.Parse()

	lg, err := logger.New(cfg.LogMode, cfg.LogFile)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync()

	cfg.DatasetSource = *source
	cfg.DatasetRepo = *repo
	cfg.OutputDir = *out
	if !*dryRun {
		if err := cfg.ValidatePublish(); err != nil {
			lg.Fatal("invalid configuration", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsPort != "" {
		observability.Start(cfg.MetricsPort)
	}

	retry := hub.DefaultRetry()
	retry.MaxAttempts = cfg.RemoteMaxAttempts

	client := hub.NewClient(cfg.HFEndpoint, cfg.HFToken, lg)
	client.Retry = retry

	runner := &prep.Runner{
		Source: client,
		Schema: schema.MustLoad(),
		Log:    lg,
	}

	if !*dryRun {
		switch cfg.StoreBackend {
		case config.BackendGCS:
			bucket, err := hub.NewBucketStore(ctx, cfg.GCSBucket, cfg.GCSEmulatorHost, lg)
			if err != nil {
				lg.Fatal("init bucket store", "error", err)
			}
			defer bucket.Close()
			bucket.Retry = retry
			runner.Sink = bucket
		default:
			runner.Sink = client
		}
	}

	if cfg.DatabaseURL != "" {
		conn, err := db.New(cfg.DatabaseURL)
		if err != nil {
			lg.Fatal("connect postgres", "error", err)
		}
		defer conn.Close()
		if err := db.Migrate(ctx, conn); err != nil {
			lg.Fatal("migrate postgres", "error", err)
		}
		runner.Runs = &repository.SplitRunRepository{DB: conn}
	}

	report, err := runner.Run(ctx, prep.Options{
		Source:    cfg.DatasetSource,
		Repo:      cfg.DatasetRepo,
		OutputDir: cfg.OutputDir,
		Seed:      prep.DefaultSeed,
		TestRatio: prep.DefaultTestRatio,
		DryRun:    *dryRun,
	})
	if report != nil {
		for _, f := range report.Files {
			lg.Info("split file", "file", f.Name, "bytes", f.Bytes, "uploaded", f.Uploaded, "error", f.Error)
		}
	}
	if err != nil {
		var perr *prep.PublishError
		if errors.As(err, &perr) {
			lg.Error("publish incomplete", "uploaded", perr.Uploaded, "failed", perr.Failed)
		}
		lg.Fatal("split run failed", "error", err)
	}

	lg.Info("split run finished",
		"run_id", report.RunID,
		"status", report.Status,
		"rows", report.Rows,
		"train_rows", report.TrainRows,
		"test_rows", report.TestRows,
	)
}
