package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"tourismprj/internal/classifier"
	"tourismprj/internal/config"
	"tourismprj/internal/db"
	"tourismprj/internal/form"
	"tourismprj/internal/hub"
	"tourismprj/internal/logger"
	"tourismprj/internal/observability"
	"tourismprj/internal/predict"
	"tourismprj/internal/repository"
	"tourismprj/internal/schema"
)

func main() {
	cfg := config.Load()

	lg, err := logger.New(cfg.LogMode, cfg.LogFile)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync()

	if err := cfg.ValidateServe(); err != nil {
		lg.Fatal("invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observability.Register(prometheus.DefaultRegisterer)

	retry := hub.DefaultRetry()
	retry.MaxAttempts = cfg.RemoteMaxAttempts

	var store classifier.Downloader
	switch cfg.StoreBackend {
	case config.BackendGCS:
		bucket, err := hub.NewBucketStore(ctx, cfg.GCSBucket, cfg.GCSEmulatorHost, lg)
		if err != nil {
			lg.Fatal("init bucket store", "error", err)
		}
		defer bucket.Close()
		bucket.Retry = retry
		store = bucket
	default:
		client := hub.NewClient(cfg.HFEndpoint, cfg.HFToken, lg)
		client.Retry = retry
		store = client
	}

	sch := schema.MustLoad()
	repo := hub.Model(cfg.ModelRepo)
	clf, err := classifier.Load(ctx, store, repo, cfg.ModelFile, sch)
	if err != nil {
		lg.Fatal("load model", "repo", repo.String(), "file", cfg.ModelFile, "error", err)
	}
	lg.Info("model loaded", "repo", repo.String(), "file", cfg.ModelFile, "kind", clf.Kind(), "version", clf.Version())

	opts := []predict.Option{predict.WithLogger(lg)}
	h := &form.Handler{Log: lg}

	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			lg.Fatal("connect postgres", "error", err)
		}
		defer pool.Close()
		if err := db.MigratePool(ctx, pool); err != nil {
			lg.Fatal("migrate postgres", "error", err)
		}
		predictions := &repository.PredictionRepository{DB: pool}
		opts = append(opts, predict.WithRecorder(predictions))
		h.History = predictions
	}

	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			lg.Fatal("connect redis", "addr", cfg.RedisURL, "error", err)
		}
		h.States = &form.RedisStateStore{Client: redisClient}
	} else {
		h.States = form.NewMemoryStateStore(0, 0)
	}

	h.Service = predict.NewService(clf, sch, opts...)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           form.NewRouter(h, observability.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("prediction form listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("http server", "error", err)
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown", "error", err)
	}
}
