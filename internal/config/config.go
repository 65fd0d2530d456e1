package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendHub = "hf"
	BackendGCS = "gcs"
)

type Config struct {
	HFToken    string
	HFEndpoint string

	DatasetSource string
	DatasetRepo   string
	OutputDir     string

	ModelRepo string
	ModelFile string

	StoreBackend    string
	GCSBucket       string
	GCSEmulatorHost string

	DatabaseURL string
	RedisURL    string
	HTTPAddr    string
	MetricsPort string

	LogMode string
	LogFile string

	RemoteMaxAttempts int
}

func Load() *Config {
	// .env at the project root when started from cmd/<tool>
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load()
	return &Config{
		HFToken:           os.Getenv("HF_TOKEN"),
		HFEndpoint:        getEnv("HF_ENDPOINT", "https://huggingface.co"),
		DatasetSource:     getEnv("DATASET_SOURCE", "hf://datasets/udbhav90/tourism-package-prediction/tourism.csv"),
		DatasetRepo:       getEnv("DATASET_REPO", "udbhav90/tourism-package-prediction"),
		OutputDir:         getEnv("OUTPUT_DIR", "."),
		ModelRepo:         getEnv("MODEL_REPO", "udbhav90/tourism-wellness-model"),
		ModelFile:         getEnv("MODEL_FILE", "best_tourism_model_v1.json"),
		StoreBackend:      strings.ToLower(getEnv("STORE_BACKEND", BackendHub)),
		GCSBucket:         os.Getenv("GCS_BUCKET"),
		GCSEmulatorHost:   os.Getenv("STORAGE_EMULATOR_HOST"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		MetricsPort:       os.Getenv("METRICS_PORT"),
		LogMode:           getEnv("LOG_MODE", "dev"),
		LogFile:           os.Getenv("LOG_FILE"),
		RemoteMaxAttempts: getEnvInt("REMOTE_MAX_ATTEMPTS", 3),
	}
}

// ValidatePublish checks everything the publisher needs before it touches
// the dataset, so a missing credential never leaves half a run behind.
func (c *Config) ValidatePublish() error {
	var errs []error
	switch c.StoreBackend {
	case BackendHub:
		if c.HFToken == "" {
			errs = append(errs, errors.New("HF_TOKEN is required to publish to the dataset hub"))
		}
	case BackendGCS:
		if c.GCSBucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required when STORE_BACKEND=gcs"))
		}
	default:
		errs = append(errs, errors.New("unknown STORE_BACKEND "+strconv.Quote(c.StoreBackend)))
	}
	if c.DatasetRepo == "" {
		errs = append(errs, errors.New("DATASET_REPO is empty"))
	}
	if c.DatasetSource == "" {
		errs = append(errs, errors.New("DATASET_SOURCE is empty"))
	}
	return errors.Join(errs...)
}

func (c *Config) ValidateServe() error {
	var errs []error
	if c.ModelRepo == "" {
		errs = append(errs, errors.New("MODEL_REPO is empty"))
	}
	if c.ModelFile == "" {
		errs = append(errs, errors.New("MODEL_FILE is empty"))
	}
	if c.StoreBackend == BackendGCS && c.GCSBucket == "" {
		errs = append(errs, errors.New("GCS_BUCKET is required when STORE_BACKEND=gcs"))
	}
	return errors.Join(errs...)
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getEnvInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return d
	}
	return n
}
