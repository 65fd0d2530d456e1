package hub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/cenkalti/backoff/v5"
	"google.golang.org/api/option"

	"tourismprj/internal/logger"
)

// BucketStore keeps artifacts in a GCS bucket under
// <type>s/<repo>/<filename>.
type BucketStore struct {
	client *storage.Client
	bucket string
	Retry  RetryPolicy
	log    *logger.Logger
}

func NewBucketStore(ctx context.Context, bucket, emulatorHost string, log *logger.Logger) (*BucketStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs: bucket name is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	var opts []option.ClientOption
	if host := strings.TrimRight(strings.TrimSpace(emulatorHost), "/"); host != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", host)
		opts = append(opts, option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}
	log = log.With("component", "gcs", "bucket", bucket)
	log.Info("object storage initialized", "emulator_host", emulatorHost)
	return &BucketStore{client: client, bucket: bucket, Retry: DefaultRetry(), log: log}, nil
}

func ObjectKey(repo Repo, filename string) string {
	return path.Join(string(repo.Type)+"s", repo.ID, filename)
}

func (b *BucketStore) Download(ctx context.Context, repo Repo, filename string) (io.ReadCloser, error) {
	key := ObjectKey(repo, filename)
	r, err := withRetry(ctx, b.Retry, b.log, "download", key, func() (io.ReadCloser, error) {
		r, err := b.client.Bucket(b.bucket).Object(key).NewReader(ctx)
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, backoff.Permanent(err)
		}
		if err != nil {
			return nil, err
		}
		return r, nil
	})
	record("download", err)
	if err != nil {
		return nil, fmt.Errorf("download %s from gs://%s: %w", key, b.bucket, err)
	}
	return r, nil
}

func (b *BucketStore) Upload(ctx context.Context, repo Repo, filename string, body io.Reader) error {
	key := ObjectKey(repo, filename)
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("upload %s: read: %w", key, err)
	}
	_, err = withRetry(ctx, b.Retry, b.log, "upload", key, func() (struct{}, error) {
		w := b.client.Bucket(b.bucket).Object(key).NewWriter(ctx)
		if strings.HasSuffix(filename, ".csv") {
			w.ContentType = "text/csv"
		}
		if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
			_ = w.Close()
			return struct{}{}, err
		}
		return struct{}{}, w.Close()
	})
	record("upload", err)
	if err != nil {
		return fmt.Errorf("upload %s to gs://%s: %w", key, b.bucket, err)
	}
	b.log.Info("object written", "key", key, "bytes", len(data))
	return nil
}

func (b *BucketStore) Close() error {
	return b.client.Close()
}
