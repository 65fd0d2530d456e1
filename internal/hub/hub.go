// Package hub talks to the remote artifact store that holds the dataset
// splits and the classifier. Artifacts are addressed by repository and
// filename; the hub HTTP API and a GCS bucket are the two backends.
package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
)

type RepoType string

const (
	RepoModel   RepoType = "model"
	RepoDataset RepoType = "dataset"
)

type Repo struct {
	ID   string
	Type RepoType
}

func Model(id string) Repo   { return Repo{ID: id, Type: RepoModel} }
func Dataset(id string) Repo { return Repo{ID: id, Type: RepoDataset} }

func (r Repo) String() string {
	return string(r.Type) + ":" + r.ID
}

type Store interface {
	Download(ctx context.Context, repo Repo, filename string) (io.ReadCloser, error)
	Upload(ctx context.Context, repo Repo, filename string, body io.Reader) error
}

var ErrMissingToken = errors.New("hub: an access token is required for uploads")

// StatusError is an unexpected HTTP status from the hub.
type StatusError struct {
	Op   string
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("hub %s %s: status %d", e.Op, e.URL, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Retryable reports whether a later attempt could succeed.
func (e *StatusError) Retryable() bool {
	return e.Code == 429 || e.Code >= 500
}
