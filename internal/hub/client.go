package hub

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"tourismprj/internal/logger"
	"tourismprj/internal/observability"
)

var httpClient = &http.Client{
	Timeout: 60 * time.Second,
}

const revision = "main"

// Client is the hub HTTP backend.
type Client struct {
	Endpoint string
	Token    string
	HTTP     *http.Client
	Retry    RetryPolicy
	Log      *logger.Logger
}

func NewClient(endpoint, token string, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Token:    token,
		HTTP:     httpClient,
		Retry:    DefaultRetry(),
		Log:      log.With("component", "hub"),
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return httpClient
}

func (c *Client) ResolveURL(repo Repo, filename string) string {
	prefix := ""
	if repo.Type == RepoDataset {
		prefix = "datasets/"
	}
	return fmt.Sprintf("%s/%s%s/resolve/%s/%s", c.Endpoint, prefix, repo.ID, revision, escapePath(filename))
}

func (c *Client) Download(ctx context.Context, repo Repo, filename string) (io.ReadCloser, error) {
	body, err := c.get(ctx, "download", c.ResolveURL(repo, filename), true)
	if err != nil {
		return nil, fmt.Errorf("download %s from %s: %w", filename, repo, err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, op, target string, auth bool) (io.ReadCloser, error) {
	body, err := withRetry(ctx, c.Retry, c.Log, op, target, func() (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "tourismprj")
		if auth && c.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.Token)
		}

		resp, err := c.httpClient().Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			return nil, statusError(op, target, resp)
		}
		return resp.Body, nil
	})
	record(op, err)
	return body, err
}

type commitLine struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type commitHeader struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

type commitFile struct {
	Content  string `json:"content"`
	Path     string `json:"path"`
	Encoding string `json:"encoding"`
}

type commitResponse struct {
	CommitURL string `json:"commitUrl"`
	CommitOID string `json:"commitOid"`
}

// Upload commits one file to the main branch of repo.
func (c *Client) Upload(ctx context.Context, repo Repo, filename string, body io.Reader) error {
	if c.Token == "" {
		return fmt.Errorf("upload %s to %s: %w", filename, repo, ErrMissingToken)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("upload %s to %s: read: %w", filename, repo, err)
	}
	payload, err := commitPayload(filename, data)
	if err != nil {
		return fmt.Errorf("upload %s to %s: %w", filename, repo, err)
	}

	target := fmt.Sprintf("%s/api/%ss/%s/commit/%s", c.Endpoint, repo.Type, repo.ID, revision)
	commit, err := withRetry(ctx, c.Retry, c.Log, "upload", target, func() (commitResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
		if err != nil {
			return commitResponse{}, err
		}
		req.Header.Set("User-Agent", "tourismprj")
		req.Header.Set("Authorization", "Bearer "+c.Token)
		req.Header.Set("Content-Type", "application/x-ndjson")

		resp, err := c.httpClient().Do(req)
		if err != nil {
			return commitResponse{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return commitResponse{}, statusError("upload", target, resp)
		}
		var out commitResponse
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return out, nil
	})
	record("upload", err)
	if err != nil {
		return fmt.Errorf("upload %s to %s: %w", filename, repo, err)
	}
	c.Log.Info("file committed", "repo", repo.ID, "file", filename, "bytes", len(data), "commit", commit.CommitOID)
	return nil
}

func commitPayload(filename string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	lines := []commitLine{
		{Key: "header", Value: commitHeader{Summary: "Upload " + filename}},
		{Key: "file", Value: commitFile{
			Content:  base64.StdEncoding.EncodeToString(data),
			Path:     filename,
			Encoding: "base64",
		}},
	}
	for _, l := range lines {
		if err := enc.Encode(l); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Open reads a dataset source. It accepts hf://datasets/<owner>/<name>/<path>,
// hf://<owner>/<name>/<path> for model repos, http(s) URLs and local paths.
func (c *Client) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(uri, "hf://"):
		repo, file, err := ParseURI(uri)
		if err != nil {
			return nil, err
		}
		return c.Download(ctx, repo, file)
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		body, err := c.get(ctx, "fetch", uri, strings.HasPrefix(uri, c.Endpoint+"/"))
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", uri, err)
		}
		return body, nil
	default:
		f, err := os.Open(uri)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", uri, err)
		}
		return f, nil
	}
}

// ParseURI splits an hf:// URI into its repository and file path.
func ParseURI(uri string) (Repo, string, error) {
	rest := strings.TrimPrefix(uri, "hf://")
	repoType := RepoModel
	if strings.HasPrefix(rest, "datasets/") {
		repoType = RepoDataset
		rest = strings.TrimPrefix(rest, "datasets/")
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Repo{}, "", fmt.Errorf("malformed hub uri %q: want hf://[datasets/]<owner>/<name>/<path>", uri)
	}
	return Repo{ID: parts[0] + "/" + parts[1], Type: repoType}, parts[2], nil
}

func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

func statusError(op, target string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Op: op, URL: target, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
}

func record(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RemoteRequestsTotal.WithLabelValues(op, status).Inc()
}
