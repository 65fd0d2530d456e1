package hub

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(srv *httptest.Server, token string) *Client {
	c := NewClient(srv.URL, token, nil)
	c.HTTP = srv.Client()
	c.Retry = RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
	return c
}

func TestResolveURL(t *testing.T) {
	c := NewClient("https://huggingface.co/", "", nil)
	got := c.ResolveURL(Model("udbhav90/tourism-wellness-model"), "best_tourism_model_v1.json")
	if got != "https://huggingface.co/udbhav90/tourism-wellness-model/resolve/main/best_tourism_model_v1.json" {
		t.Fatalf("unexpected model url: %s", got)
	}
	got = c.ResolveURL(Dataset("udbhav90/tourism-package-prediction"), "tourism.csv")
	if got != "https://huggingface.co/datasets/udbhav90/tourism-package-prediction/resolve/main/tourism.csv" {
		t.Fatalf("unexpected dataset url: %s", got)
	}
}

func TestDownloadSendsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/owner/model/resolve/main/m.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer hf_abc" {
			t.Errorf("missing bearer token")
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, err := testClient(srv, "hf_abc").Download(context.Background(), Model("owner/model"), "m.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer body.Close()
	b, _ := io.ReadAll(body)
	if string(b) != `{"ok":true}` {
		t.Fatalf("unexpected body: %s", b)
	}
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("a,b\n"))
	}))
	defer srv.Close()

	body, err := testClient(srv, "").Download(context.Background(), Dataset("o/d"), "x.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body.Close()
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestDownloadNotFoundIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "Entry not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv, "").Download(context.Background(), Model("o/m"), "missing.json")
	var status *StatusError
	if !errors.As(err, &status) || status.Code != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing.json") {
		t.Fatalf("expected error to name the file, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no retry on 404, got %d calls", calls)
	}
}

func TestDownloadGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := testClient(srv, "").Download(context.Background(), Model("o/m"), "m.json"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestUploadCommitPayload(t *testing.T) {
	var gotPath string
	var lines []map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Header.Get("Content-Type") != "application/x-ndjson" {
			t.Errorf("unexpected content type %s", r.Header.Get("Content-Type"))
		}
		sc := bufio.NewScanner(r.Body)
		sc.Buffer(make([]byte, 1<<20), 1<<20)
		for sc.Scan() {
			var l map[string]json.RawMessage
			if err := json.Unmarshal(sc.Bytes(), &l); err != nil {
				t.Errorf("bad ndjson line: %v", err)
			}
			lines = append(lines, l)
		}
		w.Write([]byte(`{"commitUrl":"u","commitOid":"abc"}`))
	}))
	defer srv.Close()

	err := testClient(srv, "hf_abc").Upload(context.Background(), Dataset("o/d"), "Xtrain.csv", strings.NewReader("Age\n30\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/api/datasets/o/d/commit/main" {
		t.Fatalf("unexpected commit path %s", gotPath)
	}
	if len(lines) != 2 {
		t.Fatalf("expected header and file lines, got %d", len(lines))
	}
	var file commitFile
	if err := json.Unmarshal(lines[1]["value"], &file); err != nil {
		t.Fatal(err)
	}
	content, _ := base64.StdEncoding.DecodeString(file.Content)
	if file.Path != "Xtrain.csv" || string(content) != "Age\n30\n" {
		t.Fatalf("unexpected file line: %+v", file)
	}
}

func TestUploadWithoutToken(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", nil)
	err := c.Upload(context.Background(), Dataset("o/d"), "ytest.csv", bytes.NewReader(nil))
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestUploadForbiddenIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := testClient(srv, "bad").Upload(context.Background(), Dataset("o/d"), "ytest.csv", strings.NewReader("x"))
	if err == nil || !strings.Contains(err.Error(), "ytest.csv") {
		t.Fatalf("expected error naming the file, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one attempt, got %d", calls)
	}
}

func TestParseURI(t *testing.T) {
	repo, file, err := ParseURI("hf://datasets/udbhav90/tourism-package-prediction/tourism.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo != Dataset("udbhav90/tourism-package-prediction") || file != "tourism.csv" {
		t.Fatalf("unexpected parse: %v %s", repo, file)
	}
	repo, file, _ = ParseURI("hf://owner/model/sub/dir/m.json")
	if repo != Model("owner/model") || file != "sub/dir/m.json" {
		t.Fatalf("unexpected parse: %v %s", repo, file)
	}
	if _, _, err := ParseURI("hf://datasets/only-owner"); err == nil {
		t.Fatal("expected error for short uri")
	}
}

func TestOpenRoutesByScheme(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()
	c := testClient(srv, "")

	body, err := c.Open(context.Background(), "hf://datasets/o/d/tourism.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := io.ReadAll(body)
	body.Close()
	if string(b) != "/datasets/o/d/resolve/main/tourism.csv" {
		t.Fatalf("unexpected path: %s", b)
	}

	local := filepath.Join(t.TempDir(), "t.csv")
	os.WriteFile(local, []byte("a\n1\n"), 0o644)
	body, err = c.Open(context.Background(), local)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ = io.ReadAll(body)
	body.Close()
	if string(b) != "a\n1\n" {
		t.Fatalf("unexpected local content: %q", b)
	}
}

func TestObjectKey(t *testing.T) {
	if got := ObjectKey(Dataset("o/d"), "Xtest.csv"); got != "datasets/o/d/Xtest.csv" {
		t.Fatalf("unexpected key %s", got)
	}
}
