package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeRedactsCredentials(t *testing.T) {
	out := sanitizeKVs([]interface{}{"repo", "a/b", "hf_token", "hf_secret", "Authorization", "Bearer x"})
	if out[1] != "a/b" {
		t.Fatalf("expected repo untouched, got %v", out[1])
	}
	if out[3] != "[REDACTED]" || out[5] != "[REDACTED]" {
		t.Fatalf("expected credentials redacted, got %v", out)
	}
}

func TestSanitizeOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"file", "Xtrain.csv", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("component", "prep").Info("uploaded", "file", "ytest.csv", "token", "abc")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["component"] != "prep" || fields["file"] != "ytest.csv" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if fields["token"] != "[REDACTED]" {
		t.Fatalf("expected token redacted, got %v", fields["token"])
	}
}

func TestNewDevAndNop(t *testing.T) {
	l, err := New("dev", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.Debug("hello")
	NewNop().Error("ignored")
}
