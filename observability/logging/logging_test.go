package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestSetupRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithOptions(Options{Service: "launchpadd", Env: "test", Output: &buf})
	logger.Info("published", "projectId", 7)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode line %q: %v", buf.String(), err)
	}
	for _, key := range []string{"timestamp", "severity", "message", "service", "env"} {
		if _, ok := line[key]; !ok {
			t.Fatalf("missing %q in %v", key, line)
		}
	}
	if line["severity"] != "INFO" || line["message"] != "published" {
		t.Fatalf("unexpected line %v", line)
	}
}

func TestSetupWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launchpad.log")
	var buf bytes.Buffer
	logger := SetupWithOptions(Options{Service: "launchpadd", File: path, MaxSizeMB: 1, Output: &buf})
	logger.Warn("rejected", "reason", "Sold out")

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Equal(raw, buf.Bytes()) {
		t.Fatalf("file and stdout diverged: %q vs %q", raw, buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestMaskField(t *testing.T) {
	if got := MaskField("authorization", "Bearer abc"); got.Value.String() != RedactedValue {
		t.Fatalf("expected redaction, got %v", got)
	}
	if got := MaskField("reason", "Sold out"); got.Value.String() != "Sold out" {
		t.Fatalf("plain key must pass through, got %v", got)
	}
	if got := MaskField("index_dsn", ""); got.Value.String() != "" {
		t.Fatalf("empty values stay empty, got %v", got)
	}
}

func TestSetupRedactsSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithOptions(Options{Service: "launchpadd", Output: &buf})
	logger.Info("opened index", "index_dsn", "postgres://user:pw@db/launchpad", "driver", "postgres")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode line %q: %v", buf.String(), err)
	}
	if line["index_dsn"] != RedactedValue || line["driver"] != "postgres" {
		t.Fatalf("unexpected line %v", line)
	}
}
