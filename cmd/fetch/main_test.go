package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/steventflorez/Converted-Message/internal/metrics"
)

type testBackend struct{}

func (testBackend) IncCounter(name string, delta float64, labels metrics.Labels)       {}
func (testBackend) ObserveHistogram(name string, value float64, labels metrics.Labels) {}
func (testBackend) Close() error                                                       { return nil }

func testDeps(stderr *bytes.Buffer) deps {
	return deps{
		Stdout: &bytes.Buffer{},
		Stderr: stderr,
		BackendFactory: func(ctx context.Context, jobName string, tags []string, flushEvery time.Duration) (backendCloser, error) {
			return testBackend{}, nil
		},
	}
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "missing_base_url",
			args:    []string{"-app", "1", "-from", "2024-01-01", "-to", "2024-01-31"},
			wantErr: "missing required -base_url",
		},
		{
			name:    "missing_app",
			args:    []string{"-base_url", "http://x", "-from", "2024-01-01", "-to", "2024-01-31"},
			wantErr: "-app must be > 0",
		},
		{
			name:    "missing_dates",
			args:    []string{"-base_url", "http://x", "-app", "1"},
			wantErr: "missing required -from / -to",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseFlags(tc.args)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err=%v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	cfg, err := parseFlags([]string{"-base_url", "http://x", "-app", "7", "-from", "a", "-to", "b"})
	if err != nil {
		t.Fatalf("parseFlags() err=%v, want nil", err)
	}
	if cfg.Output != "history.csv" || cfg.MaxAttempts != 5 || cfg.Timeout != 60*time.Second {
		t.Fatalf("cfg=%+v, want defaults", cfg)
	}
}

func TestRun_SavesHistory(t *testing.T) {
	const payload = "message_id,contact_id,message_date,send_type,content\nm1,c1,2024-03-01T10:00:00Z,received,{}\n"

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "history.csv")
	var stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-base_url", srv.URL,
		"-app", "42",
		"-from", "2024-03-01",
		"-to", "2024-03-31",
		"-o", out,
	}, testDeps(&stderr))
	if code != 0 {
		t.Fatalf("run()=%d, want 0; stderr=%s", code, stderr.String())
	}

	if gotPath != "/v1/applications/42/messages/history" {
		t.Fatalf("path=%q", gotPath)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != payload {
		t.Fatalf("saved=%q, want server body", data)
	}
}

func TestRun_APIFailureExitCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"application not found"}`))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "history.csv")
	var stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-base_url", srv.URL,
		"-app", "999",
		"-from", "a",
		"-to", "b",
		"-o", out,
	}, testDeps(&stderr))
	if code != 1 {
		t.Fatalf("run()=%d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "history fetch failed") {
		t.Fatalf("stderr=%q, want fetch failure logged", stderr.String())
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("output must not exist after a failed fetch")
	}
}

func TestRun_ConfigErrorExitCode(t *testing.T) {
	var stderr bytes.Buffer
	if code := run(context.Background(), nil, testDeps(&stderr)); code != 2 {
		t.Fatalf("run()=%d, want 2", code)
	}
}

func TestWriteFile_Atomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	if err := writeFile(path, []byte("hello")); err != nil {
		t.Fatalf("writeFile() err=%v, want nil", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "hello" {
		t.Fatalf("content=%q, want hello", data)
	}

	// No leftover temp files.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("dir entries=%d, want only the output file", len(entries))
	}
}
