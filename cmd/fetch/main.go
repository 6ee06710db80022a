// Command fetch downloads a message history CSV from the platform API for an
// application and date range, saving it for cmd/export to consume.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/steventflorez/Converted-Message/internal/campaign"
	"github.com/steventflorez/Converted-Message/internal/metrics"
	"github.com/steventflorez/Converted-Message/internal/metrics/datadog"
)

// backendCloser is the minimal interface this command needs to manage a
// metrics backend.
type backendCloser interface {
	metrics.Backend
	Close() error
}

// deps are external seams for testability.
type deps struct {
	Stdout io.Writer
	Stderr io.Writer

	BackendFactory func(ctx context.Context, jobName string, tags []string, flushEvery time.Duration) (backendCloser, error)
}

// runConfig holds the parsed flags for a run.
type runConfig struct {
	BaseURL       string
	ApplicationID int
	DateFrom      string
	DateTo        string
	Output        string

	Timeout     time.Duration
	MaxAttempts int

	JobName    string
	Metrics    bool
	DDTagsCSV  string
	FlushEvery time.Duration
}

func main() {
	code := run(context.Background(), os.Args[1:], deps{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		BackendFactory: func(ctx context.Context, jobName string, tags []string, flushEvery time.Duration) (backendCloser, error) {
			b, err := datadog.NewBackend(ctx, datadog.Options{
				JobName:    jobName,
				Tags:       tags,
				FlushEvery: flushEvery,
			})
			if err != nil {
				return nil, err
			}
			return b, nil
		},
	})
	os.Exit(code)
}

// run executes the fetch command and returns an exit code.
//
// Exit codes:
//   - 0: history saved.
//   - 1: the platform call or the file write failed.
//   - 2: configuration error.
func run(ctx context.Context, args []string, d deps) int {
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}
	if d.Stderr == nil {
		d.Stderr = io.Discard
	}

	cfg, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(d.Stderr, err.Error())
		return 2
	}

	logger := zerolog.New(d.Stderr).With().Timestamp().Str("tool", "fetch").Logger()

	if cfg.Metrics {
		if d.BackendFactory == nil {
			fmt.Fprintln(d.Stderr, "internal error: BackendFactory is nil")
			return 2
		}
		tags := append(datadog.ParseTagsCSV(cfg.DDTagsCSV), "tool:fetch")
		backend, err := d.BackendFactory(ctx, cfg.JobName, tags, cfg.FlushEvery)
		if err != nil {
			logger.Error().Err(err).Msg("metrics backend init failed")
			return 2
		}
		metrics.SetBackend(backend)
		defer func() {
			_ = metrics.Flush()
			_ = backend.Close()
			metrics.SetBackend(nil)
		}()
	}

	client, err := campaign.New(campaign.Config{
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
		MaxAttempts: cfg.MaxAttempts,
		JobName:     cfg.JobName,
	})
	if err != nil {
		fmt.Fprintln(d.Stderr, err.Error())
		return 2
	}

	start := time.Now()
	body, err := client.MessageHistory(ctx, cfg.ApplicationID, cfg.DateFrom, cfg.DateTo)
	metrics.RecordStep("fetch", err, time.Since(start))
	if err != nil {
		logger.Error().Err(err).
			Int("application_id", cfg.ApplicationID).
			Str("date_from", cfg.DateFrom).
			Str("date_to", cfg.DateTo).
			Msg("history fetch failed")
		return 1
	}

	if err := writeFile(cfg.Output, body); err != nil {
		logger.Error().Err(err).Str("output", cfg.Output).Msg("save failed")
		return 1
	}

	logger.Info().
		Int("application_id", cfg.ApplicationID).
		Int("bytes", len(body)).
		Str("output", cfg.Output).
		Msg("history saved")

	return 0
}

// writeFile writes data to path atomically: temp file in the same directory,
// renamed into place on success.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".fetch-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()

	if writeErr != nil {
		_ = os.Remove(tmpName)
		return writeErr
	}
	if closeErr != nil {
		_ = os.Remove(tmpName)
		return closeErr
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// parseFlags parses command arguments into a validated runConfig.
func parseFlags(args []string) (runConfig, error) {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)

	var usageBuf strings.Builder
	fs.SetOutput(&usageBuf)
	fs.Usage = func() {
		fmt.Fprintf(&usageBuf, "Usage of %s:\n", fs.Name())
		fs.PrintDefaults()
	}

	var cfg runConfig
	fs.StringVar(&cfg.BaseURL, "base_url", "", "Platform API base URL (required)")
	fs.IntVar(&cfg.ApplicationID, "app", 0, "Application ID (required)")
	fs.StringVar(&cfg.DateFrom, "from", "", "Start date, YYYY-MM-DD (required)")
	fs.StringVar(&cfg.DateTo, "to", "", "End date, YYYY-MM-DD (required)")
	fs.StringVar(&cfg.Output, "o", "history.csv", "Path to save the history CSV")
	fs.DurationVar(&cfg.Timeout, "t", 60*time.Second, "HTTP timeout per request")
	fs.IntVar(&cfg.MaxAttempts, "max_attempts", 5, "Max attempts per call (including first attempt)")
	fs.StringVar(&cfg.JobName, "name", "history", "Logical job name used in metrics tags")
	fs.BoolVar(&cfg.Metrics, "metrics", false, "Submit run metrics to Datadog")
	fs.StringVar(&cfg.DDTagsCSV, "dd_tags", "", "Extra Datadog tags CSV")
	fs.DurationVar(&cfg.FlushEvery, "metrics_flush", 1*time.Minute, "Datadog flush interval")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return runConfig{}, errors.New(usageBuf.String())
		}
		return runConfig{}, fmt.Errorf("%v\n\n%s", err, usageBuf.String())
	}

	if cfg.BaseURL == "" {
		return runConfig{}, errors.New("missing required -base_url")
	}
	if cfg.ApplicationID <= 0 {
		return runConfig{}, errors.New("-app must be > 0")
	}
	if cfg.DateFrom == "" || cfg.DateTo == "" {
		return runConfig{}, errors.New("missing required -from / -to")
	}
	if cfg.MaxAttempts <= 0 {
		return runConfig{}, errors.New("-max_attempts must be > 0")
	}

	return cfg, nil
}
