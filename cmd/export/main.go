// Command export converts a platform message-history CSV into a flat
// spreadsheet-ready CSV.
//
// Two modes:
//   - responses: dynamic-schema flow-response export (discovery + projection)
//   - messages: fixed-schema free-text export
//
// Per-record problems (unparsable payloads, malformed dates, bad CSV lines)
// are logged and counted but never abort the run.
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

	"github.com/steventflorez/Converted-Message/internal/config"
	"github.com/steventflorez/Converted-Message/internal/export"
	"github.com/steventflorez/Converted-Message/internal/flatten"
	"github.com/steventflorez/Converted-Message/internal/metrics"
	"github.com/steventflorez/Converted-Message/internal/metrics/datadog"
	"github.com/steventflorez/Converted-Message/internal/source"
)

// backendCloser is the minimal interface this command needs to manage a
// metrics backend.
type backendCloser interface {
	metrics.Backend
	Close() error
}

// deps are external seams for testability.
//
// Unit tests inject fake backend factories and capture stdout/stderr; main
// wires the real ones.
type deps struct {
	Stdout io.Writer
	Stderr io.Writer

	BackendFactory func(ctx context.Context, jobName string, tags []string, flushEvery time.Duration) (backendCloser, error)
	Now            func() time.Time
}

// runConfig holds the parsed flags for a run.
type runConfig struct {
	Input     string
	Output    string
	Mode      string
	SendType  string
	HeaderMap string
	OutComma  string

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
		Now: time.Now,
	})
	os.Exit(code)
}

// run executes the export command and returns an exit code.
//
// Exit codes:
//   - 0: success (per-record failures included; they are reported, not fatal).
//   - 1: I/O or export failure.
//   - 2: configuration error.
func run(ctx context.Context, args []string, d deps) int {
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}
	if d.Stderr == nil {
		d.Stderr = io.Discard
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	cfg, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(d.Stderr, err.Error())
		return 2
	}

	logger := zerolog.New(d.Stderr).With().Timestamp().Str("tool", "export").Logger()

	if cfg.Metrics {
		if d.BackendFactory == nil {
			fmt.Fprintln(d.Stderr, "internal error: BackendFactory is nil")
			return 2
		}
		tags := append(datadog.ParseTagsCSV(cfg.DDTagsCSV), "tool:export")
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

	records, err := loadRecords(cfg, logger, d.Now)
	if err != nil {
		logger.Error().Err(err).Str("input", cfg.Input).Msg("load failed")
		return 1
	}

	doc, report := buildDocument(cfg, records, d.Now)

	metrics.RecordRecords("projected", report.Projected)
	metrics.RecordRecords("parse_failure", len(report.ParseFailures))
	metrics.RecordRecords("malformed_date", report.MalformedDates)

	for _, pf := range report.ParseFailures {
		logger.Warn().
			Int("line", pf.Line).
			Str("message_id", pf.MessageID).
			Err(pf.Err).
			Msg("record excluded: content is not valid JSON")
	}
	if report.MalformedDates > 0 {
		logger.Info().Int("count", report.MalformedDates).Msg("dates without separator passed through unsplit")
	}

	if err := writeDocument(cfg, doc, d.Now); err != nil {
		logger.Error().Err(err).Str("output", cfg.Output).Msg("write failed")
		return 1
	}

	logger.Info().
		Str("mode", cfg.Mode).
		Int("records", report.Records).
		Int("rows", report.Projected).
		Int("columns", len(doc.Header)).
		Int("parse_failures", len(report.ParseFailures)).
		Str("output", cfg.Output).
		Msg("export complete")

	return 0
}

func loadRecords(cfg runConfig, logger zerolog.Logger, now func() time.Time) ([]flatten.Record, error) {
	start := now()

	f, err := os.Open(cfg.Input)
	if err != nil {
		metrics.RecordStep("load", err, now().Sub(start))
		return nil, err
	}
	defer f.Close()

	opt := config.Options{}
	if hm := parseHeaderMap(cfg.HeaderMap); len(hm) > 0 {
		opt["header_map"] = hm
	}

	records, err := source.LoadCSV(f, opt, func(line int, err error) {
		logger.Warn().Int("line", line).Err(err).Msg("input line skipped")
	})
	metrics.RecordStep("load", err, now().Sub(start))
	return records, err
}

func buildDocument(cfg runConfig, records []flatten.Record, now func() time.Time) (export.Document, flatten.Report) {
	start := now()

	opts := flatten.Options{SendType: cfg.SendType}
	var doc export.Document
	var report flatten.Report
	if cfg.Mode == "messages" {
		doc, report = export.Messages(records, opts)
	} else {
		doc, report = export.FlowResponses(records, opts)
	}

	metrics.RecordStep("flatten", nil, now().Sub(start))
	return doc, report
}

// writeDocument writes the document atomically: temp file in the target
// directory, rename into place on success.
func writeDocument(cfg runConfig, doc export.Document, now func() time.Time) (err error) {
	start := now()
	defer func() { metrics.RecordStep("write", err, now().Sub(start)) }()

	dir := filepath.Dir(cfg.Output)
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	w := export.CSVWriter{W: tmp}
	for _, r := range cfg.OutComma {
		w.Comma = r
		break
	}

	writeErr := w.WriteDocument(doc)
	closeErr := tmp.Close()

	if writeErr != nil {
		_ = os.Remove(tmpName)
		return writeErr
	}
	if closeErr != nil {
		_ = os.Remove(tmpName)
		return closeErr
	}
	if err := os.Rename(tmpName, cfg.Output); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// parseFlags parses command arguments into a validated runConfig.
//
// Errors:
//   - Returns an error for invalid/missing required flags.
//   - Does not exit the process (caller decides exit code).
func parseFlags(args []string) (runConfig, error) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)

	var usageBuf strings.Builder
	fs.SetOutput(&usageBuf)
	fs.Usage = func() {
		fmt.Fprintf(&usageBuf, "Usage of %s:\n", fs.Name())
		fs.PrintDefaults()
	}

	var cfg runConfig
	fs.StringVar(&cfg.Input, "i", "", "Path to the message history CSV (required)")
	fs.StringVar(&cfg.Output, "o", "export.csv", "Path of the output CSV")
	fs.StringVar(&cfg.Mode, "mode", "responses", "Export mode: responses | messages")
	fs.StringVar(&cfg.SendType, "send_type", "", "Only export records with this send type (empty = all)")
	fs.StringVar(&cfg.HeaderMap, "header_map", "", "Input header mapping, e.g. 'Celular:contact_id,Fecha:message_date'")
	fs.StringVar(&cfg.OutComma, "out_comma", ",", "Output field separator")
	fs.StringVar(&cfg.JobName, "name", "export", "Logical job name used in metrics tags")
	fs.BoolVar(&cfg.Metrics, "metrics", false, "Submit run metrics to Datadog")
	fs.StringVar(&cfg.DDTagsCSV, "dd_tags", "", "Extra Datadog tags CSV (e.g. env:prod,service:export)")
	fs.DurationVar(&cfg.FlushEvery, "metrics_flush", 1*time.Minute, "Datadog flush interval")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return runConfig{}, errors.New(usageBuf.String())
		}
		return runConfig{}, fmt.Errorf("%v\n\n%s", err, usageBuf.String())
	}

	if cfg.Input == "" {
		return runConfig{}, errors.New("missing required -i <history_csv>")
	}
	if cfg.Mode != "responses" && cfg.Mode != "messages" {
		return runConfig{}, fmt.Errorf("-mode must be 'responses' or 'messages', got %q", cfg.Mode)
	}
	if cfg.OutComma == "" {
		return runConfig{}, errors.New("-out_comma must not be empty")
	}

	return cfg, nil
}

// parseHeaderMap parses "Orig:target,Orig2:target2" into a header map.
// Malformed pairs are skipped.
func parseHeaderMap(s string) map[string]string {
	if s == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, ":")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
