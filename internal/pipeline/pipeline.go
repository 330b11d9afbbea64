// Package pipeline turns statement files into an aggregated report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/example/expense-report/internal/aggregate"
	"github.com/example/expense-report/internal/currency"
	"github.com/example/expense-report/internal/period"
	"github.com/example/expense-report/internal/statement"
	"github.com/example/expense-report/pkg/transaction"
)

// Classifier decides what happens to a single transaction.
type Classifier interface {
	Classify(txn transaction.Transaction) transaction.Classification
	Categories() []string
}

// Observer is called once per finished file, successful or not. It may be
// called from several goroutines at once.
type Observer func(path string, err error)

// Config holds the settings of a Processor.
type Config struct {
	Formats  []statement.Format
	Strategy period.Strategy
	Workers  int
	Observer Observer
}

// FileError records why a single file could not be processed.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a run.
type Result struct {
	RunID  string
	Report *aggregate.Report
	// Files lists the files that contributed, in merge order.
	Files  []string
	Failed []*FileError
}

// Processor classifies and aggregates statement files.
type Processor struct {
	cfg        Config
	classifier Classifier
	logger     *slog.Logger
}

// New creates a Processor.
func New(cfg Config, classifier Classifier, logger *slog.Logger) *Processor {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = statement.DefaultFormats()
	}
	if cfg.Strategy == "" {
		cfg.Strategy = period.PerRow
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Processor{
		cfg:        cfg,
		classifier: classifier,
		logger:     logger.With("component", "pipeline"),
	}
}

// ProcessFile reads one file and aggregates its rows in file order.
func (p *Processor) ProcessFile(path string) (*aggregate.Report, error) {
	return p.processFile(path, p.logger)
}

func (p *Processor) processFile(path string, logger *slog.Logger) (*aggregate.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	data, err = statement.Normalize(data)
	if err != nil {
		return nil, err
	}
	lines := statement.SplitLines(data)

	table, err := statement.Read(lines, p.cfg.Formats)
	if err != nil {
		return nil, err
	}
	if len(table.Missing) > 0 {
		logger.Warn("columns missing from header",
			"file", path, "format", table.Format.Name, "columns", table.Missing)
	}
	if n := table.Swallowed(); n > 0 {
		logger.Warn("fewer rows than data lines, check for an unclosed quote",
			"file", path, "rows", len(table.Rows), "lines", table.DataLines, "swallowed", n)
	}

	// The preamble is everything above the header; a range token in the
	// header row itself is not expected.
	resolver := period.NewResolver(p.cfg.Strategy, lines[:table.HeaderIndex])

	report := aggregate.NewReport(p.classifier.Categories())
	for _, row := range table.Rows {
		txn := transaction.Transaction{
			BookingDate: row.Date,
			Recipient:   row.Recipient,
			Usage:       row.Usage,
			RawAmount:   row.Amount,
			Amount:      currency.ParseOrZero(row.Amount),
			Source:      path,
			Line:        row.Line,
		}
		c := p.classifier.Classify(txn)
		if c.Kind == transaction.Skipped {
			logger.Debug("row skipped", "file", path, "line", row.Line, "reason", c.Reason)
		}
		report.Admit(resolver.Resolve(row.Date), c, txn)
	}

	logger.Debug("file processed",
		"file", path,
		"format", table.Format.Name,
		"rows", len(table.Rows),
		"categorized", report.Stats.Categorized,
		"excluded", report.Stats.Excluded,
		"skipped", report.Stats.Skipped,
	)
	return report, nil
}

// Run processes files concurrently and merges their reports in the order
// given. A failing file is recorded in Result.Failed and does not affect
// the others. Only context cancellation aborts the run.
func (p *Processor) Run(ctx context.Context, files []string) (*Result, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	logger.Info("starting run", "files", len(files), "workers", p.cfg.Workers)

	reports := make([]*aggregate.Report, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			report, err := p.processFile(path, logger)
			reports[i], errs[i] = report, err

			if p.cfg.Observer != nil {
				p.cfg.Observer(path, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run canceled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run canceled: %w", err)
	}

	result := &Result{
		RunID:  runID,
		Report: aggregate.NewReport(p.classifier.Categories()),
	}
	for i, path := range files {
		if errs[i] != nil {
			fe := &FileError{Path: path, Err: errs[i]}
			logLevel := slog.LevelError
			if errors.Is(errs[i], statement.ErrHeaderNotFound) {
				logLevel = slog.LevelWarn
			}
			logger.Log(ctx, logLevel, "file failed", "file", path, "error", errs[i])
			result.Failed = append(result.Failed, fe)
			continue
		}
		result.Report.Merge(reports[i])
		result.Files = append(result.Files, path)
	}

	logger.Info("run finished",
		"processed", len(result.Files),
		"failed", len(result.Failed),
		"periods", len(result.Report.Periods()),
		"categorized", result.Report.Stats.Categorized,
		"excluded", result.Report.Stats.Excluded,
		"skipped", result.Report.Stats.Skipped,
	)
	return result, nil
}
