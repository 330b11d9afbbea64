package main

import (
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/example/expense-report/internal/classify"
	"github.com/example/expense-report/internal/config"
	"github.com/example/expense-report/internal/pipeline"
	"github.com/example/expense-report/internal/report"
)

// errAllFilesFailed is returned when no input file could be processed.
var errAllFilesFailed = errors.New("no input file could be processed")

func (a *app) reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [inputs...]",
		Short: "Build the expense report from CSV exports",
		Long: `Build the expense report from CSV exports.

Inputs are files or directories. Directories are searched recursively for
*.csv files, which are processed in lexicographic order; files given
explicitly keep the order they were given in. Without arguments the input
list from the config file is used.

Examples:
  expense-report report exports/
  expense-report report mai.csv juni.csv --format xlsx --output 2025.xlsx
  expense-report report exports/ --format json --output -`,
		RunE: a.runReport,
	}

	cmd.Flags().StringP("output", "o", "report.txt", "output file (- for stdout)")
	cmd.Flags().StringP("format", "f", config.FormatText, "report format (text, xlsx, json, sheets)")
	cmd.Flags().String("period-strategy", "row", "how rows are assigned to months (row, file)")
	cmd.Flags().IntP("workers", "w", 4, "files processed in parallel")
	cmd.Flags().Bool("no-progress", false, "disable the progress bar")
	cmd.Flags().Bool("no-summary", false, "do not print the summary")

	_ = a.v.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = a.v.BindPFlag("format", cmd.Flags().Lookup("format"))
	_ = a.v.BindPFlag("period_strategy", cmd.Flags().Lookup("period-strategy"))
	_ = a.v.BindPFlag("workers", cmd.Flags().Lookup("workers"))

	return cmd
}

func (a *app) runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := a.config()
	if err != nil {
		return err
	}

	inputs := args
	if len(inputs) == 0 {
		inputs = cfg.Input
	}
	files, err := pipeline.Discover(inputs)
	if err != nil {
		return err
	}

	classifier, err := classify.New(cfg.Rules())
	if err != nil {
		return err
	}

	// created up front so credential problems surface before any work
	writer, err := report.New(ctx, cfg.Format, cfg, a.logger)
	if err != nil {
		return err
	}

	noProgress, _ := cmd.Flags().GetBool("no-progress")
	var observer pipeline.Observer
	if !noProgress {
		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Reading exports"),
			progressbar.OptionClearOnFinish(),
		)
		observer = func(string, error) {
			_ = bar.Add(1)
		}
	}

	processor := pipeline.New(pipeline.Config{
		Formats:  cfg.CSVFormats(),
		Strategy: cfg.Strategy(),
		Workers:  cfg.Workers,
		Observer: observer,
	}, classifier, a.logger)

	result, err := processor.Run(ctx, files)
	if err != nil {
		return err
	}
	for _, f := range result.Failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s\n", f)
	}
	if len(result.Files) == 0 {
		return fmt.Errorf("%w (%d failed)", errAllFilesFailed, len(result.Failed))
	}

	if err := writer.Write(ctx, result.Report); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	noSummary, _ := cmd.Flags().GetBool("no-summary")
	toStdout := cfg.Output == "-" && cfg.Format != config.FormatSheets
	if !noSummary && !toStdout {
		return report.PrintSummary(cmd.OutOrStdout(), result.Report)
	}
	return nil
}
