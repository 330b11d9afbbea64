// Package report renders an aggregated report as text, xlsx, JSON or a
// Google Sheet.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"unicode/utf8"

	"github.com/example/expense-report/internal/aggregate"
	"github.com/example/expense-report/internal/config"
	"github.com/example/expense-report/pkg/transaction"
)

// MaxSheetName is the longest worksheet or tab name spreadsheets accept.
const MaxSheetName = 31

// Column titles shared by the tabular writers.
var columns = []any{"Datum", "Empfänger", "Verwendungszweck", "Betrag (Rohwert)", "Betrag"}

// ErrUnknownFormat is returned by New for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown report format")

// Writer renders a finished report.
type Writer interface {
	Write(ctx context.Context, r *aggregate.Report) error
}

// New returns the writer for format. Output paths and sheet settings come
// from cfg.
func New(ctx context.Context, format string, cfg *config.Config, logger *slog.Logger) (Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "report", "format", format)

	switch format {
	case config.FormatText:
		return NewTextWriter(cfg.Output), nil
	case config.FormatXLSX:
		return NewXLSXWriter(cfg.Output, logger), nil
	case config.FormatJSON:
		return NewJSONWriter(cfg.Output), nil
	case config.FormatSheets:
		return NewSheetsWriter(ctx, SheetsConfig{
			SpreadsheetID:      cfg.Sheets.SpreadsheetID,
			SpreadsheetName:    cfg.Sheets.SpreadsheetName,
			ServiceAccountPath: cfg.Sheets.ServiceAccountPath,
			ClientID:           cfg.Sheets.ClientID,
			ClientSecret:       cfg.Sheets.ClientSecret,
			RefreshToken:       cfg.Sheets.RefreshToken,
			RetryAttempts:      cfg.Sheets.RetryAttempts,
			RetryDelay:         cfg.Sheets.RetryDelay,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Rows lays out one period as a table: for every category a title row,
// the column titles, one row per entry and a subtotal; then the grand
// total and the excluded entries.
func Rows(b *aggregate.Bucket) [][]any {
	var rows [][]any

	for _, name := range b.Categories() {
		list := b.Category(name)
		rows = append(rows, []any{name}, columns)
		rows = appendEntries(rows, list)
		rows = append(rows,
			[]any{"Summe " + name, "", "", "", list.Total.InexactFloat64()},
			[]any{},
		)
	}

	rows = append(rows,
		[]any{"Gesamt", "", "", "", b.GrandTotal().InexactFloat64()},
		[]any{},
		[]any{"Ausgeschlossen"},
		columns,
	)
	return appendEntries(rows, &b.Excluded)
}

func appendEntries(rows [][]any, list *transaction.List) [][]any {
	for _, e := range list.Entries {
		rows = append(rows, []any{
			e.BookingDate,
			e.Recipient,
			e.Usage,
			e.RawAmount,
			e.Amount.InexactFloat64(),
		})
	}
	return rows
}

// SheetNames derives a worksheet name per period from its label. Names are
// cut to MaxSheetName runes and made unique with a numeric suffix.
func SheetNames(buckets []*aggregate.Bucket) []string {
	names := make([]string, len(buckets))
	used := make(map[string]bool, len(buckets))

	for i, b := range buckets {
		base := truncate(b.Period.Label, MaxSheetName)
		name := base
		for n := 2; used[name]; n++ {
			suffix := " (" + strconv.Itoa(n) + ")"
			name = truncate(base, MaxSheetName-utf8.RuneCountInString(suffix)) + suffix
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
