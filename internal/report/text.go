package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/example/expense-report/internal/aggregate"
	"github.com/example/expense-report/internal/currency"
	"github.com/example/expense-report/pkg/transaction"
)

// TextWriter writes a plain text report. Path "-" means stdout.
type TextWriter struct {
	path string
	out  io.Writer
}

// NewTextWriter creates a writer for path.
func NewTextWriter(path string) *TextWriter {
	return &TextWriter{path: path}
}

// NewTextWriterTo creates a writer that renders to out.
func NewTextWriterTo(out io.Writer) *TextWriter {
	return &TextWriter{out: out}
}

// Write renders every period of r.
func (w *TextWriter) Write(_ context.Context, r *aggregate.Report) error {
	return withOutput(w.path, w.out, func(out io.Writer) error {
		return RenderText(out, r)
	})
}

// RenderText writes the text form of r to out.
func RenderText(out io.Writer, r *aggregate.Report) error {
	if r.Empty() {
		_, err := fmt.Fprintln(out, "Keine Ausgaben gefunden.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, b := range r.Periods() {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s\n%s\n\n", b.Period.Label, strings.Repeat("=", len([]rune(b.Period.Label))))

		for _, name := range b.Categories() {
			list := b.Category(name)
			fmt.Fprintf(tw, "%s (%d)\n", name, list.Len())
			writeEntries(tw, list)
			fmt.Fprintf(tw, "  Summe %s:\t\t\t\t%s\n\n", name, currency.Format(list.Total))
		}

		fmt.Fprintf(tw, "Gesamt:\t\t\t\t%s\n", currency.Format(b.GrandTotal()))

		if b.Excluded.Len() > 0 {
			fmt.Fprintf(tw, "\nAusgeschlossen (%d)\n", b.Excluded.Len())
			writeEntries(tw, &b.Excluded)
		}
	}
	return tw.Flush()
}

func writeEntries(out io.Writer, list *transaction.List) {
	for _, e := range list.Entries {
		fmt.Fprintf(out, "  %s\t%s\t%s\t%s\t%s\n",
			e.BookingDate, e.Recipient, e.Usage, e.RawAmount, currency.Format(e.Amount))
	}
}

// withOutput opens path for writing, or uses out when set, and runs fn.
func withOutput(path string, out io.Writer, fn func(io.Writer) error) error {
	if out != nil {
		return fn(out)
	}
	if path == "" || path == "-" {
		return fn(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
