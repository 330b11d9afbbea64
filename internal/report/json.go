package report

import (
	"context"
	"encoding/json"
	"io"

	"github.com/shopspring/decimal"

	"github.com/example/expense-report/internal/aggregate"
	"github.com/example/expense-report/pkg/transaction"
)

// Document is the JSON form of a report.
type Document struct {
	Periods []PeriodDoc `json:"periods"`
}

// PeriodDoc is one period of a Document.
type PeriodDoc struct {
	Key        string                    `json:"key"`
	Label      string                    `json:"label"`
	Categories []CategoryDoc             `json:"categories"`
	Total      decimal.Decimal           `json:"total"`
	Excluded   []transaction.Transaction `json:"excluded"`
}

// CategoryDoc is one category of a period.
type CategoryDoc struct {
	Name    string                    `json:"name"`
	Total   decimal.Decimal           `json:"total"`
	Entries []transaction.Transaction `json:"entries"`
}

// JSONWriter writes the report as an indented JSON document.
type JSONWriter struct {
	path string
	out  io.Writer
}

// NewJSONWriter creates a writer for path. Path "-" means stdout.
func NewJSONWriter(path string) *JSONWriter {
	return &JSONWriter{path: path}
}

// NewJSONWriterTo creates a writer that renders to out.
func NewJSONWriterTo(out io.Writer) *JSONWriter {
	return &JSONWriter{out: out}
}

func (w *JSONWriter) Write(_ context.Context, r *aggregate.Report) error {
	return withOutput(w.path, w.out, func(out io.Writer) error {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(NewDocument(r))
	})
}

// NewDocument converts r into its JSON form.
func NewDocument(r *aggregate.Report) Document {
	doc := Document{Periods: []PeriodDoc{}}
	for _, b := range r.Periods() {
		p := PeriodDoc{
			Key:      b.Period.Key,
			Label:    b.Period.Label,
			Total:    b.GrandTotal(),
			Excluded: transactions(&b.Excluded),
		}
		for _, name := range b.Categories() {
			list := b.Category(name)
			p.Categories = append(p.Categories, CategoryDoc{
				Name:    name,
				Total:   list.Total,
				Entries: transactions(list),
			})
		}
		doc.Periods = append(doc.Periods, p)
	}
	return doc
}

func transactions(list *transaction.List) []transaction.Transaction {
	out := make([]transaction.Transaction, 0, list.Len())
	for _, e := range list.Entries {
		out = append(out, e.Transaction)
	}
	return out
}
