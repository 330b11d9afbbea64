package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/expense-report/internal/classify"
	"github.com/example/expense-report/internal/logging"
	"github.com/example/expense-report/internal/period"
	"github.com/example/expense-report/internal/statement"
)

const giroMay = `"Girokonto";"DE12 3456 7890 1234 5678 90"
"Zeitraum:";"01.05.2025 - 31.05.2025"
""
"Buchungsdatum";"Wertstellung";"Status";"Zahlungspflichtige*r";"Zahlungsempfänger*in";"Verwendungszweck";"Umsatztyp";"Betrag (€)"
"05.05.2025";"05.05.2025";"Gebucht";"Max Mustermann";"REWE Markt";"Einkauf";"Ausgang";"-45,67"
"06.05.2025";"06.05.2025";"Gebucht";"Max Mustermann";"Miete GmbH";"Miete Mai";"Ausgang";"-800,00"
"07.05.2025";"07.05.2025";"Gebucht";"Max Mustermann";"Spendenverein";"Spende";"Ausgang";"-20,00"
"08.05.2025";"08.05.2025";"Gebucht";"Max Mustermann";"Umbuchung Tagesgeld";"";"Ausgang";"-500,00"
"09.05.2025";"09.05.2025";"Gebucht";"Arbeitgeber";"Max Mustermann";"Gehalt";"Eingang";"2.500,00"
`

const umsatzSpanning = `Kontoauszug
Zeitraum;01.05.2025 - 30.06.2025
Buchungstag;Valuta;Buchungstext;Verwendungszweck;Umsatz in EUR
20.05.2025;20.05.2025;EDEKA Center;Lebensmittel;-5,00
;;Kiosk;ohne Datum;-2,00
02.06.2025;02.06.2025;Kino;Film;-12,00
`

const noHeader = `Dies ist kein Kontoauszug
a;b;c
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newProcessor(t *testing.T, cfg Config) *Processor {
	t.Helper()
	return newProcessorWithLogger(t, cfg, logging.Discard())
}

func newProcessorWithLogger(t *testing.T, cfg Config, logger *slog.Logger) *Processor {
	t.Helper()
	c, err := classify.New(classify.Rules{
		Exclusions: []string{"umbuchung"},
		Categories: []classify.CategoryRule{
			{Name: "groceries", Keywords: []string{"rewe", "edeka"}},
			{Name: "fixedCosts", Keywords: []string{"miete"}},
		},
	})
	require.NoError(t, err)
	return New(cfg, c, logger)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestProcessFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "mai.csv", giroMay)

	report, err := newProcessor(t, Config{}).ProcessFile(path)
	require.NoError(t, err)

	b, ok := report.Bucket("2025-05")
	require.True(t, ok)
	assert.Equal(t, "Mai 2025", b.Period.Label)
	assert.True(t, dec("-45.67").Equal(b.Category("groceries").Total))
	assert.True(t, dec("-800").Equal(b.Category("fixedCosts").Total))
	assert.True(t, dec("-20").Equal(b.Category("misc").Total))
	assert.True(t, dec("-865.67").Equal(b.GrandTotal()))

	require.Equal(t, 1, b.Excluded.Len())
	assert.Equal(t, "Umbuchung Tagesgeld", b.Excluded.Entries[0].Recipient)

	entry := b.Category("groceries").Entries[0]
	assert.Equal(t, path, entry.Source)
	assert.Equal(t, 5, entry.Line)
	assert.Equal(t, "-45,67", entry.RawAmount)
	assert.Equal(t, "Einkauf", entry.Usage)

	assert.Equal(t, 3, report.Stats.Categorized)
	assert.Equal(t, 1, report.Stats.Excluded)
	assert.Equal(t, 1, report.Stats.Skipped)
}

func TestProcessFile_PeriodStrategies(t *testing.T) {
	path := writeFile(t, t.TempDir(), "umsatz.csv", umsatzSpanning)

	t.Run("row", func(t *testing.T) {
		report, err := newProcessor(t, Config{Strategy: period.PerRow}).ProcessFile(path)
		require.NoError(t, err)

		may, ok := report.Bucket("2025-05")
		require.True(t, ok)
		assert.True(t, dec("-5").Equal(may.Category("groceries").Total))
		// the undated row falls back to the preamble period
		assert.True(t, dec("-2").Equal(may.Category("misc").Total))

		june, ok := report.Bucket("2025-06")
		require.True(t, ok)
		assert.True(t, dec("-12").Equal(june.Category("misc").Total))
	})

	t.Run("file", func(t *testing.T) {
		report, err := newProcessor(t, Config{Strategy: period.PerFile}).ProcessFile(path)
		require.NoError(t, err)

		periods := report.Periods()
		require.Len(t, periods, 1)
		assert.Equal(t, "2025-05", periods[0].Period.Key)
		assert.True(t, dec("-19").Equal(periods[0].GrandTotal()))
	})
}

func TestProcessFile_HeaderNotFound(t *testing.T) {
	path := writeFile(t, t.TempDir(), "kaputt.csv", noHeader)

	report, err := newProcessor(t, Config{}).ProcessFile(path)
	assert.ErrorIs(t, err, statement.ErrHeaderNotFound)
	assert.Nil(t, report)
}

func TestProcessFile_StrayWindows1252Byte(t *testing.T) {
	path := writeFile(t, t.TempDir(), "mai.csv", "Buchungsdatum;Zahlungsempfänger*in;Betrag (€)\n"+
		"05.05.2025;REWE Markt;-45,67\n"+
		"06.05.2025;Caf\xe9 Sonne;-3,00\n")

	report, err := newProcessor(t, Config{}).ProcessFile(path)
	require.NoError(t, err)

	b, ok := report.Bucket("2025-05")
	require.True(t, ok)
	assert.True(t, dec("-45.67").Equal(b.Category("groceries").Total))
	require.Equal(t, 1, b.Category("misc").Len())
	assert.Equal(t, "Café Sonne", b.Category("misc").Entries[0].Recipient)
}

func TestProcessFile_WarnsOnSwallowedRows(t *testing.T) {
	path := writeFile(t, t.TempDir(), "mai.csv", "Buchungsdatum;Zahlungsempfänger*in;Betrag (€)\n"+
		"05.05.2025;\"REWE Markt;-1,00\n"+
		"06.05.2025;Kino;-2,00\n"+
		"07.05.2025;Miete GmbH;-800,00\n")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	_, err := newProcessorWithLogger(t, Config{}, logger).ProcessFile(path)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "check for an unclosed quote")
	assert.Contains(t, out, `"lines":3`)
	assert.Contains(t, out, `"swallowed":2`)
}

func TestProcessFile_MissingFile(t *testing.T) {
	report, err := newProcessor(t, Config{}).ProcessFile(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Nil(t, report)
}

func TestRun_MergesInGivenOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", `Buchungsdatum;Zahlungsempfänger*in;Betrag (€)
05.05.2025;REWE (A);-10,00
`)
	b := writeFile(t, dir, "b.csv", `Buchungsdatum;Zahlungsempfänger*in;Betrag (€)
05.05.2025;EDEKA (B);-5,00
`)

	for _, workers := range []int{1, 4} {
		result, err := newProcessor(t, Config{Workers: workers}).Run(context.Background(), []string{a, b})
		require.NoError(t, err)

		bucket, ok := result.Report.Bucket("2025-05")
		require.True(t, ok)
		g := bucket.Category("groceries")
		assert.True(t, dec("-15").Equal(g.Total))
		require.Len(t, g.Entries, 2)
		assert.Equal(t, "REWE (A)", g.Entries[0].Recipient)
		assert.Equal(t, "EDEKA (B)", g.Entries[1].Recipient)
		assert.Equal(t, []string{a, b}, result.Files)
		assert.NotEmpty(t, result.RunID)
	}
}

func TestRun_FailedFileDoesNotStopOthers(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.csv", giroMay)
	bad := writeFile(t, dir, "bad.csv", noHeader)
	gone := filepath.Join(dir, "gone.csv")

	var mu sync.Mutex
	observed := map[string]error{}
	cfg := Config{
		Workers: 2,
		Observer: func(path string, err error) {
			mu.Lock()
			defer mu.Unlock()
			observed[path] = err
		},
	}

	result, err := newProcessor(t, cfg).Run(context.Background(), []string{bad, good, gone})
	require.NoError(t, err)

	assert.Equal(t, []string{good}, result.Files)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, bad, result.Failed[0].Path)
	assert.ErrorIs(t, result.Failed[0], statement.ErrHeaderNotFound)
	assert.Equal(t, gone, result.Failed[1].Path)
	assert.ErrorIs(t, result.Failed[1], os.ErrNotExist)

	b, ok := result.Report.Bucket("2025-05")
	require.True(t, ok)
	assert.True(t, dec("-865.67").Equal(b.GrandTotal()))

	assert.Len(t, observed, 3)
	assert.NoError(t, observed[good])
	assert.Error(t, observed[bad])
}

func TestRun_Canceled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "mai.csv", giroMay)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newProcessor(t, Config{}).Run(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestRun_Idempotent(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "mai.csv", giroMay),
		writeFile(t, dir, "umsatz.csv", umsatzSpanning),
	}
	p := newProcessor(t, Config{Workers: 3})

	first, err := p.Run(context.Background(), files)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), files)
	require.NoError(t, err)

	require.Equal(t, len(first.Report.Periods()), len(second.Report.Periods()))
	for i, b := range first.Report.Periods() {
		other := second.Report.Periods()[i]
		for _, name := range b.Categories() {
			assert.Equal(t, b.Category(name).Entries, other.Category(name).Entries)
			assert.True(t, b.Category(name).Total.Equal(other.Category(name).Total))
		}
	}
}
