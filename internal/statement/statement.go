// Package statement reads semicolon separated bank exports whose real
// header row is preceded by an arbitrary preamble.
package statement

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrHeaderNotFound is returned when no line contains every required column name.
var ErrHeaderNotFound = errors.New("header row not found")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Normalize strips a UTF-8 byte order mark and decodes every line that is
// not valid UTF-8 as Windows-1252, the charset older German bank exports
// use. Valid lines are kept as they are, so a stray byte in one cell does
// not garble the header of an otherwise UTF-8 file.
func Normalize(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}

	decoder := charmap.Windows1252.NewDecoder()
	lines := bytes.Split(data, []byte("\n"))
	for i, line := range lines {
		if utf8.Valid(line) {
			continue
		}
		decoded, err := decoder.Bytes(line)
		if err != nil {
			return nil, fmt.Errorf("decoding windows-1252 line %d: %w", i+1, err)
		}
		lines[i] = decoded
	}
	return bytes.Join(lines, []byte("\n")), nil
}

// SplitLines splits a payload into lines, dropping trailing carriage returns.
func SplitLines(data []byte) []string {
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// LocateHeader returns the index of the first line containing all required
// substrings. Lines before it are preamble.
func LocateHeader(lines []string, required []string) (int, error) {
	if len(required) == 0 {
		return -1, fmt.Errorf("%w: no header columns configured", ErrHeaderNotFound)
	}
	for i, line := range lines {
		if containsAll(line, required) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: expected %s", ErrHeaderNotFound, strings.Join(required, ", "))
}

func containsAll(line string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(line, p) {
			return false
		}
	}
	return true
}

// Row is one decoded data row.
type Row struct {
	Line      int // 1-based line number in the source
	Date      string
	Recipient string
	Amount    string
	Usage     string
}

// Table is the decoded part of a file below its header.
type Table struct {
	Format Format
	// HeaderIndex is the 0-based line index of the header.
	HeaderIndex int
	Rows        []Row
	// Missing lists configured column names absent from the header.
	Missing []string
	// DataLines counts the non-blank lines below the header. More lines
	// than rows means a quoted cell spanned lines, usually an unclosed quote.
	DataLines int
}

// Read locates the header for the detected format and decodes every row below it.
func Read(lines []string, formats []Format) (*Table, error) {
	format := DetectFormat(lines, formats)

	idx, err := LocateHeader(lines, format.Header)
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", format.Name, err)
	}

	table, err := Decode(lines, idx, format)
	if err != nil {
		return nil, err
	}
	return table, nil
}

// Decode parses lines[headerIdx:] as a semicolon separated table and maps
// the format's columns by name.
func Decode(lines []string, headerIdx int, format Format) (*Table, error) {
	if headerIdx < 0 || headerIdx >= len(lines) {
		return nil, fmt.Errorf("%w: index %d out of range", ErrHeaderNotFound, headerIdx)
	}

	r := csv.NewReader(strings.NewReader(strings.Join(lines[headerIdx:], "\n")))
	r.Comma = ';'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index := indexColumns(header)
	table := &Table{Format: format, HeaderIndex: headerIdx}
	for _, line := range lines[headerIdx+1:] {
		if strings.Trim(line, "; \t\"") != "" {
			table.DataLines++
		}
	}
	col := func(name string) int {
		if name == "" {
			return -1
		}
		i, ok := index.lookup(name)
		if !ok {
			table.Missing = append(table.Missing, name)
		}
		return i
	}
	dateCol := col(format.Columns.Date)
	recipientCol := col(format.Columns.Recipient)
	amountCol := col(format.Columns.Amount)
	usageCol := col(format.Columns.Usage)

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		if blank(record) {
			continue
		}
		line, _ := r.FieldPos(0)
		table.Rows = append(table.Rows, Row{
			Line:      headerIdx + line,
			Date:      field(record, dateCol),
			Recipient: field(record, recipientCol),
			Amount:    field(record, amountCol),
			Usage:     field(record, usageCol),
		})
	}

	return table, nil
}

type columnIndex struct {
	exact map[string]int
	fold  map[string]int
}

func indexColumns(header []string) columnIndex {
	idx := columnIndex{exact: make(map[string]int), fold: make(map[string]int)}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, ok := idx.exact[h]; !ok {
			idx.exact[h] = i
		}
		if _, ok := idx.fold[strings.ToLower(h)]; !ok {
			idx.fold[strings.ToLower(h)] = i
		}
	}
	return idx
}

func (c columnIndex) lookup(name string) (int, bool) {
	if i, ok := c.exact[name]; ok {
		return i, true
	}
	i, ok := c.fold[strings.ToLower(name)]
	if !ok {
		return -1, false
	}
	return i, true
}

// Swallowed returns how many data lines did not start a row of their own.
func (t *Table) Swallowed() int {
	if n := t.DataLines - len(t.Rows); n > 0 {
		return n
	}
	return 0
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
