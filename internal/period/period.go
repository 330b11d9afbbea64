// Package period derives the reporting month of a transaction.
package period

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Strategy selects where a row's period comes from.
type Strategy string

const (
	// PerRow uses each row's booking date; a file may span several months.
	PerRow Strategy = "row"
	// PerFile uses the date range printed in the file preamble for every row.
	PerFile Strategy = "file"
)

// Period is a reporting month.
type Period struct {
	Key   string `json:"key"`   // YYYY-MM
	Label string `json:"label"` // "Mai 2025"
}

// Unknown is used when no date can be found.
var Unknown = Period{Key: "unbekannt", Label: "Unbekannt"}

var months = [12]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

var rangePattern = regexp.MustCompile(`(\d{2})\.(\d{2})\.(\d{4})\s*-\s*\d{2}\.\d{2}\.\d{4}`)

// Some exports shorten the year to two digits.
var dateLayouts = []string{"02.01.2006", "02.01.06"}

// FromBookingDate parses a DD.MM.YYYY (or DD.MM.YY) booking date.
func FromBookingDate(date string) (Period, error) {
	date = strings.TrimSpace(date)
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		t, err = time.Parse(layout, date)
		if err == nil {
			return New(t.Year(), t.Month()), nil
		}
	}
	return Period{}, fmt.Errorf("parsing booking date %q: %w", date, err)
}

// FromPreamble looks for a "DD.MM.YYYY - DD.MM.YYYY" range in the given
// lines and returns the month of its first date, or Unknown.
func FromPreamble(lines []string) Period {
	for _, line := range lines {
		for _, cell := range strings.Split(line, ";") {
			m := rangePattern.FindStringSubmatch(strings.Trim(cell, `" `))
			if m == nil {
				continue
			}
			month, _ := strconv.Atoi(m[2])
			year, _ := strconv.Atoi(m[3])
			if month < 1 || month > 12 {
				continue
			}
			return New(year, time.Month(month))
		}
	}
	return Unknown
}

// New builds the period for a year and month.
func New(year int, month time.Month) Period {
	return Period{
		Key:   fmt.Sprintf("%04d-%02d", year, int(month)),
		Label: fmt.Sprintf("%s %d", months[month-1], year),
	}
}

// FromKey rebuilds a period from its key. Keys that are not YYYY-MM map to Unknown.
func FromKey(key string) Period {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return Unknown
	}
	return New(t.Year(), t.Month())
}

// ParseStrategy validates a strategy name; empty means PerRow.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PerRow:
		return PerRow, nil
	case PerFile:
		return PerFile, nil
	default:
		return "", fmt.Errorf("unknown period strategy %q", s)
	}
}

// Resolver assigns periods to the rows of one file.
type Resolver struct {
	strategy Strategy
	fallback Period
}

// NewResolver scans the file's lines once for a preamble period. That
// period is used for every row with PerFile, and for rows without a usable
// booking date with PerRow.
func NewResolver(strategy Strategy, lines []string) *Resolver {
	return &Resolver{
		strategy: strategy,
		fallback: FromPreamble(lines),
	}
}

// Resolve returns the period for a row with the given booking date.
func (r *Resolver) Resolve(bookingDate string) Period {
	if r.strategy == PerFile || bookingDate == "" {
		return r.fallback
	}
	p, err := FromBookingDate(bookingDate)
	if err != nil {
		return r.fallback
	}
	return p
}

// Fallback returns the preamble period of the file.
func (r *Resolver) Fallback() Period {
	return r.fallback
}
