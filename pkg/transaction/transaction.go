package transaction

import (
	"github.com/shopspring/decimal"
)

// Transaction represents a single row of a bank export
type Transaction struct {
	BookingDate string          `json:"booking_date,omitempty"`
	Recipient   string          `json:"recipient"`
	Usage       string          `json:"usage,omitempty"`
	RawAmount   string          `json:"raw_amount"`
	Amount      decimal.Decimal `json:"amount"`
	Source      string          `json:"source,omitempty"` // file the row was read from
	Line        int             `json:"line,omitempty"`
}

// Admissible reports whether the row carries the fields classification needs
func (t Transaction) Admissible() bool {
	return t.Recipient != "" && t.RawAmount != ""
}

// IsExpense reports whether the amount is a debit
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// Kind tells which branch of a Classification is populated
type Kind int

const (
	// Skipped rows never reach a report: missing fields or non-expense amounts
	Skipped Kind = iota
	// Excluded rows are listed for audit but never totalled
	Excluded
	// Categorized rows count towards Category
	Categorized
)

func (k Kind) String() string {
	switch k {
	case Skipped:
		return "skipped"
	case Excluded:
		return "excluded"
	case Categorized:
		return "categorized"
	default:
		return "unknown"
	}
}

// Classification is the outcome of classifying one transaction
type Classification struct {
	Kind     Kind
	Category string // set when Kind == Categorized
	Reason   string // set when Kind == Skipped
}

// Skip returns a Skipped classification with the given reason
func Skip(reason string) Classification {
	return Classification{Kind: Skipped, Reason: reason}
}

// Exclude returns an Excluded classification
func Exclude() Classification {
	return Classification{Kind: Excluded}
}

// Categorize returns a Categorized classification for the named category
func Categorize(category string) Classification {
	return Classification{Kind: Categorized, Category: category}
}

// Entry is a transaction together with its resolved classification
type Entry struct {
	Transaction
	Classification Classification `json:"-"`
}

// List holds entries in insertion order with their running total
type List struct {
	Entries []Entry         `json:"entries"`
	Total   decimal.Decimal `json:"total"`
}

// Add appends an entry and adds its amount to the total
func (l *List) Add(e Entry) {
	l.Entries = append(l.Entries, e)
	l.Total = l.Total.Add(e.Amount)
}

// Concat returns a new list with l's entries followed by other's
func (l *List) Concat(other *List) *List {
	if l == nil {
		l = &List{}
	}
	if other == nil {
		other = &List{}
	}
	out := &List{
		Entries: make([]Entry, 0, l.Len()+other.Len()),
		Total:   l.Total.Add(other.Total),
	}
	out.Entries = append(out.Entries, l.Entries...)
	out.Entries = append(out.Entries, other.Entries...)
	return out
}

// Len returns the number of entries; nil lists are empty
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Entries)
}

// Sum recomputes the total from the entries
func (l *List) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, e := range l.Entries {
		sum = sum.Add(e.Amount)
	}
	return sum
}
