package statement

import "strings"

// Columns names the header cells holding each transaction field.
type Columns struct {
	Date      string `mapstructure:"date"`
	Recipient string `mapstructure:"recipient"`
	Amount    string `mapstructure:"amount"`
	Usage     string `mapstructure:"usage"`
}

// Format describes one bank export layout.
type Format struct {
	Name string `mapstructure:"name"`
	// Discriminator is a substring whose presence anywhere in a file selects
	// this format. Empty means the format is only used as a fallback.
	Discriminator string `mapstructure:"discriminator"`
	// Header lists substrings that must all appear in the header line.
	Header  []string `mapstructure:"header"`
	Columns Columns  `mapstructure:"columns"`
}

// Giro is the export that names the counterparty "Zahlungsempfänger*in".
var Giro = Format{
	Name:          "giro",
	Discriminator: "Zahlungsempfänger*in",
	Header:        []string{"Zahlungsempfänger*in", "Betrag (€)", "Buchungsdatum"},
	Columns: Columns{
		Date:      "Buchungsdatum",
		Recipient: "Zahlungsempfänger*in",
		Amount:    "Betrag (€)",
		Usage:     "Verwendungszweck",
	},
}

// Umsatz is the export with "Buchungstag" / "Umsatz in EUR" columns.
var Umsatz = Format{
	Name:   "umsatz",
	Header: []string{"Umsatz", "Buchungstag"},
	Columns: Columns{
		Date:      "Buchungstag",
		Recipient: "Buchungstext",
		Amount:    "Umsatz in EUR",
		Usage:     "Verwendungszweck",
	},
}

// DefaultFormats are the built-in layouts in detection order.
func DefaultFormats() []Format {
	return []Format{Giro, Umsatz}
}

// DetectFormat picks the first format whose discriminator occurs in any line.
// When none does, the last format without a discriminator is used; if every
// format has one, the last format is used.
func DetectFormat(lines []string, formats []Format) Format {
	for _, f := range formats {
		if f.Discriminator == "" {
			continue
		}
		for _, line := range lines {
			if strings.Contains(line, f.Discriminator) {
				return f
			}
		}
	}

	for i := len(formats) - 1; i >= 0; i-- {
		if formats[i].Discriminator == "" {
			return formats[i]
		}
	}
	if len(formats) == 0 {
		return Umsatz
	}
	return formats[len(formats)-1]
}
