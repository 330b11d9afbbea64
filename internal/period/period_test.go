package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBookingDate(t *testing.T) {
	p, err := FromBookingDate("05.05.2025")
	require.NoError(t, err)
	assert.Equal(t, Period{Key: "2025-05", Label: "Mai 2025"}, p)

	p, err = FromBookingDate(" 31.03.2024 ")
	require.NoError(t, err)
	assert.Equal(t, "2024-03", p.Key)
	assert.Equal(t, "März 2024", p.Label)

	p, err = FromBookingDate("05.05.25")
	require.NoError(t, err)
	assert.Equal(t, "2025-05", p.Key)

	_, err = FromBookingDate("2025-05-05")
	assert.Error(t, err)
	_, err = FromBookingDate("")
	assert.Error(t, err)
}

func TestFromPreamble(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  Period
	}{
		{
			name:  "range in own cell",
			lines: []string{`"Kontonummer:";"DE12 3456"`, `"Zeitraum:";"01.12.2024 - 31.12.2024"`},
			want:  Period{Key: "2024-12", Label: "Dezember 2024"},
		},
		{
			name:  "range embedded in text",
			lines: []string{`Umsätze im Zeitraum 01.02.2025 - 28.02.2025;;`},
			want:  Period{Key: "2025-02", Label: "Februar 2025"},
		},
		{
			name:  "first match wins",
			lines: []string{`01.01.2025 - 31.01.2025`, `01.03.2025 - 31.03.2025`},
			want:  Period{Key: "2025-01", Label: "Januar 2025"},
		},
		{
			name:  "no range",
			lines: []string{"Buchungsdatum;Betrag", "05.05.2025;-1,00"},
			want:  Unknown,
		},
		{
			name:  "invalid month is ignored",
			lines: []string{"01.13.2025 - 31.13.2025"},
			want:  Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromPreamble(tt.lines))
		})
	}
}

func TestFromKey(t *testing.T) {
	assert.Equal(t, New(2025, time.October), FromKey("2025-10"))
	assert.Equal(t, "Oktober 2025", FromKey("2025-10").Label)
	assert.Equal(t, Unknown, FromKey("unbekannt"))
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, PerRow, s)

	s, err = ParseStrategy("FILE")
	require.NoError(t, err)
	assert.Equal(t, PerFile, s)

	_, err = ParseStrategy("weekly")
	assert.Error(t, err)
}

func TestResolver(t *testing.T) {
	lines := []string{`"Zeitraum:";"01.04.2025 - 30.04.2025"`, "Buchungsdatum;Betrag (€)"}

	perRow := NewResolver(PerRow, lines)
	assert.Equal(t, "2025-05", perRow.Resolve("05.05.2025").Key)
	assert.Equal(t, "2025-04", perRow.Resolve("").Key, "missing date falls back to preamble")
	assert.Equal(t, "2025-04", perRow.Resolve("kaputt").Key)

	perFile := NewResolver(PerFile, lines)
	assert.Equal(t, "2025-04", perFile.Resolve("05.05.2025").Key)

	bare := NewResolver(PerRow, []string{"Buchungsdatum;Betrag (€)"})
	assert.Equal(t, Unknown, bare.Resolve(""))
	assert.Equal(t, Unknown, bare.Fallback())
}
