package ledger

import (
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const sampleExport = `
--------------------------------------------------------------------
| Currency | CoCd | Account | Year | Per | DT | Offst | OT | Amount | Text |
--------------------------------------------------------------------
| EUR | 0075 | 50100000 | 2024 | 03 | DZ | 4001234 | D | 1.234,56 | ABC 4001234 note |
| EUR | 0075 | 50100000 | 2024 | 03 | DZ |  555000 | D |   50,00- | "no id" here |
* Total                                                      1.184,56
--------------------------------------------------------------------
`

func TestParseDiscardsNoise(t *testing.T) {
	items, err := Parse(sampleExport)
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	require.Equal(t, "EUR", first.Currency)
	require.Equal(t, "0075", first.CompanyCode)
	require.Equal(t, uint64(50100000), first.GLAccount)
	require.Equal(t, uint16(2024), first.Year)
	require.Equal(t, uint8(3), first.Period)
	require.Equal(t, "DZ", first.DocumentType)
	require.Equal(t, uint64(4001234), first.OffsettingAccount)
	require.Equal(t, "D", first.OffsettingAccountType)
	require.True(t, first.LocalAmount.Equal(decimal.RequireFromString("1234.56")))
	require.Equal(t, "ABC 4001234 note", first.Text)
	require.False(t, first.HasCustomer)

	// embedded quotes are stripped, not treated as delimiters
	require.Equal(t, "no id here", items[1].Text)
	require.True(t, items[1].LocalAmount.Equal(decimal.RequireFromString("-50")))
}

func TestParseAmountLocale(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1.234,56", "1234.56"},
		{"50,00-", "-50.00"},
		{"0,00", "0"},
		{"2.500.000,10-", "-2500000.10"},
	}
	for _, tc := range cases {
		got, err := parseAmount(tc.in)
		require.NoError(t, err, tc.in)
		require.True(t, got.Equal(decimal.RequireFromString(tc.want)), "%s -> %s", tc.in, got)
	}
}

func TestParseOutOfRangePeriodPassesThrough(t *testing.T) {
	items, err := Parse("| EUR | 0075 | 1 | 2024 | 13 | DZ | 2 | D | 0,00 | x |")
	require.NoError(t, err)
	require.Equal(t, uint8(13), items[0].Period)
}

func TestParseFailsBatchOnBadField(t *testing.T) {
	raw := "| EUR | 0075 | 50100000 | 2024 | 03 | DZ | 555000 | D | 1.234,56 | ok |\n" +
		"| EUR | 0075 | not-a-number | 2024 | 03 | DZ | 555000 | D | 1,00 | bad |"
	_, err := Parse(raw)
	require.Error(t, err)
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, "GL_Account", decodeErr.Field)
	require.Equal(t, 2, decodeErr.Line)
}

func TestParseFailsOnFieldCount(t *testing.T) {
	_, err := Parse("| EUR | 0075 | 1 | 2024 | 03 | DZ | 2 | D | 0,00 |")
	require.Error(t, err)
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, "record", decodeErr.Field)
}

func TestParseTolerantSkipsAndCounts(t *testing.T) {
	raw := "| EUR | 0075 | 50100000 | 2024 | 03 | DZ | 555000 | D | 1.234,56 | ok |\n" +
		"| EUR | 0075 | broken | 2024 | 03 | DZ | 555000 | D | 1,00 | bad |"
	items, skipped, err := ParseTolerant(raw, slog.Default())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 1, skipped)
}

func TestParseEmptyExport(t *testing.T) {
	items, err := Parse("no data lines at all\n")
	require.NoError(t, err)
	require.Empty(t, items)
}
