package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/gldeductions/gldeductions/internal/app"
	"github.com/gldeductions/gldeductions/internal/customers"
	"github.com/gldeductions/gldeductions/internal/export"
	"github.com/gldeductions/gldeductions/internal/ledger"
)

const rawExport = `
-----------------------------------------------------------------------------
| Currency | CoCd | G/L Acct | Year | Per | DT | Offst.acct | OT | Amount | Text |
-----------------------------------------------------------------------------
| EUR | 0075 | 50100000 | 2024 | 03 | DZ | 4001234 | D | 100,00 | deduction 4001234 claim |
| EUR | 0075 | 50100000 | 2024 | 03 | DZ |  555000 | D | 25,50- | manual posting |
-----------------------------------------------------------------------------
`

func fixtureMaster(t *testing.T) *customers.Master {
	t.Helper()
	dir := t.TempDir()

	branches := "head_office;branch_number;employee_id;Customer_Name;Company_Code;country\n" +
		"9000001;4001234;17;Branch One GmbH;0075;DE\n"
	encoded, err := charmap.Windows1252.NewEncoder().Bytes([]byte(branches))
	require.NoError(t, err)
	branchesPath := filepath.Join(dir, "branches.csv")
	require.NoError(t, os.WriteFile(branchesPath, encoded, 0o600))

	headOffices := "head_office;country;Company_Code;type\n9000001;DE;0075;HQ\n"
	encoded, err = charmap.ISO8859_15.NewEncoder().Bytes([]byte(headOffices))
	require.NoError(t, err)
	headOfficesPath := filepath.Join(dir, "head_offices.csv")
	require.NoError(t, os.WriteFile(headOfficesPath, encoded, 0o600))

	master, err := customers.LoadMaster(branchesPath, headOfficesPath, nil)
	require.NoError(t, err)
	return master
}

func TestRunEndToEnd(t *testing.T) {
	exportDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(exportDir, "0075.txt"), []byte(rawExport), 0o600))

	sess, err := export.Open("local")
	require.NoError(t, err)
	defer sess.Close()

	p := &Pipeline{
		Exporter: export.FileExporter{Dir: exportDir},
		Resolver: customers.NewResolver(fixtureMaster(t), nil),
		Layout:   "ZDEDUCT",
	}
	rules := []app.CountryRule{{CompanyCode: "0075", Country: "Germany", Accounts: []uint64{50100000}, Active: true}}
	from, to := PreviousMonth(time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC))

	result, err := p.Run(context.Background(), sess, rules, from, to)
	require.NoError(t, err)

	require.Len(t, result.Detail, 2)
	require.Equal(t, uint32(4001234), result.Detail[0].CustomerNumber)
	require.True(t, result.Detail[0].LocalAmount.Equal(decimal.RequireFromString("100.00")))
	require.Equal(t, uint32(555000), result.Detail[1].CustomerNumber)
	require.True(t, result.Detail[1].LocalAmount.Equal(decimal.RequireFromString("-25.50")))

	// two grouping keys, three dense buckets each
	require.Len(t, result.Aggregated, 6)

	nonZero := map[uint32]ledger.DeductionBucket{}
	for _, row := range result.Aggregated {
		if row.DeductionsCount > 0 {
			nonZero[row.CustomerNumber] = row.Bucket
		}
	}
	require.Equal(t, ledger.BucketUnder30, nonZero[555000])
	require.Equal(t, ledger.BucketOver50, nonZero[4001234])

	for _, row := range result.Aggregated {
		if row.CustomerNumber == 4001234 {
			require.Equal(t, "Branch One GmbH", row.CustomerName)
		} else {
			require.Empty(t, row.CustomerName)
		}
	}
}

func TestRunParallelKeepsBatchOrder(t *testing.T) {
	exportDir := t.TempDir()
	lineFor := func(cocd, text string) string {
		return "| EUR | " + cocd + " | 50100000 | 2024 | 03 | DZ | 555000 | D | 10,00 | " + text + " |\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(exportDir, "0033.txt"), []byte(lineFor("0033", "ref 4000001")), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(exportDir, "0075.txt"), []byte(lineFor("0075", "ref 4000002")), 0o600))

	sess, err := export.Open("local")
	require.NoError(t, err)
	defer sess.Close()

	p := &Pipeline{
		Exporter:    export.FileExporter{Dir: exportDir},
		Resolver:    customers.NewResolver(fixtureMaster(t), nil),
		Concurrency: 4,
	}
	rules := []app.CountryRule{
		{CompanyCode: "0033", Country: "Austria"},
		{CompanyCode: "0075", Country: "Germany"},
	}
	from, to := PreviousMonth(time.Now())

	result, err := p.Run(context.Background(), sess, rules, from, to)
	require.NoError(t, err)
	require.Len(t, result.Detail, 2)
	require.Equal(t, "0033", result.Detail[0].CompanyCode)
	require.Equal(t, "0075", result.Detail[1].CompanyCode)
}

func TestRunRejectsEmptyRules(t *testing.T) {
	p := &Pipeline{
		Exporter: export.FileExporter{Dir: t.TempDir()},
		Resolver: customers.NewResolver(fixtureMaster(t), nil),
	}
	_, err := p.Run(context.Background(), nil, nil, time.Time{}, time.Time{})
	require.ErrorIs(t, err, ledger.ErrEmptyInput)
}

func TestPreviousMonth(t *testing.T) {
	from, to := PreviousMonth(time.Date(2024, time.March, 14, 12, 0, 0, 0, time.UTC))
	require.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), from)
	require.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), to)

	from, to = PreviousMonth(time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC))
	require.Equal(t, time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC), from)
	require.Equal(t, time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC), to)
}
