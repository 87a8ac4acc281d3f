// Package report writes the two finished tables into the monthly workbook.
// Only the data contract lives here: fixed column orders, blanked zero
// customer numbers, amount formatting. The pivot sheet is created empty for
// the downstream summary tooling.
package report

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/gldeductions/gldeductions/internal/app"
	"github.com/gldeductions/gldeductions/internal/customers"
	"github.com/gldeductions/gldeductions/internal/ledger"
)

var (
	// ErrNoDetail indicates an empty detail table.
	ErrNoDetail = errors.New("report: detail table contains no records")
	// ErrNoAggregated indicates an empty aggregated table.
	ErrNoAggregated = errors.New("report: aggregated table contains no records")
)

var detailHeader = []string{
	"Company Code",
	"Year",
	"Period",
	"Document Type",
	"GL Account",
	"Customer Number",
	"Currency",
	"LC Amount",
	"Text",
	"Offsetting Account",
	"Offsetting Account Type",
}

var aggregatedHeader = []string{
	"Company Code",
	"GL Account",
	"Period",
	"Year",
	"Customer Number",
	"Customer Name",
	"Currency",
	"Deductions",
	"Deductions Count",
	"Deductions Total",
}

// WriteWorkbook writes the detail and aggregated tables to an XLSX workbook
// at path, one sheet each plus the empty pivot sheet.
func WriteWorkbook(path string, detail []ledger.LineItem, aggregated []customers.NamedRow, cfg app.ReportConfig) error {
	if len(detail) == 0 {
		return ErrNoDetail
	}
	if len(aggregated) == 0 {
		return ErrNoAggregated
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", cfg.ExportedSheet); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if _, err := f.NewSheet(cfg.ProcessedSheet); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if _, err := f.NewSheet(cfg.PivotSheet); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	if err := writeSheet(f, cfg.ExportedSheet, detailHeader, detailRows(detail), "LC Amount"); err != nil {
		return err
	}
	if err := writeSheet(f, cfg.ProcessedSheet, aggregatedHeader, aggregatedRows(aggregated), "Deductions Total"); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: saving %s: %w", path, err)
	}
	return nil
}

func detailRows(detail []ledger.LineItem) [][]any {
	rows := make([][]any, 0, len(detail))
	for _, item := range detail {
		rows = append(rows, []any{
			item.CompanyCode,
			item.Year,
			item.Period,
			item.DocumentType,
			item.GLAccount,
			blankableCustomer(item.CustomerNumber, item.HasCustomer),
			item.Currency,
			item.LocalAmount.InexactFloat64(),
			item.Text,
			item.OffsettingAccount,
			item.OffsettingAccountType,
		})
	}
	return rows
}

func aggregatedRows(aggregated []customers.NamedRow) [][]any {
	rows := make([][]any, 0, len(aggregated))
	for _, row := range aggregated {
		rows = append(rows, []any{
			row.CompanyCode,
			row.GLAccount,
			row.Period,
			row.Year,
			blankableCustomer(row.CustomerNumber, row.CustomerNumber != 0),
			row.CustomerName,
			row.Currency,
			string(row.Bucket),
			row.DeductionsCount,
			row.DeductionsTotal.InexactFloat64(),
		})
	}
	return rows
}

// blankableCustomer keeps the row but leaves the cell empty when no customer
// identity exists.
func blankableCustomer(number uint32, present bool) any {
	if !present {
		return nil
	}
	return number
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any, moneyColumn string) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("report: %s: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("report: %s: %w", sheet, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("report: %s: %w", sheet, err)
		}
	}

	moneyFmt := "#,##0.00"
	center := &excelize.Alignment{Horizontal: "center"}
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt, Alignment: center})
	if err != nil {
		return fmt.Errorf("report: %s: %w", sheet, err)
	}
	generalStyle, err := f.NewStyle(&excelize.Style{Alignment: center})
	if err != nil {
		return fmt.Errorf("report: %s: %w", sheet, err)
	}

	for i, name := range header {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("report: %s: %w", sheet, err)
		}
		style := generalStyle
		if name == moneyColumn {
			style = moneyStyle
		}
		if err := f.SetColStyle(sheet, col, style); err != nil {
			return fmt.Errorf("report: %s: %w", sheet, err)
		}
		width := columnWidth(name, i, rows)
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("report: %s: %w", sheet, err)
		}
	}

	panes := &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}
	if err := f.SetPanes(sheet, panes); err != nil {
		return fmt.Errorf("report: %s: %w", sheet, err)
	}
	return nil
}

// columnWidth sizes a column to its longest rendered value, header included.
func columnWidth(header string, idx int, rows [][]any) float64 {
	longest := len(header)
	for _, row := range rows {
		if idx >= len(row) || row[idx] == nil {
			continue
		}
		var rendered string
		switch v := row[idx].(type) {
		case float64:
			rendered = strconv.FormatFloat(v, 'f', 2, 64)
		default:
			rendered = fmt.Sprint(v)
		}
		if len(rendered) > longest {
			longest = len(rendered)
		}
	}
	return float64(longest + 2)
}
