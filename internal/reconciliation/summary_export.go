package reconciliation

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const summarySheet = "Sheet1"

var summaryHeadings = []string{"Account", "Matched amount", "Unmatched amount", "Matched count", "Unmatched count"}

// WriteXLSX renders the summary as a workbook with one row per account and a closing total row.
// Amounts are converted from minor units.
func (s *AccountSummary) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	for col, heading := range summaryHeadings {
		if err := setCell(f, col+1, 1, heading); err != nil {
			return err
		}
	}

	var total AccountTotals
	row := 2
	for _, code := range s.SortedAccounts() {
		totals := s.Accounts[code]
		if err := writeSummaryRow(f, row, code, totals); err != nil {
			return err
		}
		total.MatchedAmount += totals.MatchedAmount
		total.UnmatchedAmount += totals.UnmatchedAmount
		total.MatchedCount += totals.MatchedCount
		total.UnmatchedCount += totals.UnmatchedCount
		row++
	}
	if err := writeSummaryRow(f, row, "Total "+s.Period.String(), total); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write summary workbook: %w", err)
	}
	return nil
}

func writeSummaryRow(f *excelize.File, row int, label string, totals AccountTotals) error {
	values := []interface{}{
		label,
		majorUnits(totals.MatchedAmount),
		majorUnits(totals.UnmatchedAmount),
		totals.MatchedCount,
		totals.UnmatchedCount,
	}
	for col, v := range values {
		if err := setCell(f, col+1, row, v); err != nil {
			return err
		}
	}
	return nil
}

func setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(summarySheet, cell, value)
}

func majorUnits(minor int64) float64 {
	return decimal.New(minor, -2).InexactFloat64()
}
