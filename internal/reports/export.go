package reports

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/bengkelmitra/bengkelmitra/internal/ledger"
)

var rupiah = message.NewPrinter(language.Indonesian)

// ExportXLSX renders the summary as a two-sheet workbook. Amounts are written
// as grouped rupiah strings so the file is readable without spreadsheet
// formatting.
func ExportXLSX(sum Summary) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := writeSheet(f, "Daily", "Date", sum.Daily); err != nil {
		return nil, err
	}
	if err := writeSheet(f, "Monthly", "Month", sum.Monthly); err != nil {
		return nil, err
	}

	// Drop the default sheet excelize creates.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	return f, nil
}

func writeSheet(f *excelize.File, name, bucketHeader string, rows []ledger.SummaryRow) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("new sheet %s: %w", name, err)
	}

	header := []any{bucketHeader, "Sales", "Cost", "Service", "Charges", "Profit"}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		values := []any{
			row.Bucket,
			formatRupiah(row.Sales),
			formatRupiah(row.Cost),
			formatRupiah(row.Service),
			formatRupiah(row.Charges),
			formatRupiah(row.Profit),
		}
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return nil
}

func formatRupiah(v int64) string {
	return rupiah.Sprintf("Rp %d", v)
}
