package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/hyperifyio/contactharvest/internal/contact"
)

const sheetName = "联系人"

var columnWidths = []float64{36, 16, 12, 48, 28, 18, 20}

// XLSX renders records as a single-sheet workbook with the CSV header.
// Encoding options do not apply.
func XLSX(records []contact.Contact, opts Options) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrEmpty
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	for i, c := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{c.Company, c.Phone, c.ExtraPhones, c.Address, c.Email, c.RegCapital, opts.formatTime(c.Timestamp)}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	for i, w := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheetName, col, col, w); err != nil {
			return nil, fmt.Errorf("column width: %w", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
