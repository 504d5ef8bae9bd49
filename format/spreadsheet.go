package format

import (
	"fmt"

	"github.com/go-quern/quern"
	"github.com/xuri/excelize/v2"
)

// spreadsheetCodec reads and writes Excel workbooks (.xlsx, .xls) through
// excelize.
//
// Read parameters: sheet_name, schema, dtype, parse_dates. Write parameters:
// sheet_name, index, date_format, freeze_panes ([2]int column/row split).
type spreadsheetCodec struct{}

// Kind returns the short name of this Codec's format family
func (c *spreadsheetCodec) Kind() string { return "spreadsheet" }

// Defaults returns the default parameters for this Codec
func (c *spreadsheetCodec) Defaults() Params {
	return Params{"sheet_name": "Sheet1"}
}

// Read reads one sheet of a workbook into a Frame
func (c *spreadsheetCodec) Read(path string, params Params) (*quern.Frame, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer book.Close()

	sheet := params.String("sheet_name", "Sheet1")
	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return quern.CreateFrame(nil), nil
	}
	names := rows[0]
	cells := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		// GetRows trims trailing empty cells; pad back to header width
		for len(row) < len(names) {
			row = append(row, "")
		}
		cells = append(cells, row[:len(names)])
	}
	return buildFrame(names, cells, params)
}

// Write serializes a Frame to one sheet of a new workbook
func (c *spreadsheetCodec) Write(frame *quern.Frame, path string, params Params) error {
	book := excelize.NewFile()
	defer book.Close()

	sheet := params.String("sheet_name", "Sheet1")
	if sheet != "Sheet1" {
		if err := book.SetSheetName("Sheet1", sheet); err != nil {
			return err
		}
	}
	header, cells := renderTable(frame, params)
	headerRow := make([]interface{}, len(header))
	for i, name := range header {
		headerRow[i] = name
	}
	if err := book.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return err
	}
	for rowNum, row := range cells {
		cell, err := excelize.CoordinatesToCellName(1, rowNum+2)
		if err != nil {
			return err
		}
		line := make([]interface{}, len(row))
		for i, v := range row {
			line[i] = v
		}
		if err := book.SetSheetRow(sheet, cell, &line); err != nil {
			return err
		}
	}
	if freeze, ok := params["freeze_panes"].([2]int); ok {
		topLeft, err := excelize.CoordinatesToCellName(freeze[0]+1, freeze[1]+1)
		if err != nil {
			return err
		}
		err = book.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			XSplit:      freeze[0],
			YSplit:      freeze[1],
			TopLeftCell: topLeft,
			ActivePane:  "bottomRight",
		})
		if err != nil {
			return err
		}
	}
	if err := book.SaveAs(path); err != nil {
		return fmt.Errorf("Saving workbook %s: %w", path, err)
	}
	return nil
}
