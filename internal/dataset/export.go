package dataset

import (
	"bytes"
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"github.com/aerodeck/flightdeck-cli/internal/utils"
)

// CSVBytes renders a frame as CSV with a header row.
func CSVBytes(df dataframe.DataFrame) ([]byte, error) {
	var buf bytes.Buffer
	if err := df.WriteCSV(&buf, dataframe.WriteHeader(true)); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

// XLSXBytes renders a frame as a single-sheet workbook. Missing values stay as
// empty cells instead of literal NaN markers.
func XLSXBytes(df dataframe.DataFrame) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Sheet1"
	colNames := df.Names()
	for i, name := range colNames {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return nil, fmt.Errorf("write header %s: %w", name, err)
		}
	}
	for colIdx, colName := range colNames {
		col := df.Col(colName)
		isFloat := col.Type() == series.Float
		for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
			elem := col.Elem(rowIdx)
			if elem.IsNA() {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			var val any = elem.String()
			if isFloat {
				val = elem.Float()
			}
			if err := f.SetCellValue(sheetName, cell, val); err != nil {
				return nil, fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("encode xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteCSV writes a frame to path as CSV, atomically.
func WriteCSV(df dataframe.DataFrame, path string) error {
	data, err := CSVBytes(df)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, data)
}

// WriteXLSX writes a frame to path as a workbook, atomically.
func WriteXLSX(df dataframe.DataFrame, path string) error {
	data, err := XLSXBytes(df)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, data)
}
