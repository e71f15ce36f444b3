package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/google/uuid"
	"github.com/tealeg/xlsx"
)

// Dataset is a loaded flight-records table. The frame is immutable after
// load; every column is a string series so type coercion stays an explicit
// downstream step.
type Dataset struct {
	ID     string
	Path   string
	Name   string
	Format string // csv or xlsx
	Loaded time.Time
	Frame  dataframe.DataFrame
}

// LoadOptions controls how a source file is parsed.
type LoadOptions struct {
	// Delimiter for CSV. If 0, auto-detects from the file extension.
	Delimiter rune
	// Sheet selects the XLSX worksheet by name. Empty means the first sheet.
	Sheet string
}

// Load reads a CSV, TSV or XLSX file into a Dataset. A missing or malformed
// file is a hard error; the dashboard has nothing to show without the table.
func Load(path string, opt LoadOptions) (*Dataset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	var df dataframe.DataFrame
	format := "csv"
	switch strings.ToLower(filepath.Ext(abs)) {
	case ".xlsx", ".xlsm":
		format = "xlsx"
		df, err = readXLSX(abs, opt.Sheet)
	default:
		df, err = readCSV(abs, opt.Delimiter)
	}
	if err != nil {
		return nil, err
	}
	return &Dataset{
		ID:     uuid.NewString(),
		Path:   abs,
		Name:   filepath.Base(abs),
		Format: format,
		Loaded: time.Now(),
		Frame:  df,
	}, nil
}

// Columns returns the table's column names in order.
func (d *Dataset) Columns() []string {
	return d.Frame.Names()
}

// Rows returns the number of data rows.
func (d *Dataset) Rows() int {
	return d.Frame.Nrow()
}

func readCSV(path string, delim rune) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	df := dataframe.ReadCSV(f,
		dataframe.WithDelimiter(delim),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Error() != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read csv %s: %w", filepath.Base(path), df.Error())
	}
	return df, nil
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

// ParseDelimiter converts a config/flag value into a delimiter rune.
// Empty means auto-detect by extension.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, nil
	case "tab", "\\t", "\t":
		return '\t', nil
	default:
		r := []rune(s)
		if len(r) != 1 {
			return 0, fmt.Errorf("invalid delimiter %q (want a single character or \"tab\")", s)
		}
		return r[0], nil
	}
}

func readXLSX(path, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenFile(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open xlsx: %w", err)
	}
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx %s: no worksheets", filepath.Base(path))
	}
	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("xlsx %s: sheet %q not found", filepath.Base(path), sheetName)
		}
		sheet = s
	}
	return sheetToFrame(sheet)
}

// sheetToFrame converts a worksheet into an all-string DataFrame. The first
// row is the header, the rest are data; short rows are padded with empties.
func sheetToFrame(sheet *xlsx.Sheet) (dataframe.DataFrame, error) {
	if len(sheet.Rows) < 2 {
		return dataframe.DataFrame{}, fmt.Errorf("sheet %q: no data rows", sheet.Name)
	}
	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, cell.Value)
	}
	if len(headers) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("sheet %q: empty header row", sheet.Name)
	}

	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}
	for _, row := range sheet.Rows[1:] {
		for i := range headers {
			val := ""
			if i < len(row.Cells) {
				val = row.Cells[i].Value
			}
			columns[i] = append(columns[i], val)
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}
	df := dataframe.New(seriesList...)
	if df.Error() != nil {
		return dataframe.DataFrame{}, fmt.Errorf("sheet %q: %w", sheet.Name, df.Error())
	}
	return df, nil
}
