package feedprep

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nao1215/feedprep/domain/model"
	"github.com/xuri/excelize/v2"
)

// utf8BOM is stripped from the first header cell of delimited files
const utf8BOM = "\ufeff"

// InputType represents the readable input formats
type InputType int

const (
	// InputTypeDelimited represents CSV and TXT files
	InputTypeDelimited InputType = iota
	// InputTypeXLSX represents Excel XLSX workbooks
	InputTypeXLSX
	// InputTypeUnsupported represents anything else, including unconverted .xls
	InputTypeUnsupported
)

// detectInputType detects the input type from the file extension. A
// trailing compression extension is ignored, so users.csv.gz is delimited.
func detectInputType(path string) InputType {
	base, _ := compressionFromName(filepath.Base(path))
	switch strings.ToLower(filepath.Ext(base)) {
	case extCSV, extTXT:
		return InputTypeDelimited
	case extXLSX:
		return InputTypeXLSX
	default:
		return InputTypeUnsupported
	}
}

// inputExtension returns the format extension plus any compression
// extension of path, for example ".csv.gz".
func inputExtension(path string) string {
	base, compressionType := compressionFromName(filepath.Base(path))
	return filepath.Ext(base) + compressionType.Extension()
}

var errRowTooWide = errors.New("row has more values than the header")

// MaxInputFileSize is the largest input file ImportFile reads (1GB)
const MaxInputFileSize = 1024 * 1024 * 1024

// errFileTooLarge is returned for inputs above MaxInputFileSize
var errFileTooLarge = errors.New("file too large")

// ImportFile reads path into a RowSet. headerRow is the physical line (or
// worksheet row) holding the column names and everything above it is
// skipped, blank lines included. Blank rows below the header are dropped.
// Short rows are padded with empty values; rows with extra non-empty values
// are rejected. Files compressed with gzip, xz or zstd (users.csv.gz) are
// read transparently. Any failure wraps ErrImport and no partial RowSet is
// returned.
func ImportFile(path string, cfg *model.AppConfig) (*model.RowSet, error) {
	ec := NewErrorContext("import", path)
	if err := checkInputSize(path, MaxInputFileSize); err != nil {
		return nil, ec.Wrap(ErrImport, err)
	}

	var (
		rows [][]string
		err  error
	)
	switch detectInputType(path) {
	case InputTypeDelimited:
		rows, err = readDelimited(path, cfg.Delimiter())
	case InputTypeXLSX:
		rows, err = readXLSXSheet(path, cfg.SheetNumber.Int())
		ec.WithDetails("sheet " + strconv.Itoa(cfg.SheetNumber.Int()))
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, inputExtension(path))
	}
	if err != nil {
		return nil, ec.Wrap(ErrImport, err)
	}

	rs, err := rowsToRowSet(rows, cfg.HeaderRow.Int())
	if err != nil {
		return nil, ec.Wrap(ErrImport, err)
	}
	return rs, nil
}

// checkInputSize rejects missing files and files larger than limit.
func checkInputSize(path string, limit int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > limit {
		return fmt.Errorf("%w: %d bytes exceeds %d", errFileTooLarge, info.Size(), limit)
	}
	return nil
}

// readDelimited reads every record of a CSV or TXT file. Each record is
// stored at the index of the line it starts on; lines encoding/csv skips
// (empty lines) become nil rows so indexes stay physical line numbers.
func readDelimited(path string, delimiter rune) ([][]string, error) {
	reader, closeReader, err := openDecompressed(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = closeReader() // Read-only handle
	}()

	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true

	var rows [][]string
	for first := true; ; first = false {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := csvReader.FieldPos(0)
		for len(rows) < line-1 {
			rows = append(rows, nil)
		}
		if first {
			record[0] = strings.TrimPrefix(record[0], utf8BOM)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// readXLSXSheet reads every row of the 1-based sheetNumber worksheet,
// blank ones included, so indexes match worksheet row numbers.
func readXLSXSheet(path string, sheetNumber int) ([][]string, error) {
	reader, closeReader, err := openDecompressed(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = closeReader() // Read-only handle
	}()

	xlsxFile, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = xlsxFile.Close() // Ignore close error
	}()

	sheetNames := xlsxFile.GetSheetList()
	if len(sheetNames) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file: %s", path)
	}
	if sheetNumber < 1 || sheetNumber > len(sheetNames) {
		return nil, fmt.Errorf("sheet %d requested but workbook has %d sheets", sheetNumber, len(sheetNames))
	}

	sheetName := sheetNames[sheetNumber-1]
	rows, err := xlsxFile.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}
	return rows, nil
}

// rowsToRowSet uses rows[headerRow-1] as header and the non-blank rows
// after it as records.
func rowsToRowSet(rows [][]string, headerRow int) (*model.RowSet, error) {
	if headerRow < 1 {
		headerRow = 1
	}
	if len(rows) < headerRow {
		return nil, fmt.Errorf("header row %d not found, file has %d rows", headerRow, len(rows))
	}

	cells := rows[headerRow-1]
	for len(cells) > 0 && strings.TrimSpace(cells[len(cells)-1]) == "" {
		cells = cells[:len(cells)-1]
	}
	header := make([]string, len(cells))
	for i, name := range cells {
		header[i] = strings.TrimSpace(name)
		if header[i] == "" {
			header[i] = "Column" + strconv.Itoa(i+1)
		}
	}
	if len(header) == 0 {
		return nil, errors.New("header row is empty")
	}

	records := make([][]string, 0, len(rows)-headerRow)
	for i, row := range rows[headerRow:] {
		if isBlankRow(row) {
			continue
		}
		record, err := fitRow(row, len(header))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", headerRow+i+1, err)
		}
		records = append(records, record)
	}
	return model.NewRowSetFromStrings(header, records)
}

// fitRow pads row to width, or trims trailing empty values beyond it.
func fitRow(row []string, width int) ([]string, error) {
	if len(row) > width {
		for _, extra := range row[width:] {
			if strings.TrimSpace(extra) != "" {
				return nil, fmt.Errorf("%w: %d values for %d columns", errRowTooWide, len(row), width)
			}
		}
		return row[:width], nil
	}
	record := make([]string, width)
	copy(record, row)
	return record, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
