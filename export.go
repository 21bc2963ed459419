package feedprep

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/nao1215/feedprep/domain/model"
	"github.com/xuri/excelize/v2"
)

// Artifact naming
const (
	// TimestampLayout renders yyyy_MM_dd_HH.mm
	TimestampLayout = "2006_01_02_15.04"
	// DateLayout names daily log files
	DateLayout = "2006_01_02"
	// originalPrefix names the archived input copy
	originalPrefix = "Original_"
	// processedPrefix names the pre-expansion snapshot
	processedPrefix = "Processed_"
	// uploadInfix names the upload snapshot after the source id
	uploadInfix = "_upload_file_"
	// extParquet is the Parquet audit extension
	extParquet = ".parquet"
	// xlsxSheet is the worksheet written by excelize.NewFile
	xlsxSheet = "Sheet1"
)

// Timestamp formats t for artifact names.
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// OriginalName returns Original_<ts><ext>.
func OriginalName(ts, ext string) string {
	return originalPrefix + ts + strings.ToLower(ext)
}

// ProcessedName returns Processed_<ts>.csv.
func ProcessedName(ts string) string {
	return processedPrefix + ts + extCSV
}

// UploadName returns <sourceID>_upload_file_<ts>.csv.
func UploadName(sourceID, ts string) string {
	return sourceID + uploadInfix + ts + extCSV
}

// uniquePath returns dir/name, or dir/<base>_N<ext> for the first N that
// does not exist yet, so archived files are never overwritten.
func uniquePath(dir, name string) string {
	path := filepath.Join(dir, name)
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return path
	}

	name, compressionType := compressionFromName(name)
	compression := compressionType.Extension()
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := filepath.Join(dir, base+"_"+strconv.Itoa(i)+ext+compression)
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// WriteCSV writes rs with a header row to a new file at path. Null values
// are written as empty fields. The file must not exist yet.
func WriteCSV(path string, rs *model.RowSet) error {
	ec := NewErrorContext("write csv", path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640) //nolint:gosec // Snapshot paths are derived from configured folders
	if err != nil {
		return ec.Wrap(ErrExport, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(rs.Columns()); err != nil {
		_ = f.Close()
		return ec.Wrap(ErrExport, err)
	}
	if err := w.WriteAll(rs.Strings()); err != nil {
		_ = f.Close()
		return ec.Wrap(ErrExport, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return ec.Wrap(ErrExport, err)
	}
	if err := f.Close(); err != nil {
		return ec.Wrap(ErrExport, err)
	}
	return nil
}

// AuditFormat is an optional extra copy of the upload snapshot
type AuditFormat int

const (
	// AuditNone writes no extra copy
	AuditNone AuditFormat = iota
	// AuditParquet writes a Parquet file with nullable string columns
	AuditParquet
	// AuditXLSX writes an Excel workbook
	AuditXLSX
)

// ParseAuditFormat maps the auditFormat setting to an AuditFormat.
func ParseAuditFormat(s string) (AuditFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return AuditNone, nil
	case "parquet":
		return AuditParquet, nil
	case "xlsx":
		return AuditXLSX, nil
	default:
		return AuditNone, fmt.Errorf("%w: audit format %q", ErrUnsupportedFormat, s)
	}
}

// String returns the string representation of AuditFormat
func (f AuditFormat) String() string {
	switch f {
	case AuditParquet:
		return "parquet"
	case AuditXLSX:
		return "xlsx"
	default:
		return "none"
	}
}

// Extension returns the file extension for the format
func (f AuditFormat) Extension() string {
	switch f {
	case AuditParquet:
		return extParquet
	case AuditXLSX:
		return extXLSX
	default:
		return ""
	}
}

// WriteAudit writes rs to path in format. AuditNone is a no-op.
func WriteAudit(path string, rs *model.RowSet, format AuditFormat) error {
	var err error
	switch format {
	case AuditNone:
		return nil
	case AuditParquet:
		err = writeParquet(path, rs)
	case AuditXLSX:
		err = writeXLSX(path, rs)
	default:
		err = fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return NewErrorContext("write "+format.String(), path).Wrap(ErrExport, err)
	}
	return nil
}

// writeParquet stores every column as a nullable UTF-8 string so that
// unpopulated entitlement placeholders remain null.
func writeParquet(path string, rs *model.RowSet) error {
	columns := rs.Columns()
	fields := make([]arrow.Field, len(columns))
	for i, name := range columns {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()
	for _, record := range rs.Records() {
		for j := 0; j < record.Len(); j++ {
			sb, ok := builder.Field(j).(*array.StringBuilder)
			if !ok {
				return fmt.Errorf("unexpected builder type for column %s", columns[j])
			}
			if v := record.At(j); v.IsNull() {
				sb.AppendNull()
			} else {
				sb.Append(v.String())
			}
		}
	}
	rec := builder.NewRecord()
	defer rec.Release()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640) //nolint:gosec // Audit paths are derived from configured folders
	if err != nil {
		return err
	}
	writer, err := pqarrow.NewFileWriter(schema, f, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	if err != nil {
		_ = f.Close()
		return err
	}
	if err := writer.Write(rec); err != nil {
		_ = writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	_ = f.Close() // The parquet writer closes its sink; this only guards other writers
	return nil
}

// writeXLSX stores rs in the first worksheet of a new workbook.
func writeXLSX(path string, rs *model.RowSet) error {
	if _, err := os.Lstat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	}
	f := excelize.NewFile()
	defer func() {
		_ = f.Close() // Ignore close error
	}()

	header := make([]interface{}, rs.Width())
	for i, name := range rs.Columns() {
		header[i] = name
	}
	if err := setSheetRow(f, 1, header); err != nil {
		return err
	}
	for i, record := range rs.Records() {
		for j, v := range record.Values() {
			if v.IsNull() {
				continue // Null cells stay absent from the sheet
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellStr(xlsxSheet, cell, v.String()); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}

func setSheetRow(f *excelize.File, rowNumber int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNumber)
	if err != nil {
		return err
	}
	return f.SetSheetRow(xlsxSheet, cell, &values)
}
