package feedprep

import (
	"sort"
	"strings"

	"github.com/nao1215/feedprep/domain/model"
	"go.uber.org/zap"
)

// mergeSeparator joins merged column values
const mergeSeparator = " - "

// ShapeParams holds the structural edits applied by Shape.
type ShapeParams struct {
	TrimTopRows      int
	TrimBottomRows   int
	TrimLeftColumns  int
	TrimRightColumns int
	ColumnsToMerge   []string
	MergedColumnName string
	DropColumns      []string
}

// ShapeParamsFromConfig extracts the Shape parameters from a folder config.
func ShapeParamsFromConfig(cfg *model.AppConfig) ShapeParams {
	return ShapeParams{
		TrimTopRows:      cfg.TrimTopRows.Int(),
		TrimBottomRows:   cfg.TrimBottomRows.Int(),
		TrimLeftColumns:  cfg.TrimLeftColumns.Int(),
		TrimRightColumns: cfg.TrimRightColumns.Int(),
		ColumnsToMerge:   cfg.ColumnsToMerge,
		MergedColumnName: cfg.MergedColumnName,
		DropColumns:      cfg.DropColumns,
	}
}

// Shape applies, in order: top row trim, bottom row trim, right column
// trim, left column trim, column merge and column drop. It never fails:
// an out-of-range count or a missing target logs a warning and leaves the
// rows unchanged for that step. The input RowSet is not modified.
func Shape(rs *model.RowSet, p ShapeParams, logger *zap.Logger) *model.RowSet {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := trimTopRows(rs, p.TrimTopRows, logger)
	out = trimBottomRows(out, p.TrimBottomRows, logger)
	out = trimRightColumns(out, p.TrimRightColumns, logger)
	out = trimLeftColumns(out, p.TrimLeftColumns, logger)
	out = mergeColumns(out, p.ColumnsToMerge, p.MergedColumnName, logger)
	return dropColumns(out, effectiveDropSet(p), logger)
}

func trimTopRows(rs *model.RowSet, n int, logger *zap.Logger) *model.RowSet {
	if n <= 0 {
		return rs
	}
	if n >= rs.Len() {
		logger.Warn("trimTopRows is not smaller than the record count, skipping row trim",
			zap.Int("trimTopRows", n), zap.Int("records", rs.Len()))
		return rs
	}
	logger.Debug("trimmed top rows", zap.Int("rows", n))
	return rs.Slice(n, rs.Len())
}

func trimBottomRows(rs *model.RowSet, n int, logger *zap.Logger) *model.RowSet {
	if n <= 0 {
		return rs
	}
	if n >= rs.Len() {
		logger.Warn("trimBottomRows is not smaller than the record count, skipping row trim",
			zap.Int("trimBottomRows", n), zap.Int("records", rs.Len()))
		return rs
	}
	logger.Debug("trimmed bottom rows", zap.Int("rows", n))
	return rs.Slice(0, rs.Len()-n)
}

func trimRightColumns(rs *model.RowSet, n int, logger *zap.Logger) *model.RowSet {
	if n <= 0 {
		return rs
	}
	width := rs.Width()
	if n >= width {
		logger.Warn("trimRightColumns is not smaller than the column count, skipping column trim",
			zap.Int("trimRightColumns", n), zap.Int("columns", width))
		return rs
	}
	return rs.SelectColumns(columnRange(0, width-n))
}

func trimLeftColumns(rs *model.RowSet, n int, logger *zap.Logger) *model.RowSet {
	if n <= 0 {
		return rs
	}
	width := rs.Width()
	if n >= width {
		logger.Warn("trimLeftColumns is not smaller than the column count, skipping column trim",
			zap.Int("trimLeftColumns", n), zap.Int("columns", width))
		return rs
	}
	return rs.SelectColumns(columnRange(n, width))
}

// columnRange returns the indexes [from, to).
func columnRange(from, to int) []int {
	indexes := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		indexes = append(indexes, i)
	}
	return indexes
}

// mergeColumns stores the non-blank values of columns, in listed order and
// joined by " - ", into a new column name.
func mergeColumns(rs *model.RowSet, columns []string, name string, logger *zap.Logger) *model.RowSet {
	if len(columns) == 0 || name == "" {
		logger.Warn("column merge skipped, columnsToMerge or mergedColumnName is not set",
			zap.Strings("columnsToMerge", columns), zap.String("mergedColumnName", name))
		return rs
	}

	schema := rs.Schema()
	indexes := make([]int, 0, len(columns))
	for _, col := range columns {
		idx := schema.Lookup(col)
		if idx < 0 {
			logger.Warn("merge column not found", zap.String("column", col))
			continue
		}
		indexes = append(indexes, idx)
	}

	values := make([]model.Value, rs.Len())
	for i, record := range rs.Records() {
		parts := make([]string, 0, len(indexes))
		for _, idx := range indexes {
			if v := record.At(idx); !v.IsBlank() {
				parts = append(parts, v.String())
			}
		}
		values[i] = model.NewValue(strings.Join(parts, mergeSeparator))
	}

	out, err := rs.WithColumn(name, values)
	if err != nil {
		logger.Warn("column merge skipped", zap.String("mergedColumnName", name), zap.Error(err))
		return rs
	}
	return out
}

// effectiveDropSet is dropColumns plus the merge sources, lower-cased.
func effectiveDropSet(p ShapeParams) map[string]bool {
	set := make(map[string]bool, len(p.DropColumns)+len(p.ColumnsToMerge))
	for _, names := range [][]string{p.DropColumns, p.ColumnsToMerge} {
		for _, name := range names {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				set[strings.ToLower(trimmed)] = true
			}
		}
	}
	return set
}

// dropColumns removes every column whose lower-cased name is in set.
func dropColumns(rs *model.RowSet, set map[string]bool, logger *zap.Logger) *model.RowSet {
	if len(set) == 0 {
		return rs
	}
	var indexes []int
	var dropped []string
	for i, name := range rs.Columns() {
		if set[strings.ToLower(name)] {
			indexes = append(indexes, i)
			dropped = append(dropped, name)
		}
	}
	if len(indexes) == 0 {
		logger.Warn("no columns matched the drop list", zap.Strings("dropColumns", setKeys(set)))
		return rs
	}
	logger.Debug("dropped columns", zap.Strings("columns", dropped))
	return rs.DropColumns(indexes)
}

func setKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
