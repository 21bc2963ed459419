package feedprep

import (
	"strings"

	"github.com/nao1215/feedprep/domain/model"
	"go.uber.org/zap"
)

const (
	// RoleColumn holds collapsed flags or the single-role assignment
	RoleColumn = "Role"
	// flagSeparator joins matched flag column names into Role
	flagSeparator = ", "
	// flagGroupDelimiter splits Role back into entitlements during expansion
	flagGroupDelimiter = ","
)

// CollapseFlags turns boolean-style entitlement columns into one Role
// column. For each row Role lists, in column order, the names of the flag
// columns whose value equals value exactly, joined by ", ". The flag
// columns are removed afterward. It reports false and returns rs unchanged
// when columns is empty or value is unset.
func CollapseFlags(rs *model.RowSet, columns []string, value string, logger *zap.Logger) (*model.RowSet, bool) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(columns) == 0 || value == "" {
		return rs, false
	}

	schema := rs.Schema()
	type flag struct {
		name  string
		index int
	}
	flags := make([]flag, 0, len(columns))
	for _, col := range columns {
		idx := schema.Lookup(col)
		if idx < 0 {
			logger.Warn("boolean column not found", zap.String("column", col))
			continue
		}
		flags = append(flags, flag{name: col, index: idx})
	}

	roles := make([]model.Value, rs.Len())
	for i, record := range rs.Records() {
		matched := make([]string, 0, len(flags))
		for _, f := range flags {
			if v := record.At(f.index); !v.IsNull() && v.String() == value {
				matched = append(matched, f.name)
			}
		}
		roles[i] = model.NewValue(strings.Join(matched, flagSeparator))
	}

	roleName := RoleColumn
	if idx := schema.Lookup(RoleColumn); idx >= 0 {
		roleName = schema.Name(idx)
	}
	out, err := rs.WithColumn(roleName, roles)
	if err != nil {
		logger.Warn("boolean column collapse skipped", zap.Error(err))
		return rs, false
	}

	var drop []int
	for _, f := range flags {
		if name := schema.Name(f.index); !strings.EqualFold(name, roleName) {
			drop = append(drop, out.Schema().Index(name))
		}
	}
	logger.Debug("collapsed boolean columns into role", zap.Int("columns", len(flags)))
	return out.DropColumns(drop), true
}
