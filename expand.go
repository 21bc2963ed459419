package feedprep

import (
	"strconv"
	"strings"

	"github.com/nao1215/feedprep/domain/model"
	"go.uber.org/zap"
)

const (
	// DisabledColumn carries the derived disabled flag
	DisabledColumn = "IIQDisabled"
	// RoleAdmin is assigned when the admin rule matches in single-role mode
	RoleAdmin = "Admin"
	// RoleUser is assigned otherwise in single-role mode
	RoleUser = "User"
)

// ExpandParams configures Expand.
type ExpandParams struct {
	// Schema is the output column whitelist. Empty means the input columns.
	Schema []string
	// GroupTypes are entitlement columns. Empty selects single-role mode.
	GroupTypes     []string
	GroupDelimiter string

	DisableField  string
	DisableValues []string

	AdminColumnName  string
	AdminColumnValue string
}

// ExpandParamsFromConfig extracts the Expand parameters from a folder config.
func ExpandParamsFromConfig(cfg *model.AppConfig) ExpandParams {
	return ExpandParams{
		Schema:           cfg.Schema,
		GroupTypes:       cfg.GroupTypes,
		GroupDelimiter:   cfg.GroupDelimiter,
		DisableField:     cfg.DisableField,
		DisableValues:    cfg.DisableValue,
		AdminColumnName:  cfg.AdminColumnName,
		AdminColumnValue: cfg.AdminColumnValue,
	}
}

// outputLayout maps output columns to their source.
type outputLayout struct {
	schema      *model.Schema
	sourceIndex []int // -1 means null
	disabledPos int
	rolePos     int            // single-role mode only
	groupPos    map[string]int // keyed by lower-cased group type
}

// Expand produces upload rows from rs.
//
// Every output row carries the schema columns copied from its source row,
// with group-type columns nulled, plus IIQDisabled. With group types each
// source row fans out into one row per delimited value of each non-empty
// group-type cell; only that type's column is populated on the emitted row,
// so values of two group types never share a row. Without group types
// each source row yields exactly one row whose Role is Admin or User.
// Source rows that yield nothing are dropped silently.
//
// Without an explicit schema the disable source column is replaced in place
// by IIQDisabled. An explicit schema keeps every listed column with its
// source value. IIQDisabled (unless listed), Role and missing group-type
// columns are appended.
func Expand(rs *model.RowSet, p ExpandParams, logger *zap.Logger) (*model.RowSet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	layout, err := newOutputLayout(rs.Schema(), p)
	if err != nil {
		return nil, err
	}

	disabledSet := make(map[string]bool, len(p.DisableValues))
	for _, v := range p.DisableValues {
		disabledSet[strings.TrimSpace(v)] = true
	}

	groupSources := make([]int, len(p.GroupTypes))
	for i, gt := range p.GroupTypes {
		groupSources[i] = rs.Schema().Lookup(gt)
		if groupSources[i] < 0 {
			logger.Warn("group type column not found", zap.String("column", gt))
		}
	}
	adminSource := -1
	if p.AdminColumnName != "" {
		if adminSource = rs.Schema().Lookup(p.AdminColumnName); adminSource < 0 {
			logger.Warn("admin column not found", zap.String("column", p.AdminColumnName))
		}
	}
	disableSource := -1
	if p.DisableField != "" {
		if disableSource = rs.Schema().Lookup(p.DisableField); disableSource < 0 {
			logger.Warn("disable field not found", zap.String("column", p.DisableField))
		}
	}

	out := model.NewRowSet(layout.schema)
	dropped := 0
	for _, record := range rs.Records() {
		base := make([]model.Value, layout.schema.Len())
		for j, src := range layout.sourceIndex {
			if src >= 0 {
				base[j] = record.At(src)
			}
		}

		disabled := false
		if disableSource >= 0 {
			v := record.At(disableSource)
			disabled = !v.IsNull() && disabledSet[strings.TrimSpace(v.String())]
		}
		base[layout.disabledPos] = model.NewValue(strconv.FormatBool(disabled))

		if len(p.GroupTypes) == 0 {
			role := RoleUser
			if adminSource >= 0 && p.AdminColumnValue != "" {
				if v := record.At(adminSource); !v.IsNull() && strings.TrimSpace(v.String()) == p.AdminColumnValue {
					role = RoleAdmin
				}
			}
			base[layout.rolePos] = model.NewValue(role)
			if err := out.Append(base); err != nil {
				return nil, err
			}
			continue
		}

		emitted := 0
		for i, gt := range p.GroupTypes {
			src := groupSources[i]
			if src < 0 || record.At(src).IsBlank() {
				continue
			}
			pos := layout.groupPos[strings.ToLower(strings.TrimSpace(gt))]
			for _, value := range splitEntitlements(record.At(src).String(), p.GroupDelimiter) {
				row := make([]model.Value, len(base))
				copy(row, base)
				row[pos] = model.NewValue(value)
				if err := out.Append(row); err != nil {
					return nil, err
				}
				emitted++
			}
		}
		if emitted == 0 {
			dropped++
		}
	}

	if dropped > 0 {
		logger.Info("source rows without entitlements were dropped", zap.Int("rows", dropped))
	}
	return out, nil
}

// newOutputLayout resolves the output columns for p against the input schema.
func newOutputLayout(input *model.Schema, p ExpandParams) (*outputLayout, error) {
	names := dedupeFold(p.Schema)
	inferred := len(names) == 0
	if inferred {
		names = input.Names()
	}

	groupSet := make(map[string]bool, len(p.GroupTypes))
	for _, gt := range p.GroupTypes {
		groupSet[strings.ToLower(strings.TrimSpace(gt))] = true
	}
	singleRole := len(p.GroupTypes) == 0

	disabledPos := indexFold(names, DisabledColumn)
	if disabledPos < 0 && inferred && p.DisableField != "" {
		field := strings.ToLower(p.DisableField)
		replaceable := !groupSet[field] && !(singleRole && strings.EqualFold(p.DisableField, RoleColumn))
		if pos := indexFold(names, p.DisableField); pos >= 0 && replaceable {
			names[pos] = DisabledColumn
			disabledPos = pos
		}
	}
	if disabledPos < 0 {
		names = append(names, DisabledColumn)
		disabledPos = len(names) - 1
	}

	rolePos := -1
	if singleRole {
		if rolePos = indexFold(names, RoleColumn); rolePos < 0 {
			names = append(names, RoleColumn)
			rolePos = len(names) - 1
		}
	}

	groupPos := make(map[string]int, len(p.GroupTypes))
	for _, gt := range p.GroupTypes {
		key := strings.ToLower(strings.TrimSpace(gt))
		pos := indexFold(names, gt)
		if pos < 0 {
			names = append(names, strings.TrimSpace(gt))
			pos = len(names) - 1
		}
		groupPos[key] = pos
	}

	schema, err := model.NewSchema(names)
	if err != nil {
		return nil, err
	}

	sourceIndex := make([]int, len(names))
	for j, name := range names {
		switch {
		case j == disabledPos, j == rolePos, groupSet[strings.ToLower(name)]:
			sourceIndex[j] = -1
		default:
			sourceIndex[j] = input.Lookup(name)
		}
	}

	return &outputLayout{
		schema:      schema,
		sourceIndex: sourceIndex,
		disabledPos: disabledPos,
		rolePos:     rolePos,
		groupPos:    groupPos,
	}, nil
}

// splitEntitlements splits a cell by delimiter and returns the trimmed,
// non-empty values. An empty delimiter keeps the whole cell as one value.
func splitEntitlements(cell, delimiter string) []string {
	parts := []string{cell}
	if delimiter != "" {
		parts = strings.Split(cell, delimiter)
	}
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

// indexFold returns the position of name in names ignoring case, or -1.
func indexFold(names []string, name string) int {
	name = strings.TrimSpace(name)
	for i, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), name) {
			return i
		}
	}
	return -1
}

// dedupeFold keeps the first occurrence of each name ignoring case.
func dedupeFold(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" || indexFold(out, trimmed) >= 0 {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
