package feedprep

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShape_RowTrims(t *testing.T) {
	t.Parallel()

	header := []string{"A", "B"}
	rows := [][]string{{"1", "x"}, {"2", "y"}, {"3", "z"}, {"4", "w"}}

	tests := []struct {
		name     string
		params   ShapeParams
		wantRows [][]string
		wantWarn bool
	}{
		{
			name:     "top and bottom",
			params:   ShapeParams{TrimTopRows: 1, TrimBottomRows: 1},
			wantRows: [][]string{{"2", "y"}, {"3", "z"}},
		},
		{
			name:     "bottom equal to count is skipped",
			params:   ShapeParams{TrimBottomRows: 4},
			wantRows: rows,
			wantWarn: true,
		},
		{
			name:     "bottom larger than count is skipped",
			params:   ShapeParams{TrimBottomRows: 10},
			wantRows: rows,
			wantWarn: true,
		},
		{
			name:     "top equal to count is skipped",
			params:   ShapeParams{TrimTopRows: 4},
			wantRows: rows,
			wantWarn: true,
		},
		{
			name:     "bottom applies after top",
			params:   ShapeParams{TrimTopRows: 2, TrimBottomRows: 2},
			wantRows: [][]string{{"3", "z"}, {"4", "w"}},
			wantWarn: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			logger, logs := observedLogger()
			rs := mustRowSet(t, header, rows...)

			got := Shape(rs, tt.params, logger)

			assert.Equal(t, tt.wantRows, got.Strings())
			assert.Equal(t, tt.wantWarn, containsMessage(warnings(logs), "not smaller than the record count"))
			assert.Equal(t, 4, rs.Len(), "input must not be modified")
		})
	}
}

func TestShape_ColumnTrims(t *testing.T) {
	t.Parallel()

	header := []string{"A", "B", "C", "D"}
	row := []string{"a", "b", "c", "d"}

	tests := []struct {
		name        string
		params      ShapeParams
		wantColumns []string
		wantWarn    bool
	}{
		{
			name:        "right then left",
			params:      ShapeParams{TrimLeftColumns: 1, TrimRightColumns: 1},
			wantColumns: []string{"B", "C"},
		},
		{
			name:        "right trim out of range is skipped",
			params:      ShapeParams{TrimRightColumns: 4},
			wantColumns: header,
			wantWarn:    true,
		},
		{
			name:        "left trim uses width left by right trim",
			params:      ShapeParams{TrimRightColumns: 2, TrimLeftColumns: 2},
			wantColumns: []string{"A", "B"},
			wantWarn:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			logger, logs := observedLogger()

			got := Shape(mustRowSet(t, header, row), tt.params, logger)

			assert.Equal(t, tt.wantColumns, got.Columns())
			assert.Equal(t, tt.wantWarn, containsMessage(warnings(logs), "not smaller than the column count"))
		})
	}
}

func TestShape_Merge(t *testing.T) {
	t.Parallel()

	t.Run("joins non-empty values and drops sources", func(t *testing.T) {
		t.Parallel()
		rs := mustRowSet(t, []string{"Id", "First", "Middle", "Last"},
			[]string{"1", "Ann", "", "Lee"},
			[]string{"2", "Bo", "K", "Ng"},
		)
		got := Shape(rs, ShapeParams{
			ColumnsToMerge:   []string{"First", "Middle", "Last"},
			MergedColumnName: "FullName",
		}, nil)

		assert.Equal(t, []string{"Id", "FullName"}, got.Columns())
		assert.Equal(t, [][]string{{"1", "Ann - Lee"}, {"2", "Bo - K - Ng"}}, got.Strings())
	})

	t.Run("missing source column is warned and skipped", func(t *testing.T) {
		t.Parallel()
		logger, logs := observedLogger()
		rs := mustRowSet(t, []string{"First", "Last"}, []string{"Ann", "Lee"})

		got := Shape(rs, ShapeParams{
			ColumnsToMerge:   []string{"First", "Nickname"},
			MergedColumnName: "Name",
		}, logger)

		assert.Equal(t, []string{"Last", "Name"}, got.Columns())
		assert.Equal(t, [][]string{{"Lee", "Ann"}}, got.Strings())
		assert.Contains(t, warnings(logs), "merge column not found")
	})

	t.Run("unconfigured merge is warned", func(t *testing.T) {
		t.Parallel()
		logger, logs := observedLogger()
		rs := mustRowSet(t, []string{"A"}, []string{"1"})

		got := Shape(rs, ShapeParams{ColumnsToMerge: []string{"A"}}, logger)

		assert.True(t, containsMessage(warnings(logs), "column merge skipped"))
		// Merge sources are still part of the drop set.
		assert.Empty(t, got.Columns())
	})
}

func TestShape_Drop(t *testing.T) {
	t.Parallel()

	t.Run("case-insensitive", func(t *testing.T) {
		t.Parallel()
		rs := mustRowSet(t, []string{"Name", "EMAIL", "Phone"}, []string{"a", "b", "c"})

		got := Shape(rs, ShapeParams{DropColumns: []string{"email", " phone "}}, nil)

		assert.Equal(t, []string{"Name"}, got.Columns())
		assert.Equal(t, [][]string{{"a"}}, got.Strings())
	})

	t.Run("nothing matched is warned", func(t *testing.T) {
		t.Parallel()
		logger, logs := observedLogger()
		rs := mustRowSet(t, []string{"Name"}, []string{"a"})

		got := Shape(rs, ShapeParams{DropColumns: []string{"Email"}}, logger)

		assert.Equal(t, []string{"Name"}, got.Columns())
		assert.Contains(t, warnings(logs), "no columns matched the drop list")
	})
}

func containsMessage(messages []string, substr string) bool {
	for _, m := range messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}
