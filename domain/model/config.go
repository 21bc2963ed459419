package model

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const (
	// defaultHeaderRow is the 1-based row holding column names
	defaultHeaderRow = 1
	// defaultSheetNumber is the 1-based worksheet read from spreadsheets
	defaultSheetNumber = 1
	// defaultFileDelimiter separates fields in CSV and TXT inputs
	defaultFileDelimiter = ","
)

// AppConfig is the per-folder config.json. Missing fields decode to
// no-op values; Normalize fills the few non-zero defaults.
type AppConfig struct {
	SourceID           string     `json:"sourceID"`
	DisableField       string     `json:"disableField"`
	DisableValue       StringList `json:"disableValue"`
	GroupTypes         StringList `json:"groupTypes"`
	GroupDelimiter     string     `json:"groupDelimiter"`
	HeaderRow          FlexInt    `json:"headerRow"`
	TrimTopRows        FlexInt    `json:"trimTopRows"`
	TrimBottomRows     FlexInt    `json:"trimBottomRows"`
	TrimLeftColumns    FlexInt    `json:"trimLeftColumns"`
	TrimRightColumns   FlexInt    `json:"trimRightColumns"`
	DropColumns        StringList `json:"dropColumns"`
	ColumnsToMerge     StringList `json:"columnsToMerge"`
	MergedColumnName   string     `json:"mergedColumnName"`
	AdminColumnName    string     `json:"adminColumnName"`
	AdminColumnValue   string     `json:"adminColumnValue"`
	BooleanColumnList  StringList `json:"booleanColumnList"`
	BooleanColumnValue string     `json:"booleanColumnValue"`
	Schema             StringList `json:"schema"`
	SheetNumber        FlexInt    `json:"sheetNumber"`
	IsUpload           FlexBool   `json:"isUpload"`
	// IsMonarch reads the input from the Monarch subdirectory of the folder.
	IsMonarch FlexBool `json:"isMonarch"`
	// FileDelimiter is the CSV/TXT field separator, "," when unset.
	FileDelimiter string `json:"fileDelimiter"`
}

// LoadAppConfig reads, normalizes and validates a config.json file.
func LoadAppConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Folder config path comes from the configured root
	if err != nil {
		return nil, err
	}
	cfg, err := ParseAppConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseAppConfig decodes config.json content.
func ParseAppConfig(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize trims names and fills defaults for unset fields.
func (c *AppConfig) Normalize() {
	c.SourceID = strings.TrimSpace(c.SourceID)
	c.DisableField = strings.TrimSpace(c.DisableField)
	c.MergedColumnName = strings.TrimSpace(c.MergedColumnName)
	c.AdminColumnName = strings.TrimSpace(c.AdminColumnName)
	if c.HeaderRow == 0 {
		c.HeaderRow = defaultHeaderRow
	}
	if c.SheetNumber == 0 {
		c.SheetNumber = defaultSheetNumber
	}
	if c.FileDelimiter == "" {
		c.FileDelimiter = defaultFileDelimiter
	}
}

// Validate rejects values no pipeline stage can work with.
func (c *AppConfig) Validate() error {
	ints := []struct {
		name  string
		value FlexInt
	}{
		{"headerRow", c.HeaderRow},
		{"trimTopRows", c.TrimTopRows},
		{"trimBottomRows", c.TrimBottomRows},
		{"trimLeftColumns", c.TrimLeftColumns},
		{"trimRightColumns", c.TrimRightColumns},
		{"sheetNumber", c.SheetNumber},
	}
	for _, v := range ints {
		if v.value < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %d", ErrInvalidConfig, v.name, v.value)
		}
	}
	if c.HeaderRow < 1 {
		return fmt.Errorf("%w: headerRow must be at least 1", ErrInvalidConfig)
	}
	if c.SheetNumber < 1 {
		return fmt.Errorf("%w: sheetNumber must be at least 1", ErrInvalidConfig)
	}
	if c.IsUpload.Bool() && c.SourceID == "" {
		return fmt.Errorf("%w: sourceID is required when isUpload is true", ErrInvalidConfig)
	}
	if len([]rune(c.FileDelimiter)) != 1 {
		return fmt.Errorf("%w: fileDelimiter must be a single character, got %q", ErrInvalidConfig, c.FileDelimiter)
	}
	return nil
}

// Delimiter returns the CSV/TXT field separator rune.
func (c *AppConfig) Delimiter() rune {
	return []rune(c.FileDelimiter)[0]
}

// BooleanMode reports whether flag columns are collapsed into Role.
func (c *AppConfig) BooleanMode() bool {
	return len(c.BooleanColumnList) > 0 && c.BooleanColumnValue != ""
}
