// Package model provides the tabular domain model and configuration types for feedprep.
package model

import "errors"

var (
	// ErrDuplicateColumnName is returned when a file contains duplicate column names
	ErrDuplicateColumnName = errors.New("duplicate column name")

	// ErrSchemaMismatch is returned when a row does not have one value per schema column
	ErrSchemaMismatch = errors.New("row width does not match schema")

	// ErrInvalidConfig is returned when config.json or settings are malformed or out of range
	ErrInvalidConfig = errors.New("invalid configuration")
)
