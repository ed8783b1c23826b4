// Package importer parses product bulk import files (CSV and JSON).
package importer

import (
	"errors"
	"fmt"
)

// Import error codes
const (
	ErrCodeInvalidFile     = "ERR_IMPORT_INVALID_FILE"
	ErrCodeEmptyFile       = "ERR_IMPORT_EMPTY_FILE"
	ErrCodeInvalidEncoding = "ERR_IMPORT_INVALID_ENCODING"
	ErrCodeMissingHeader   = "ERR_IMPORT_MISSING_HEADER"
	ErrCodeMalformedRow    = "ERR_IMPORT_MALFORMED_ROW"
	ErrCodeRequiredField   = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeInvalidValue    = "ERR_IMPORT_INVALID_VALUE"
)

// Common import errors
var (
	// ErrEmptyFile is returned when the import file is empty
	ErrEmptyFile = errors.New("import file is empty")

	// ErrInvalidEncoding is returned when the file is not valid UTF-8
	ErrInvalidEncoding = errors.New("invalid file encoding")

	// ErrMissingHeader is returned when a CSV file has no header row
	ErrMissingHeader = errors.New("CSV file missing header row")

	// ErrNoDataRows is returned when the file has no data rows
	ErrNoDataRows = errors.New("import file contains no data rows")
)

// RowError represents an error in a specific row
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowError creates a new RowError
func NewRowError(row int, column, code, message string) RowError {
	return RowError{
		Row:     row,
		Column:  column,
		Code:    code,
		Message: message,
	}
}
