package csvimport

import (
	"errors"
	"fmt"
)

// File level import errors
var (
	ErrEmptyFile           = errors.New("CSV file is empty")
	ErrInvalidEncoding     = errors.New("file is not valid UTF-8")
	ErrUnsupportedEncoding = errors.New("unsupported file encoding")
	ErrMissingHeader       = errors.New("CSV file missing header row")
	ErrInvalidHeader       = errors.New("invalid CSV header")
	ErrNoDataRows          = errors.New("CSV file contains no data rows")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrTooManyRows         = errors.New("file exceeds maximum allowed rows")
)

// RowError is a failure confined to one data row
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

// Error renders as "row N: message"
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowError creates a new RowError
func NewRowError(row int, column, message string) RowError {
	return RowError{Row: row, Column: column, Message: message}
}

// ErrorCollection keeps row errors up to a limit while counting all of them
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a new ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0),
		maxErrors: maxErrors,
	}
}

// Add adds an error to the collection
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// Errors returns the retained errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// Messages returns the retained errors rendered as strings
func (ec *ErrorCollection) Messages() []string {
	out := make([]string, len(ec.errors))
	for i, e := range ec.errors {
		out[i] = e.Error()
	}
	return out
}

// TotalCount returns every error added, retained or not
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// IsTruncated returns true if errors were dropped
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > len(ec.errors)
}
