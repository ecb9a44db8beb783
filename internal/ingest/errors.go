package ingest

import (
	"fmt"
	"strings"
)

// SchemaError reports required report columns that are absent.
// It is fatal for the whole normalization or classification call.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// NormalizationError reports a percentage field that could not be parsed.
// Row is the 1-based data row (header excluded).
type NormalizationError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *NormalizationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("row %d: %s is empty", e.Row, e.Column)
	}
	return fmt.Sprintf("row %d: %s=%q is not a percentage: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }
