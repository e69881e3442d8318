package schema

import (
	"errors"
	"fmt"
)

// RuleName identifies the validation rule a row failed.
type RuleName string

const (
	RuleInvalidDateFormat RuleName = "InvalidDateFormat"
	RuleOutOfRangeValue   RuleName = "OutOfRangeValue"
	RuleTypeMismatch      RuleName = "TypeMismatch"
	RuleInvalidEnumValue  RuleName = "InvalidEnumValue"
	RuleMissingField      RuleName = "MissingField"
)

// ErrNoValidData signals that a whole source yielded zero valid rows.
// It is non-fatal at this layer; the caller decides whether to abort.
var ErrNoValidData = errors.New("no valid data")

// RowError records a single excluded row. Row is the zero-based position in
// the input batch.
type RowError struct {
	Row   int
	Field string
	Rule  RuleName
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: field %q: %s: %v", e.Row, e.Field, e.Rule, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
