// Package schema coerces and validates raw tabular rows against typed
// per-source schemas. Validation never aborts a whole batch: bad rows are
// excluded and reported, good rows pass through as typed records.
package schema

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the only accepted textual date format.
const DateLayout = "2006-01-02"

// Kind is the target type a field is coerced to.
type Kind int

const (
	KindText Kind = iota
	KindDate
	KindFloat
	KindInt
	KindEnum
)

// Row is one untyped input row keyed by source column header.
type Row map[string]string

// Record is one validated row keyed by field name, holding typed values
// (string, time.Time, float64, int).
type Record map[string]any

// RuleFunc checks a coerced value and returns the violated rule, if any.
type RuleFunc func(v any) (RuleName, error)

// Field describes one column of a source schema. Column is the input header,
// Name the output key on the typed record.
type Field struct {
	Column   string
	Name     string
	Kind     Kind
	Required bool
	Enum     []string // accepted literals for KindEnum, matched case-insensitively
	Rules    []RuleFunc
}

// Schema is a typed per-source schema descriptor. Unknown input columns are
// ignored.
type Schema struct {
	Name   string
	Fields []Field
	logger *slog.Logger
}

// New creates a schema. A nil logger discards output.
func New(name string, fields []Field, logger *slog.Logger) *Schema {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Schema{Name: name, Fields: fields, logger: logger}
}

// Validate coerces every row against the schema. Rows that fully satisfy it
// become typed records; the rest are excluded and reported as RowErrors.
// When no row survives, a zero-row input included, err is ErrNoValidData:
// a header-only export is as empty as one whose rows all fail.
func (s *Schema) Validate(rows []Row) (records []Record, rowErrs []*RowError, err error) {
	for i, row := range rows {
		rec, rerr := s.validateRow(i, row)
		if rerr != nil {
			s.logger.Warn("row excluded by validation",
				"schema", s.Name, "row", rerr.Row, "field", rerr.Field, "rule", string(rerr.Rule))
			rowErrs = append(rowErrs, rerr)
			continue
		}
		records = append(records, rec)
	}

	s.logger.Info("batch validated",
		"schema", s.Name, "total", len(rows), "valid", len(records), "excluded", len(rowErrs))

	if len(records) == 0 {
		return nil, rowErrs, fmt.Errorf("%s: %w", s.Name, ErrNoValidData)
	}
	return records, rowErrs, nil
}

func (s *Schema) validateRow(idx int, row Row) (Record, *RowError) {
	rec := make(Record, len(s.Fields))
	for _, f := range s.Fields {
		raw, ok := row[f.Column]
		if !ok || strings.TrimSpace(raw) == "" {
			if f.Required {
				return nil, &RowError{Row: idx, Field: f.Column, Rule: RuleMissingField,
					Err: fmt.Errorf("required field is missing or empty")}
			}
			rec[f.Name] = ""
			continue
		}

		v, rule, err := coerce(f, raw)
		if err != nil {
			return nil, &RowError{Row: idx, Field: f.Column, Rule: rule, Err: err}
		}

		for _, r := range f.Rules {
			if rule, err := r(v); err != nil {
				return nil, &RowError{Row: idx, Field: f.Column, Rule: rule, Err: err}
			}
		}
		rec[f.Name] = v
	}
	return rec, nil
}

// coerce converts a raw string to the field's target type.
func coerce(f Field, raw string) (any, RuleName, error) {
	switch f.Kind {
	case KindText:
		return raw, "", nil

	case KindDate:
		t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
		if err != nil {
			return nil, RuleInvalidDateFormat,
				fmt.Errorf("invalid date format: %q, expected YYYY-MM-DD", raw)
		}
		return t, "", nil

	case KindFloat:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, RuleTypeMismatch, fmt.Errorf("not a number: %q", raw)
		}
		return v, "", nil

	case KindInt:
		// A real number is accepted only when it has no fractional part,
		// so "8.0" coerces to 8 while "8.5" is a mismatch.
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, RuleTypeMismatch, fmt.Errorf("not a number: %q", raw)
		}
		if v != math.Trunc(v) {
			return nil, RuleTypeMismatch, fmt.Errorf("%q has a fractional part, expected an integer", raw)
		}
		return int(v), "", nil

	case KindEnum:
		norm := strings.ToLower(strings.TrimSpace(raw))
		for _, lit := range f.Enum {
			if norm == strings.ToLower(lit) {
				return raw, "", nil
			}
		}
		return nil, RuleInvalidEnumValue,
			fmt.Errorf("value %q not in %v", raw, f.Enum)

	default:
		return nil, RuleTypeMismatch, fmt.Errorf("unknown field kind %d", f.Kind)
	}
}

// NonNegative is a rule for hours-like numeric fields.
func NonNegative(v any) (RuleName, error) {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return RuleOutOfRangeValue, fmt.Errorf("must be non-negative, got %v", n)
		}
	case int:
		if n < 0 {
			return RuleOutOfRangeValue, fmt.Errorf("must be non-negative, got %d", n)
		}
	}
	return "", nil
}
