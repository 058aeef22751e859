package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrSchema            = errors.New("schema error")
	ErrDataIntegrity     = errors.New("data integrity error")
	ErrMissingColumn     = errors.New("missing column")
	ErrMergeKeyCollision = errors.New("merge key collision")
)

// SchemaError reports an unrecognized dataset type or an unmappable header.
type SchemaError struct {
	Table       string
	DatasetType DatasetType
	Column      string
	Reason      string
}

func (e *SchemaError) Error() string {
	msg := "schema error"
	if e.Table != "" {
		msg += fmt.Sprintf(" in table %q", e.Table)
	}
	if e.DatasetType != "" {
		msg += fmt.Sprintf(" (dataset type %q)", e.DatasetType)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" column %q", e.Column)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// DataIntegrityError reports a structurally invalid table. Row is 1-based
// within the table's data rows, or 0 when the whole table is affected.
type DataIntegrityError struct {
	Table  string
	Column string
	Row    int
	Reason string
}

func (e *DataIntegrityError) Error() string {
	msg := "data integrity error"
	if e.Table != "" {
		msg += fmt.Sprintf(" in table %q", e.Table)
	}
	if e.Row > 0 {
		msg += fmt.Sprintf(" row %d", e.Row)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" column %q", e.Column)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *DataIntegrityError) Is(target error) bool { return target == ErrDataIntegrity }

// MissingColumnError reports a required canonical column that could not be
// located after header remapping.
type MissingColumnError struct {
	Table  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("table %q: required column %q not found", e.Table, e.Column)
}

func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn || target == ErrDataIntegrity
}

// ImputationUnresolved describes a consumption row whose hourly values were
// all missing or masked, so no row mean exists. It is reported, never returned.
type ImputationUnresolved struct {
	Row      int
	Customer string
	Date     time.Time
}

func (e ImputationUnresolved) Error() string {
	return fmt.Sprintf("row %d (customer %s, %s): no valid hourly values to impute from",
		e.Row, e.Customer, e.Date.Format("2006-01-02"))
}

// MergeKeyCollisionError reports a non-key column present in two merge inputs.
type MergeKeyCollisionError struct {
	Column string
	Left   string
	Right  string
}

func (e *MergeKeyCollisionError) Error() string {
	return fmt.Sprintf("column %q present in both %q and %q", e.Column, e.Left, e.Right)
}

func (e *MergeKeyCollisionError) Is(target error) bool { return target == ErrMergeKeyCollision }
