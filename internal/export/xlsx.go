package export

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"energy_harmonizer/internal/model"
)

// DefaultSheet is the sheet name of XLSX output.
const DefaultSheet = "harmonized"

var ErrTooManyRows = errors.New("frame exceeds the worksheet row limit")

// WriteXLSX streams f into a single-sheet workbook. Numbers are written as
// numbers, missing cells are left empty.
func WriteXLSX(w io.Writer, f model.Frame, sheet string) error {
	if f.Len()+1 > excelize.TotalRows {
		return fmt.Errorf("%w: %d rows", ErrTooManyRows, f.Len())
	}
	if sheet == "" {
		sheet = DefaultSheet
	}

	book := excelize.NewFile()
	defer book.Close()
	if err := book.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	sw, err := book.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	header := f.Header()
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := sw.SetRow("A1", cells); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, r := range f.Rows {
		cells := make([]interface{}, len(header))
		cells[0] = r.DateTime.Format(model.DateTimeLayout)
		for j := range f.Columns {
			if j < len(r.Values) {
				cells[j+1] = r.Values[j].Interface()
			}
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(axis, cells); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return book.Write(w)
}

// XLSXSink writes frames to a workbook file.
type XLSXSink struct {
	Path  string
	Sheet string
}

func (s XLSXSink) Write(_ context.Context, f model.Frame) error {
	return WriteFile(s.Path, func(w io.Writer) error {
		return WriteXLSX(w, f, s.Sheet)
	})
}
