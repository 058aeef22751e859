// Package export persists frames and tables produced by a pipeline run.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"energy_harmonizer/internal/model"
)

// DefaultDelimiter separates fields in delimited output.
const DefaultDelimiter = ';'

// Sink persists a frame.
type Sink interface {
	Write(ctx context.Context, f model.Frame) error
}

// WriteCSV writes f as delimited text: the header first, then one line per
// row. DateTime is written as "2006-01-02 15:04:05"; missing cells are empty.
func WriteCSV(w io.Writer, f model.Frame, delimiter rune) error {
	cw := newWriter(w, delimiter)
	if err := cw.Write(f.Header()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	record := make([]string, len(f.Columns)+1)
	for i, r := range f.Rows {
		record[0] = r.DateTime.Format(model.DateTimeLayout)
		for j := range f.Columns {
			record[j+1] = ""
			if j < len(r.Values) {
				record[j+1] = r.Values[j].String()
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTable writes a source table as delimited text.
func WriteTable(w io.Writer, t model.SourceTable, delimiter rune) error {
	cw := newWriter(w, delimiter)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return nil
}

func newWriter(w io.Writer, delimiter rune) *csv.Writer {
	cw := csv.NewWriter(w)
	if delimiter != 0 {
		cw.Comma = delimiter
	}
	return cw
}

// createFile creates path and any missing parent directories.
func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, nil
}

// WriteFile writes to path through fn and closes the file, reporting the
// first error.
func WriteFile(path string, fn func(io.Writer) error) (err error) {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	if err := fn(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// CSVSink writes frames to a delimited text file.
type CSVSink struct {
	Path      string
	Delimiter rune
}

func (s CSVSink) Write(_ context.Context, f model.Frame) error {
	return WriteFile(s.Path, func(w io.Writer) error {
		return WriteCSV(w, f, s.Delimiter)
	})
}
