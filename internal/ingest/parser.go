// Package ingest reads delimited source extracts into model.SourceTable values.
// It handles byte encodings, delimiters and archive preambles; it never
// interprets column contents.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"energy_harmonizer/internal/model"
)

// Source is the caller-supplied provenance of one extract.
type Source struct {
	ID        string
	Type      model.DatasetType
	Year      int
	Parameter string
}

// Parser reads one extract and returns it as a source table.
type Parser interface {
	Parse(r io.Reader, src Source) (model.SourceTable, error)
}

// TableParser parses a delimited file whose first line is the header.
//
// Expected format (delimiter configurable):
//
//	CUSTOMER;AREA;ISPRIVATEPERSON;DATE;HOUR_0;...;HOUR_23
//	1001;Stensö;1;2021-01-01;0.012;...;0.009
type TableParser struct {
	// Delimiter separates fields. Zero means ','.
	Delimiter rune
	// Encoding names the byte encoding, see Decode.
	Encoding string
	// HeaderMarkers, when set, skips preamble lines until a line holding
	// one of these cells is found; that line is the header.
	HeaderMarkers []string
}

func NewTableParser(delimiter rune, encoding string) *TableParser {
	return &TableParser{Delimiter: delimiter, Encoding: encoding}
}

func (p *TableParser) Parse(r io.Reader, src Source) (model.SourceTable, error) {
	decoded, err := Decode(r, p.Encoding)
	if err != nil {
		return model.SourceTable{}, err
	}

	cr := csv.NewReader(decoded)
	if p.Delimiter != 0 {
		cr.Comma = p.Delimiter
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, lineNum, err := p.readHeader(cr)
	if err != nil {
		return model.SourceTable{}, fmt.Errorf("%s: %w", src.ID, err)
	}
	if err := validateHeader(header); err != nil {
		return model.SourceTable{}, &model.SchemaError{Table: src.ID, DatasetType: src.Type, Reason: err.Error()}
	}

	table := model.SourceTable{
		ID:        src.ID,
		Type:      src.Type,
		Year:      src.Year,
		Parameter: src.Parameter,
		Header:    header,
	}
	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.SourceTable{}, fmt.Errorf("%s: reading CSV line %d: %w", src.ID, lineNum, err)
		}
		if blank(record) {
			continue
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}

var errHeaderNotFound = errors.New("header row not found")

func (p *TableParser) readHeader(cr *csv.Reader) ([]string, int, error) {
	lineNum := 0
	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			if len(p.HeaderMarkers) > 0 {
				return nil, lineNum, fmt.Errorf("%w (looked for %s)", errHeaderNotFound, strings.Join(p.HeaderMarkers, ", "))
			}
			return nil, lineNum, fmt.Errorf("reading CSV header: %w", io.ErrUnexpectedEOF)
		}
		if err != nil {
			return nil, lineNum, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}
		if len(record) > 0 {
			record[0] = strings.TrimPrefix(record[0], "\ufeff")
		}
		if len(p.HeaderMarkers) == 0 || hasMarker(record, p.HeaderMarkers) {
			return record, lineNum, nil
		}
	}
}

func hasMarker(record, markers []string) bool {
	for _, cell := range record {
		cell = strings.TrimSpace(cell)
		for _, m := range markers {
			if cell == m {
				return true
			}
		}
	}
	return false
}

func validateHeader(header []string) error {
	named := 0
	for _, h := range header {
		if strings.TrimSpace(h) != "" {
			named++
		}
	}
	if named < 2 {
		return fmt.Errorf("expected at least 2 named columns, got %d", named)
	}
	return nil
}

func blank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ReadFile opens path and parses it. An empty src.ID defaults to path.
func ReadFile(path string, p Parser, src Source) (model.SourceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.SourceTable{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if src.ID == "" {
		src.ID = path
	}
	return p.Parse(f, src)
}
