// Package dataset reads and writes the tabular country/year indicator data.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Column names shared by the reference data and the training data.
const (
	ColumnCountry = "Country"
	ColumnYear    = "Year"
	ColumnStatus  = "Status"
)

var ErrColumnNotFound = errors.New("column not found")

// Table is a CSV file held in memory as header plus string cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadCSV loads a CSV file. A leading UTF-8 BOM is dropped.
func ReadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return DecodeCSV(file)
}

func DecodeCSV(r io.Reader) (*Table, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("csv is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return &Table{Header: header, Rows: rows}, nil
}

// WriteCSV writes the table to path, creating the parent directory.
func (t *Table) WriteCSV(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(t.Header); err != nil {
		file.Close()
		return err
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Column returns the index of name in the header.
func (t *Table) Column(name string) (int, error) {
	for i, h := range t.Header {
		if h == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// ParseFloat parses a numeric cell. Blank and "nan" cells are NaN.
func ParseFloat(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}
