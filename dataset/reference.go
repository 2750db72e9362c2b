package dataset

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
)

// Record is one (country, year) row of the reference data.
type Record struct {
	Country string
	Year    int
	Status  string
	Values  map[string]float64
}

// Value returns the numeric column name, reporting whether the column exists.
func (r Record) Value(name string) (float64, bool) {
	v, ok := r.Values[name]
	return v, ok
}

type recordKey struct {
	country string
	year    int
}

// Reference is the read-only lookup table behind the prediction service.
type Reference struct {
	columns   []string
	records   map[recordKey]Record
	countries []string
}

// LoadReference reads the reference CSV at path.
func LoadReference(path string) (*Reference, error) {
	table, err := ReadCSV(path)
	if err != nil {
		return nil, fmt.Errorf("load reference %s: %w", path, err)
	}
	return NewReference(table)
}

// NewReference indexes table by country and year. When the same key
// appears twice the first row wins. Non-numeric cells outside the
// country, year and status columns are an error.
func NewReference(table *Table) (*Reference, error) {
	countryIdx, err := table.Column(ColumnCountry)
	if err != nil {
		return nil, err
	}
	yearIdx, err := table.Column(ColumnYear)
	if err != nil {
		return nil, err
	}
	statusIdx, _ := table.Column(ColumnStatus)

	ref := &Reference{
		records: make(map[recordKey]Record, len(table.Rows)),
	}
	for i, name := range table.Header {
		if i == countryIdx || i == statusIdx {
			continue
		}
		ref.columns = append(ref.columns, name)
	}

	countries := make([]string, 0, len(table.Rows))
	for rowNum, row := range table.Rows {
		if len(row) != len(table.Header) {
			return nil, fmt.Errorf("row %d: expected %d cells, got %d", rowNum+1, len(table.Header), len(row))
		}
		year, err := ParseFloat(row[yearIdx])
		if err != nil || math.IsNaN(year) {
			return nil, fmt.Errorf("row %d: invalid year %q", rowNum+1, row[yearIdx])
		}

		record := Record{
			Country: row[countryIdx],
			Year:    int(year),
			Values:  make(map[string]float64, len(ref.columns)),
		}
		if statusIdx >= 0 {
			record.Status = row[statusIdx]
		}
		for i, cell := range row {
			if i == countryIdx || i == statusIdx {
				continue
			}
			value, err := ParseFloat(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", rowNum+1, table.Header[i], err)
			}
			record.Values[table.Header[i]] = value
		}

		key := recordKey{country: record.Country, year: record.Year}
		if _, exists := ref.records[key]; !exists {
			ref.records[key] = record
		}
		countries = append(countries, record.Country)
	}

	ref.countries = lo.Uniq(countries)
	sort.Strings(ref.countries)
	return ref, nil
}

// Lookup returns the record for country in year.
func (r *Reference) Lookup(country string, year int) (Record, bool) {
	record, ok := r.records[recordKey{country: country, year: year}]
	return record, ok
}

// Countries returns the sorted distinct countries across all years.
func (r *Reference) Countries() []string {
	return append([]string(nil), r.countries...)
}

// HasColumn reports whether name is a numeric column of the reference data.
func (r *Reference) HasColumn(name string) bool {
	return lo.Contains(r.columns, name)
}

func (r *Reference) Len() int {
	return len(r.records)
}
