package dataset

import (
	"fmt"
	"math"

	"github.com/samber/lo"
)

// Matrix is the numeric view of a table used for training.
type Matrix struct {
	// Names lists feature columns in header order.
	Names []string
	X     [][]float64
	Y     []float64
	// Skipped counts rows dropped because a cell was blank.
	Skipped int
}

// Matrix splits the table into features and label. Every column other than
// target and drop must be numeric.
func (t *Table) Matrix(target string, drop []string) (*Matrix, error) {
	targetIdx, err := t.Column(target)
	if err != nil {
		return nil, err
	}

	featureIdx := make([]int, 0, len(t.Header))
	names := make([]string, 0, len(t.Header))
	for i, name := range t.Header {
		if name == target || lo.Contains(drop, name) {
			continue
		}
		featureIdx = append(featureIdx, i)
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no feature columns left after dropping %v", drop)
	}

	m := &Matrix{
		Names: names,
		X:     make([][]float64, 0, len(t.Rows)),
		Y:     make([]float64, 0, len(t.Rows)),
	}
	for rowNum, row := range t.Rows {
		if len(row) != len(t.Header) {
			return nil, fmt.Errorf("row %d: expected %d cells, got %d", rowNum+1, len(t.Header), len(row))
		}
		label, err := ParseFloat(row[targetIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d column %q: %w", rowNum+1, target, err)
		}

		features := make([]float64, len(featureIdx))
		complete := !math.IsNaN(label)
		for j, idx := range featureIdx {
			value, err := ParseFloat(row[idx])
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", rowNum+1, t.Header[idx], err)
			}
			if math.IsNaN(value) {
				complete = false
			}
			features[j] = value
		}
		if !complete {
			m.Skipped++
			continue
		}
		m.X = append(m.X, features)
		m.Y = append(m.Y, label)
	}
	if len(m.X) == 0 {
		return nil, fmt.Errorf("no complete rows in %d", len(t.Rows))
	}
	return m, nil
}
