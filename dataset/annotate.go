package dataset

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"
)

// AnnotateOptions configures the synthetic target column.
type AnnotateOptions struct {
	Column string
	// Min is inclusive, Max exclusive.
	Min int
	Max int
	// Seed of 0 draws from the clock.
	Seed int64
}

// WithTarget returns a copy of t with one extra column holding an integer
// drawn independently per row from [Min, Max). t is left untouched.
func WithTarget(t *Table, opts AnnotateOptions) (*Table, error) {
	if opts.Column == "" {
		return nil, errors.New("target column is required")
	}
	if opts.Max <= opts.Min {
		return nil, fmt.Errorf("invalid target range [%d, %d)", opts.Min, opts.Max)
	}
	if _, err := t.Column(opts.Column); err == nil {
		return nil, fmt.Errorf("column %q already present", opts.Column)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(seed))

	out := &Table{
		Header: append(append([]string(nil), t.Header...), opts.Column),
		Rows:   make([][]string, len(t.Rows)),
	}
	span := opts.Max - opts.Min
	for i, row := range t.Rows {
		value := opts.Min + rnd.Intn(span)
		out.Rows[i] = append(append(make([]string, 0, len(row)+1), row...), strconv.Itoa(value))
	}
	return out, nil
}

// Annotate reads input, adds the synthetic target and writes output.
// It returns the number of rows written.
func Annotate(input, output string, opts AnnotateOptions) (int, error) {
	if input == output {
		return 0, errors.New("output must differ from input")
	}
	table, err := ReadCSV(input)
	if err != nil {
		return 0, err
	}
	annotated, err := WithTarget(table, opts)
	if err != nil {
		return 0, err
	}
	if err := annotated.WriteCSV(output); err != nil {
		return 0, fmt.Errorf("write %s: %w", output, err)
	}
	return annotated.Len(), nil
}
