package frame

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrMissingColumn = errors.New("missing column")
	ErrMalformed     = errors.New("malformed data file")
	ErrColumnType    = errors.New("column has unexpected type")
	ErrColumnLen     = errors.New("column has a different length than the frame")
	ErrColumnExists  = errors.New("column already exists in frame")
)

// MissingColumnError names the column a caller required but the frame does not hold.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s %q", ErrMissingColumn, e.Column)
}

func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

// Kind is the storage type of a column.
type Kind int

const (
	KindFloat Kind = iota
	KindTime
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindTime:
		return "time"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

type column struct {
	kind    Kind
	floats  []float64
	times   []time.Time
	strings []string
}

// Frame is an ordered, column-oriented table. Every column has the same number of rows.
// A Frame is not modified after it is decoded and can be shared between readers.
type Frame struct {
	names []string
	cols  map[string]*column
	n     int
}

// New returns an empty frame with n rows.
func New(n int) *Frame {
	return &Frame{
		cols: make(map[string]*column),
		n:    n,
	}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return f.n
}

// Names returns the column names in insertion order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.names))
	copy(names, f.names)
	return names
}

// Blank reports whether the frame has neither rows nor columns. An empty table written
// in records orientation decodes this way, since "[]" carries no column names.
func (f *Frame) Blank() bool {
	return f.n == 0 && len(f.names) == 0
}

// Has reports whether the frame has a column with the given name.
func (f *Frame) Has(name string) bool {
	_, exists := f.cols[name]
	return exists
}

// Require returns a MissingColumnError for the first name not present in the frame.
func (f *Frame) Require(names ...string) error {
	for _, name := range names {
		if !f.Has(name) {
			return &MissingColumnError{Column: name}
		}
	}
	return nil
}

func (f *Frame) add(name string, col *column, n int) error {
	if _, exists := f.cols[name]; exists {
		return fmt.Errorf("%q, %w", name, ErrColumnExists)
	}
	if n != f.n {
		return fmt.Errorf(
			"column %q has length of %d, but frame has a length of %d, %w",
			name, n, f.n, ErrColumnLen,
		)
	}
	f.names = append(f.names, name)
	f.cols[name] = col
	return nil
}

// AddFloats appends a numeric column. The slice is copied.
func (f *Frame) AddFloats(name string, vals []float64) error {
	v := make([]float64, len(vals))
	copy(v, vals)
	return f.add(name, &column{kind: KindFloat, floats: v}, len(v))
}

// AddTimes appends a temporal column. The slice is copied.
func (f *Frame) AddTimes(name string, vals []time.Time) error {
	v := make([]time.Time, len(vals))
	copy(v, vals)
	return f.add(name, &column{kind: KindTime, times: v}, len(v))
}

// AddStrings appends a string column. The slice is copied.
func (f *Frame) AddStrings(name string, vals []string) error {
	v := make([]string, len(vals))
	copy(v, vals)
	return f.add(name, &column{kind: KindString, strings: v}, len(v))
}

// Floats returns a copy of a numeric column.
func (f *Frame) Floats(name string) ([]float64, error) {
	col, exists := f.cols[name]
	if !exists {
		return nil, &MissingColumnError{Column: name}
	}
	if col.kind != KindFloat {
		return nil, fmt.Errorf("%q is %s, %w", name, col.kind, ErrColumnType)
	}
	out := make([]float64, len(col.floats))
	copy(out, col.floats)
	return out, nil
}

// Times returns a copy of a temporal column. Numeric columns are read as epoch
// milliseconds, which is how pandas serializes datetime columns to JSON by default.
func (f *Frame) Times(name string) ([]time.Time, error) {
	col, exists := f.cols[name]
	if !exists {
		return nil, &MissingColumnError{Column: name}
	}
	switch col.kind {
	case KindTime:
		out := make([]time.Time, len(col.times))
		copy(out, col.times)
		return out, nil
	case KindFloat:
		out := make([]time.Time, len(col.floats))
		for i, ms := range col.floats {
			if math.IsNaN(ms) {
				return nil, fmt.Errorf("%q has null time at row %d, %w", name, i, ErrColumnType)
			}
			out[i] = time.UnixMilli(int64(ms)).UTC()
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%q is %s, %w", name, col.kind, ErrColumnType)
	}
}
