package forecast

import (
	"errors"
	"fmt"
	"time"

	"github.com/yaqeen/forecastcenter/frame"
)

var ErrIntervalOrder = errors.New("prediction interval bounds are out of order")

const (
	ColTime  = "ds"
	ColModel = "model"
	ColLo95  = "model-lo-95"
	ColLo80  = "model-lo-80"
	ColHi80  = "model-hi-80"
	ColHi95  = "model-hi-95"
)

// Columns lists the numeric columns every forecast table must carry, in the order they are
// checked and reported.
var Columns = []string{ColModel, ColLo95, ColLo80, ColHi80, ColHi95}

// Series is a point forecast with 80% and 95% prediction intervals per period.
type Series struct {
	T     []time.Time `json:"ds"`
	Model []float64   `json:"model"`
	Lo95  []float64   `json:"model-lo-95"`
	Lo80  []float64   `json:"model-lo-80"`
	Hi80  []float64   `json:"model-hi-80"`
	Hi95  []float64   `json:"model-hi-95"`
}

// Row is a single forecasted period.
type Row struct {
	T     time.Time
	Model float64
	Lo95  float64
	Lo80  float64
	Hi80  float64
	Hi95  float64
}

// FromFrame reads the ds column and the five forecast columns of a frame. A blank frame
// reads as an empty series.
func FromFrame(f *frame.Frame) (*Series, error) {
	if f.Blank() {
		return NewSeries(nil), nil
	}
	if err := f.Require(append([]string{ColTime}, Columns...)...); err != nil {
		return nil, err
	}
	t, err := f.Times(ColTime)
	if err != nil {
		return nil, err
	}

	vals := make([][]float64, len(Columns))
	for i, col := range Columns {
		vals[i], err = f.Floats(col)
		if err != nil {
			return nil, err
		}
	}

	return &Series{
		T:     t,
		Model: vals[0],
		Lo95:  vals[1],
		Lo80:  vals[2],
		Hi80:  vals[3],
		Hi95:  vals[4],
	}, nil
}

// NewSeries builds a series from rows.
func NewSeries(rows []Row) *Series {
	s := &Series{
		T:     make([]time.Time, len(rows)),
		Model: make([]float64, len(rows)),
		Lo95:  make([]float64, len(rows)),
		Lo80:  make([]float64, len(rows)),
		Hi80:  make([]float64, len(rows)),
		Hi95:  make([]float64, len(rows)),
	}
	for i, r := range rows {
		s.T[i] = r.T
		s.Model[i] = r.Model
		s.Lo95[i] = r.Lo95
		s.Lo80[i] = r.Lo80
		s.Hi80[i] = r.Hi80
		s.Hi95[i] = r.Hi95
	}
	return s
}

// Len returns the number of forecasted periods.
func (s *Series) Len() int {
	return len(s.T)
}

// Row returns the i-th forecasted period.
func (s *Series) Row(i int) Row {
	return Row{
		T:     s.T[i],
		Model: s.Model[i],
		Lo95:  s.Lo95[i],
		Lo80:  s.Lo80[i],
		Hi80:  s.Hi80[i],
		Hi95:  s.Hi95[i],
	}
}

// Ordered reports whether lo95 <= lo80 <= model <= hi80 <= hi95. Any NaN bound fails.
func (r Row) Ordered() bool {
	return r.Lo95 <= r.Lo80 &&
		r.Lo80 <= r.Model &&
		r.Model <= r.Hi80 &&
		r.Hi80 <= r.Hi95
}

// Validate returns ErrIntervalOrder for the first row whose bounds are out of order.
// Composing a chart does not call this; loaders opt in.
func (s *Series) Validate() error {
	for i := 0; i < s.Len(); i++ {
		if !s.Row(i).Ordered() {
			return fmt.Errorf("row %d at %s, %w", i, s.T[i].Format(time.DateOnly), ErrIntervalOrder)
		}
	}
	return nil
}
