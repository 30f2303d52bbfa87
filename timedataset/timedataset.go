package timedataset

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/yaqeen/forecastcenter/frame"
)

var (
	ErrNonMontonic        = errors.New("time feature is not monotonic")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
	ErrNaNObservation     = errors.New("observation is NaN")
)

const (
	// ColTime is the column holding the period of each observation.
	ColTime = "ds"
	// ColValue is the column holding the observed value.
	ColValue = "y"
)

// TimeDataset represents a historical series storing a slice of time points and observed
// values. Both must be of the same length. An empty dataset is valid.
type TimeDataset struct {
	T []time.Time
	Y []float64
}

// FromFrame reads the ds and y columns of a frame into a TimeDataset. A blank frame, one
// with neither rows nor columns, reads as an empty dataset.
func FromFrame(f *frame.Frame) (*TimeDataset, error) {
	if f.Blank() {
		return &TimeDataset{}, nil
	}
	if err := f.Require(ColTime, ColValue); err != nil {
		return nil, err
	}
	t, err := f.Times(ColTime)
	if err != nil {
		return nil, err
	}
	y, err := f.Floats(ColValue)
	if err != nil {
		return nil, err
	}
	return &TimeDataset{T: t, Y: y}, nil
}

// Len returns the number of observations.
func (td *TimeDataset) Len() int {
	return len(td.T)
}

// Validate reports mismatched lengths, then the first strictly non-increasing time point
// or NaN observation.
func (td *TimeDataset) Validate() error {
	if len(td.T) != len(td.Y) {
		return fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(td.T), len(td.Y), ErrDatasetLenMismatch,
		)
	}
	var lastT time.Time
	for i := 0; i < len(td.T); i++ {
		currT := td.T[i]
		if i > 0 && !currT.After(lastT) {
			return fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMontonic)
		}
		if math.IsNaN(td.Y[i]) {
			return fmt.Errorf("row %d, %w", i, ErrNaNObservation)
		}
		lastT = currT
	}
	return nil
}
