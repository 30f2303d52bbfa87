package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrResLenMismatch = errors.New("predicted and actual have different lengths")
	ErrNoOverlap      = errors.New("forecast does not overlap the actual observations")
)

// Scores tracks how closely the model followed the actuals
type Scores struct {
	N    int     `json:"periods"`
	MSE  float64 `json:"mean_squared_error"`
	MAPE float64 `json:"mean_average_percent_error"`
	R2   float64 `json:"r_squared"`
}

// NewScores calculates the fit scores given the predicted and actual input slice values.
// Neither may hold NaN; Backtest drops such periods before scoring.
func NewScores(predicted, actual []float64) (*Scores, error) {
	mse, err := MSE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean squared error, %w", err)
	}
	mape, err := MAPE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean average percent error, %w", err)
	}
	rs, err := RSquared(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute r-squared, %w", err)
	}

	return &Scores{
		N:    len(actual),
		MSE:  mse,
		MAPE: mape,
		R2:   rs,
	}, nil
}

// Backtest scores the model column against actual observations taken at the same timestamps.
// Periods where either value is NaN are left out. Returns ErrNoOverlap when no period is
// shared, which is the usual case for an out-of-sample forecast.
func (s *Series) Backtest(t []time.Time, actual []float64) (*Scores, error) {
	if len(t) != len(actual) {
		return nil, fmt.Errorf("expected %d, but got %d, %w", len(t), len(actual), ErrResLenMismatch)
	}

	byTime := make(map[int64]float64, len(t))
	for i, ts := range t {
		if math.IsNaN(actual[i]) {
			continue
		}
		byTime[ts.UnixNano()] = actual[i]
	}

	var predicted, observed []float64
	for i, ts := range s.T {
		y, ok := byTime[ts.UnixNano()]
		if !ok || math.IsNaN(s.Model[i]) {
			continue
		}
		predicted = append(predicted, s.Model[i])
		observed = append(observed, y)
	}
	if len(observed) == 0 {
		return nil, ErrNoOverlap
	}
	return NewScores(predicted, observed)
}

func sameLen(predicted, actual []float64) error {
	if len(predicted) != len(actual) {
		return fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	return nil
}

// MSE is the mean of the squared residuals. 0 is a perfect match.
func MSE(predicted, actual []float64) (float64, error) {
	if err := sameLen(predicted, actual); err != nil {
		return 0, err
	}
	if len(actual) == 0 {
		return 0, nil
	}
	res := make([]float64, len(actual))
	floats.SubTo(res, actual, predicted)
	return floats.Dot(res, res) / float64(len(res)), nil
}

// MAPE is the mean of abs((y-yhat)/y). Periods with y == 0 add nothing to the sum but
// still count towards the mean.
func MAPE(predicted, actual []float64) (float64, error) {
	if err := sameLen(predicted, actual); err != nil {
		return 0, err
	}
	if len(actual) == 0 {
		return 0, nil
	}
	var sum float64
	for i, y := range actual {
		if y != 0 {
			sum += math.Abs((y - predicted[i]) / y)
		}
	}
	return sum / float64(len(actual)), nil
}

// RSquared is the coefficient of determination of the predictions. Constant actuals have
// no variance to explain; they score 1 when matched exactly and 0 otherwise.
func RSquared(predicted, actual []float64) (float64, error) {
	if err := sameLen(predicted, actual); err != nil {
		return 0, err
	}
	if len(actual) == 0 || floats.Min(actual) == floats.Max(actual) {
		if floats.Equal(predicted, actual) {
			return 1, nil
		}
		return 0, nil
	}
	return stat.RSquaredFrom(predicted, actual, nil), nil
}
