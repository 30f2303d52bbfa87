package timedataset

import (
	"errors"
	"time"
)

var ErrCannotInferFreq = errors.New("cannot infer frequency from time slice")

const (
	Day     = 24 * time.Hour
	Month   = 28 * Day
	Quarter = 89 * Day
	Year    = 365 * Day
)

type TimeSlice []time.Time

// EstimateFreq returns the most common spacing between consecutive points. Ties resolve to
// the smaller spacing.
func (t TimeSlice) EstimateFreq() (time.Duration, error) {
	if len(t) < 2 {
		return 0, ErrCannotInferFreq
	}

	frequencies := make(map[time.Duration]int)
	for i := 1; i < len(t); i++ {
		delta := t[i].Sub(t[i-1])
		frequencies[delta] += 1
	}

	var maxCnt int
	var maxDelta time.Duration

	for delta, cnt := range frequencies {
		if cnt > maxCnt || (cnt == maxCnt && delta < maxDelta) {
			maxCnt = cnt
			maxDelta = delta
		}
	}
	return maxDelta, nil
}

// Granularity buckets a sampling frequency into the calendar unit it is closest to.
type Granularity int

const (
	GranularityDay Granularity = iota
	GranularityMonth
	GranularityQuarter
	GranularityYear
)

func (g Granularity) String() string {
	switch g {
	case GranularityYear:
		return "year"
	case GranularityQuarter:
		return "quarter"
	case GranularityMonth:
		return "month"
	default:
		return "day"
	}
}

// EstimateGranularity classifies the slice's sampling frequency. Slices too short to infer
// a frequency are treated as yearly, the cadence of the economic indicators.
func (t TimeSlice) EstimateGranularity() Granularity {
	freq, err := t.EstimateFreq()
	if err != nil {
		return GranularityYear
	}
	switch {
	case freq >= Year:
		return GranularityYear
	case freq >= Quarter:
		return GranularityQuarter
	case freq >= Month:
		return GranularityMonth
	default:
		return GranularityDay
	}
}

func (g Granularity) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}
