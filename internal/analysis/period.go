// Package analysis provides small post-processing helpers for recorded
// trajectories.
package analysis

import (
	"errors"
	"fmt"
)

var ErrTooFewCrossings = errors.New("analysis: signal has fewer than two mean crossings")

// EstimatePeriod measures the dominant oscillation period of a sampled
// signal by averaging the spacing of its ascending mean crossings, with
// linear interpolation between samples. times and values must have equal
// length.
func EstimatePeriod(times, values []float64) (float64, error) {
	if len(times) != len(values) {
		return 0, fmt.Errorf("length mismatch: %d times, %d values", len(times), len(values))
	}
	if len(values) < 3 {
		return 0, ErrTooFewCrossings
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var crossings []float64
	for i := 1; i < len(values); i++ {
		prev := values[i-1] - mean
		cur := values[i] - mean
		if prev < 0 && cur >= 0 {
			// Interpolate the crossing instant inside the sample interval.
			frac := prev / (prev - cur)
			crossings = append(crossings, times[i-1]+frac*(times[i]-times[i-1]))
		}
	}

	if len(crossings) < 2 {
		return 0, ErrTooFewCrossings
	}

	total := crossings[len(crossings)-1] - crossings[0]
	return total / float64(len(crossings)-1), nil
}
