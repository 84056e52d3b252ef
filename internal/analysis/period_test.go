package analysis

import (
	"errors"
	"math"
	"testing"
)

func TestEstimatePeriodSine(t *testing.T) {
	const period = 0.73
	n := 2000
	dt := 0.004

	times := make([]float64, n)
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		times[i] = float64(i) * dt
		values[i] = 2.5 + 1.3*math.Sin(2*math.Pi*times[i]/period+0.4)
	}

	got, err := EstimatePeriod(times, values)
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if math.Abs(got-period)/period > 1e-3 {
		t.Errorf("period = %v, want %v", got, period)
	}
}

func TestEstimatePeriodTooShort(t *testing.T) {
	times := []float64{0, 1, 2, 3}
	values := []float64{1, 2, 3, 4} // monotone, no oscillation

	_, err := EstimatePeriod(times, values)
	if !errors.Is(err, ErrTooFewCrossings) {
		t.Fatalf("expected ErrTooFewCrossings, got %v", err)
	}
}

func TestEstimatePeriodLengthMismatch(t *testing.T) {
	_, err := EstimatePeriod([]float64{0, 1}, []float64{0})
	if err == nil {
		t.Fatal("expected error for mismatched lengths")
	}
}
