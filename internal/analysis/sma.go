// Package analysis derives trends and per-agent statistics from parsed
// training results.
package analysis

import (
	"errors"

	"gonum.org/v1/gonum/stat"
)

// DefaultWindow is the smoothing window for library callers that do not
// choose one.
const DefaultWindow = 5

var ErrInvalidWindow = errors.New("window size must be at least 1")

// SMA is a causal simple moving average. Output i (1-based) is the mean of
// the up to window values ending at and including input i, so the first
// window-1 points average over a growing prefix.
func SMA(data []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, ErrInvalidWindow
	}
	out := make([]float64, len(data))
	for i := 1; i <= len(data); i++ {
		from := i - window
		if from < 0 {
			from = 0
		}
		out[i-1] = stat.Mean(data[from:i], nil)
	}
	return out, nil
}
