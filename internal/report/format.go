package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatMillions renders a return value the way the training plots label
// their y axis: "0" for zero, otherwise millions rounded to three decimals
// with an "M" suffix ("1.235M", "2.0M").
func FormatMillions(v float64) string {
	if v == 0 {
		return "0"
	}
	m := math.Round(v*1e-6*1000) / 1000
	s := strconv.FormatFloat(m, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s + "M"
}

// BaseName is the artifact stem of a scenario, e.g.
// "DDPG_EDGE_ONLY_100_training_50episodes".
func BaseName(scenario string, episodes int) string {
	return fmt.Sprintf("%s_training_%depisodes", scenario, episodes)
}
