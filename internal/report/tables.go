package report

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"

	"eisim-progress/internal/analysis"
	"eisim-progress/internal/model"
)

// EncodeMatrixCSV renders an (episodes x agents) matrix with one row per
// episode and one column per agent.
func EncodeMatrixCSV(episodes []model.EpisodeFolder, agents []string, m *mat.Dense) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := append([]string{"episode", "episode_start_utc"}, agents...)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	rows := model.Rows(m)
	for i, ep := range episodes {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(i+1), fmtTime(ep.Start))
		if i < len(rows) {
			for _, v := range rows[i] {
				row = append(row, fmtFloat(v))
			}
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeTrendCSV renders the platform total and its moving average per
// episode.
func EncodeTrendCSV(episodes []model.EpisodeFolder, tr analysis.Trend) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"episode", "episode_start_utc", "total_return", "sma"}); err != nil {
		return nil, err
	}
	for i, total := range tr.TotalReturns {
		start := ""
		if i < len(episodes) {
			start = fmtTime(episodes[i].Start)
		}
		row := []string{
			strconv.Itoa(i + 1),
			start,
			fmtFloat(total),
			fmtFloat(tr.Smoothed[i]),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
