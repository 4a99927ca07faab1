package aggregate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"eisim-progress/internal/model"
)

var (
	// ErrMissingColumn means a price log lacks a required column.
	ErrMissingColumn = errors.New("required column missing")
	// ErrEmptyLog means a price log has a header but no rows.
	ErrEmptyLog = errors.New("price log has no rows")
	// ErrNoValues means every cell of a required column is blank.
	ErrNoValues = errors.New("column has no values")
)

// LogError locates a failure inside one price log file.
type LogError struct {
	Path string
	// Line is the 1-based CSV line, 0 when the failure is not tied to a row.
	Line int
	Err  error
}

func (e *LogError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *LogError) Unwrap() error { return e.Err }

// ReadSummary reduces one agent price log to its last cumulative value and
// its mean price.
func ReadSummary(path, cumulativeColumn, priceColumn string) (model.AgentEpisodeSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.AgentEpisodeSummary{}, &LogError{Path: path, Err: err}
	}
	defer f.Close()

	s, err := summarize(f, cumulativeColumn, priceColumn)
	if err != nil {
		var le *LogError
		if errors.As(err, &le) {
			le.Path = path
			return model.AgentEpisodeSummary{}, le
		}
		return model.AgentEpisodeSummary{}, &LogError{Path: path, Err: err}
	}
	return s, nil
}

func summarize(r io.Reader, cumulativeColumn, priceColumn string) (model.AgentEpisodeSummary, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return model.AgentEpisodeSummary{}, ErrEmptyLog
	}
	if err != nil {
		return model.AgentEpisodeSummary{}, err
	}
	cumIdx, priceIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case cumulativeColumn:
			cumIdx = i
		case priceColumn:
			priceIdx = i
		}
	}
	if cumIdx < 0 {
		return model.AgentEpisodeSummary{}, fmt.Errorf("%w: %s", ErrMissingColumn, cumulativeColumn)
	}
	if priceIdx < 0 {
		return model.AgentEpisodeSummary{}, fmt.Errorf("%w: %s", ErrMissingColumn, priceColumn)
	}

	var (
		prices  []float64
		last    float64
		haveCum bool
		rows    int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.AgentEpisodeSummary{}, err
		}
		rows++
		line, _ := cr.FieldPos(0)
		cum, ok, err := field(rec, cumIdx)
		if err != nil {
			return model.AgentEpisodeSummary{}, &LogError{Line: line, Err: fmt.Errorf("%s: %w", cumulativeColumn, err)}
		}
		if ok {
			last, haveCum = cum, true
		}
		price, ok, err := field(rec, priceIdx)
		if err != nil {
			return model.AgentEpisodeSummary{}, &LogError{Line: line, Err: fmt.Errorf("%s: %w", priceColumn, err)}
		}
		if ok {
			prices = append(prices, price)
		}
	}
	if rows == 0 {
		return model.AgentEpisodeSummary{}, ErrEmptyLog
	}
	if !haveCum {
		return model.AgentEpisodeSummary{}, fmt.Errorf("%w: %s", ErrNoValues, cumulativeColumn)
	}
	if len(prices) == 0 {
		return model.AgentEpisodeSummary{}, fmt.Errorf("%w: %s", ErrNoValues, priceColumn)
	}
	return model.AgentEpisodeSummary{
		CumulativeReturn: last,
		AvgPrice:         stat.Mean(prices, nil),
		Steps:            rows,
	}, nil
}

// field parses cell i of rec. A blank or absent cell is not an error; ok
// reports whether a value was present.
func field(rec []string, i int) (v float64, ok bool, err error) {
	if i >= len(rec) {
		return 0, false, nil
	}
	s := strings.TrimSpace(rec[i])
	if s == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(s, 64)
	return v, err == nil, err
}
