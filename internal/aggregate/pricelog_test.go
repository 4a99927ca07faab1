package aggregate

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dc1_log.csv")
	content := "SimTime,Price,Profit,CumulativeProfit,State\n" +
		"1,0.2,5,5,[0.2; 5]\n" +
		"2,0.4,-1,4,[0.4; -1]\n" +
		"3,0.6,3,7,[0.6; 3]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := ReadSummary(path, DefaultCumulativeColumn, DefaultPriceColumn)
	require.NoError(t, err)
	assert.Equal(t, 7.0, s.CumulativeReturn)
	assert.InDelta(t, 0.4, s.AvgPrice, 1e-12)
	assert.Equal(t, 3, s.Steps)
}

func TestReadSummary_BlankCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dc1_log.csv")
	content := "SimTime,Price,Profit,CumulativeProfit,State\n" +
		"1,0.2,5,5,[]\n" +
		"2,,1,6,[]\n" +
		"3,0.6,2,,[]\n" +
		"4,0.4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := ReadSummary(path, DefaultCumulativeColumn, DefaultPriceColumn)
	require.NoError(t, err)
	assert.Equal(t, 6.0, s.CumulativeReturn, "blank cumulative cells keep the last value")
	assert.InDelta(t, 0.4, s.AvgPrice, 1e-12, "blank prices are left out of the mean")
	assert.Equal(t, 4, s.Steps)
}

func TestReadSummary_ColumnWithoutValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dc1_log.csv")
	content := "SimTime,Price,Profit,CumulativeProfit,State\n" +
		"1,,5,5,[]\n" +
		"2, ,1,6,[]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := ReadSummary(path, DefaultCumulativeColumn, DefaultPriceColumn)
	assert.ErrorIs(t, err, ErrNoValues)
	var le *LogError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, path, le.Path)
}

func TestReadSummary_BadNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dc1_log.csv")
	content := "SimTime,Price,Profit,CumulativeProfit,State\n" +
		"1,0.2,5,5,[]\n" +
		"2,oops,1,6,[]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := ReadSummary(path, DefaultCumulativeColumn, DefaultPriceColumn)
	require.Error(t, err)

	var le *LogError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, path, le.Path)
	assert.Equal(t, 3, le.Line)
	assert.ErrorIs(t, err, strconv.ErrSyntax)
}

func TestReadSummary_Missing(t *testing.T) {
	_, err := ReadSummary(filepath.Join(t.TempDir(), "nope.csv"), DefaultCumulativeColumn, DefaultPriceColumn)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
