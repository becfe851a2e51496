package dataio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/quantlab/varcast/internal/rolling"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "series.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSeriesReturnColumn(t *testing.T) {
	path := writeTempCSV(t, "date,return\n2024-01-02,0.5\n2024-01-03,-1.2\n2024-01-04,0.3\n")

	s, err := LoadSeries(path, LoadOptions{Name: "test", Column: "return"})
	require.NoError(t, err)

	assert.Equal(t, "test", s.Name)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{0.5, -1.2, 0.3}, s.Returns)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), s.Dates[0])
}

func TestLoadSeriesPriceColumn(t *testing.T) {
	path := writeTempCSV(t, "date,close\n2024-01-02,100\n2024-01-03,101\n2024-01-04,99.5\n")

	s, err := LoadSeries(path, LoadOptions{Name: "px", Column: "price"})
	require.NoError(t, err)

	// Price conversion drops the first observation.
	require.Equal(t, 2, s.Len())
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), s.Dates[0])
	assert.InDelta(t, 100*math.Log(101.0/100.0), s.Returns[0], 1e-12)
	assert.InDelta(t, 100*math.Log(99.5/101.0), s.Returns[1], 1e-12)
}

func TestLoadSeriesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.xlsx")

	f := excelize.NewFile()
	rows := [][]any{
		{"date", "price"},
		{"2024-01-02", 100.0},
		{"2024-01-03", 102.0},
		{"2024-01-04", 101.0},
	}
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	s, err := LoadSeries(path, LoadOptions{Name: "xl", Column: "price"})
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.InDelta(t, 100*math.Log(102.0/100.0), s.Returns[0], 1e-12)
}

func TestLoadSeriesUnsupportedFormat(t *testing.T) {
	_, err := LoadSeries("data.parquet", LoadOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadSeriesTooShort(t *testing.T) {
	path := writeTempCSV(t, "date,return\n2024-01-02,0.5\n")
	_, err := LoadSeries(path, LoadOptions{Column: "return"})
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestLogReturnsRejectsNonPositive(t *testing.T) {
	_, err := LogReturns([]float64{100, 0, 101})
	assert.Error(t, err)

	_, err = LogReturns([]float64{100, -5})
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	values := []float64{-2, -1, 0, 1, 2}
	s := Describe(values)

	assert.Equal(t, 5, s.N)
	assert.InDelta(t, 0.0, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), s.Std, 1e-12)
	assert.InDelta(t, 0.0, s.Skew, 1e-12)
	assert.Equal(t, -2.0, s.Min)
	assert.Equal(t, 2.0, s.Max)
	assert.False(t, math.IsNaN(s.JarqueBera))
	assert.Greater(t, s.JBPValue, 0.0)
	assert.LessOrEqual(t, s.JBPValue, 1.0)
}

func sampleRecords() []rolling.Record {
	return []rolling.Record{
		{
			Origin:   300,
			Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Mean:     0.02,
			Variance: 1.5,
			VaR:      map[float64]float64{0.01: 2.83, 0.05: 2.0},
			Realized: -0.4,
			Valid:    true,
		},
		{
			Origin: 301,
			Date:   time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
			VaR:    map[float64]float64{},
			Valid:  false,
			Err:    "optimizer did not converge",
		},
		{
			Origin:   302,
			Date:     time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			Mean:     -0.01,
			Variance: 1.62,
			VaR:      map[float64]float64{0.01: 2.95, 0.05: 2.08},
			Realized: 1.1,
			Valid:    true,
		},
	}
}

func TestForecastRoundTrip(t *testing.T) {
	for _, ext := range []string{".csv", ".xlsx"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "forecasts"+ext)
			in := sampleRecords()
			levels := []float64{0.05, 0.01}

			require.NoError(t, WriteForecasts(path, in, levels))

			out, gotLevels, err := ReadForecasts(path)
			require.NoError(t, err)
			assert.Equal(t, []float64{0.01, 0.05}, gotLevels)
			require.Len(t, out, len(in))

			for i, rec := range out {
				assert.Equal(t, in[i].Origin, rec.Origin)
				assert.True(t, in[i].Date.Equal(rec.Date))
				assert.InDelta(t, in[i].Mean, rec.Mean, 1e-12)
				assert.InDelta(t, in[i].Variance, rec.Variance, 1e-12)
				assert.InDelta(t, in[i].Realized, rec.Realized, 1e-12)
				assert.Equal(t, in[i].Valid, rec.Valid)
				assert.Equal(t, in[i].Err, rec.Err)
				for _, lvl := range gotLevels {
					assert.InDelta(t, in[i].VaR[lvl], rec.VaR[lvl], 1e-12)
				}
			}
		})
	}
}

func TestWriteFits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fits.csv")
	fits := []Fit{
		{
			Series:     "sp500",
			Spec:       "constant-garch-normal",
			ParamNames: []string{"mu", "omega", "alpha[1]", "beta[1]"},
			Params:     []float64{0.03, 0.02, 0.09, 0.89},
			StdErrors:  []float64{0.01, 0.008, 0.02, 0.025},
			LogLik:     -1423.5,
			NObs:       1000,
		},
	}

	require.NoError(t, WriteFits(path, fits))

	table, err := readTable(path)
	require.NoError(t, err)
	// Header plus one row per parameter.
	require.Len(t, table, 5)
	assert.Equal(t, "series", table[0][0])
	assert.Equal(t, "omega", table[2][2])
}

func TestWriteSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.xlsx")
	rows := []SummaryRow{
		{
			Series: "sp500", Mean: "ar", Variance: "garch", Dist: "t",
			Level: 0.01, Obs: 500, Hits: 6, HitRate: 0.012,
			UCStat: 0.19, UCPValue: 0.66,
		},
	}

	require.NoError(t, WriteSummary(path, rows))

	table, err := readTable(path)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, "sp500", table[1][0])
	assert.Equal(t, "garch", table[1][2])
}
