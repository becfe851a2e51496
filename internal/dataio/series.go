// Package dataio loads return series from CSV and Excel workbooks and
// exports fitted parameters, forecast sequences and backtest summaries
// back out in either format.
package dataio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned for file extensions other than
	// .csv and .xlsx.
	ErrUnsupportedFormat = errors.New("dataio: unsupported file format")
	// ErrEmptySeries is returned when a file yields fewer than two
	// usable observations.
	ErrEmptySeries = errors.New("dataio: series has too few observations")
)

// Series is a dated sequence of percent log returns.
type Series struct {
	Name    string
	Dates   []time.Time
	Returns []float64
}

// Len returns the number of observations.
func (s *Series) Len() int { return len(s.Returns) }

// LoadOptions controls how a series file is interpreted.
type LoadOptions struct {
	Name   string
	Column string // "price" converts levels to percent log returns; "return" uses values as-is
	Sheet  string // xlsx sheet name; empty means the first sheet
}

// LoadSeries reads a two-column (date, value) file. Header rows and
// blank rows are skipped. Price columns are converted to percent log
// returns, which drops the first observation.
func LoadSeries(path string, opts LoadOptions) (*Series, error) {
	var dates []time.Time
	var values []float64
	var err error

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		dates, values, err = readCSV(path)
	case ".xlsx":
		dates, values, err = readXLSX(path, opts.Sheet)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: %d rows in %s", ErrEmptySeries, len(values), path)
	}

	s := &Series{Name: opts.Name}
	if opts.Column == "price" {
		returns, err := LogReturns(values)
		if err != nil {
			return nil, fmt.Errorf("dataio: %s: %w", path, err)
		}
		s.Dates = dates[1:]
		s.Returns = returns
	} else {
		s.Dates = dates
		s.Returns = values
	}
	return s, nil
}

// LogReturns converts a price level series to percent log returns,
// r_t = 100 * ln(P_t / P_{t-1}).
func LogReturns(prices []float64) ([]float64, error) {
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			return nil, fmt.Errorf("non-positive price at row %d", i)
		}
		out[i-1] = 100 * math.Log(prices[i]/prices[i-1])
	}
	return out, nil
}

func readCSV(path string) ([]time.Time, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("dataio: reading %s: %w", path, err)
	}
	return parseRows(rows, path)
}

func readXLSX(path, sheet string) ([]time.Time, []float64, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("dataio: opening %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, nil, fmt.Errorf("dataio: %s has no sheets", path)
		}
		sheet = list[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("dataio: sheet %q in %s: %w", sheet, path, err)
	}
	return parseRows(rows, path)
}

// parseRows extracts (date, value) pairs, skipping header and blank
// rows. A row counts as data only if both cells parse.
func parseRows(rows [][]string, path string) ([]time.Time, []float64, error) {
	var dates []time.Time
	var values []float64
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		d, err := parseDate(strings.TrimSpace(row[0]))
		if err != nil {
			if i == 0 || len(values) == 0 {
				continue // header
			}
			return nil, nil, fmt.Errorf("dataio: %s row %d: bad date %q", path, i+1, row[0])
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			if len(values) == 0 {
				continue
			}
			return nil, nil, fmt.Errorf("dataio: %s row %d: bad value %q", path, i+1, row[1])
		}
		dates = append(dates, d)
		values = append(values, v)
	}
	return dates, values, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	// Excel cells sometimes surface as serial day numbers.
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 20000 && serial < 80000 {
		return excelEpoch.AddDate(0, 0, int(serial)), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Excel serial day 0 (using the 1900 date system, with its leap year quirk).
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
