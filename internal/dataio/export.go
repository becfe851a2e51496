package dataio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/quantlab/varcast/internal/rolling"
)

// Fit is one estimated model destined for export.
type Fit struct {
	Series     string
	Spec       string
	ParamNames []string
	Params     []float64
	StdErrors  []float64
	LogLik     float64
	NObs       int
}

// SummaryRow is one (series, spec, level) line of the backtest summary
// table.
type SummaryRow struct {
	Series   string
	Mean     string
	Variance string
	Dist     string
	Level    float64

	Obs     int
	Hits    int
	HitRate float64
	MAEVol  float64
	MSEVol  float64
	MSEVar  float64

	UCStat    float64
	UCPValue  float64
	CCIStat   float64
	CCIPValue float64
	CCStat    float64
	CCPValue  float64
	DurStat   float64
	DurPValue float64
	DQStat    float64
	DQPValue  float64
}

// WriteForecasts writes a rolling forecast sequence to path, picking
// CSV or XLSX from the extension. Invalid records are written too, with
// their failure reason, so a run can be audited afterwards.
func WriteForecasts(path string, records []rolling.Record, levels []float64) error {
	sorted := append([]float64(nil), levels...)
	sort.Float64s(sorted)

	header := []string{"origin", "date", "mean", "variance"}
	for _, lvl := range sorted {
		header = append(header, levelColumn(lvl))
	}
	header = append(header, "realized", "valid", "error")

	table := [][]string{header}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Origin),
			formatDate(r.Date),
			formatFloat(r.Mean),
			formatFloat(r.Variance),
		}
		for _, lvl := range sorted {
			row = append(row, formatFloat(r.VaR[lvl]))
		}
		row = append(row, formatFloat(r.Realized), strconv.FormatBool(r.Valid), r.Err)
		table = append(table, row)
	}

	return writeTable(path, "forecasts", table)
}

// ReadForecasts reads a forecast file written by WriteForecasts and
// reconstructs the records and the VaR levels from the header.
func ReadForecasts(path string) ([]rolling.Record, []float64, error) {
	table, err := readTable(path)
	if err != nil {
		return nil, nil, err
	}
	if len(table) < 2 {
		return nil, nil, fmt.Errorf("%w: %s", ErrEmptySeries, path)
	}

	header := table[0]
	var levels []float64
	levelCol := map[int]float64{}
	col := map[string]int{}
	for i, name := range header {
		name = strings.TrimSpace(name)
		col[name] = i
		if strings.HasPrefix(name, "var_") {
			pct, err := strconv.ParseFloat(strings.TrimPrefix(name, "var_"), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("dataio: %s: bad VaR column %q", path, name)
			}
			lvl := pct / 100
			levels = append(levels, lvl)
			levelCol[i] = lvl
		}
	}
	for _, required := range []string{"mean", "variance", "realized", "valid"} {
		if _, ok := col[required]; !ok {
			return nil, nil, fmt.Errorf("dataio: %s: missing column %q", path, required)
		}
	}

	records := make([]rolling.Record, 0, len(table)-1)
	for i, row := range table[1:] {
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		rec := rolling.Record{VaR: make(map[float64]float64, len(levels))}
		if c, ok := col["origin"]; ok {
			rec.Origin, _ = strconv.Atoi(row[c])
		}
		if c, ok := col["date"]; ok && row[c] != "" {
			if d, err := parseDate(row[c]); err == nil {
				rec.Date = d
			}
		}
		var err error
		if rec.Mean, err = parseFloat(row[col["mean"]]); err != nil {
			return nil, nil, fmt.Errorf("dataio: %s row %d: %w", path, i+2, err)
		}
		if rec.Variance, err = parseFloat(row[col["variance"]]); err != nil {
			return nil, nil, fmt.Errorf("dataio: %s row %d: %w", path, i+2, err)
		}
		if rec.Realized, err = parseFloat(row[col["realized"]]); err != nil {
			return nil, nil, fmt.Errorf("dataio: %s row %d: %w", path, i+2, err)
		}
		for c, lvl := range levelCol {
			if rec.VaR[lvl], err = parseFloat(row[c]); err != nil {
				return nil, nil, fmt.Errorf("dataio: %s row %d: %w", path, i+2, err)
			}
		}
		rec.Valid, _ = strconv.ParseBool(row[col["valid"]])
		if c, ok := col["error"]; ok {
			rec.Err = row[c]
		}
		records = append(records, rec)
	}

	sort.Float64s(levels)
	return records, levels, nil
}

// WriteFits writes fitted parameters in long format, one row per
// parameter.
func WriteFits(path string, fits []Fit) error {
	table := [][]string{{"series", "spec", "param", "value", "std_error", "loglik", "nobs"}}
	for _, f := range fits {
		for i, name := range f.ParamNames {
			se := ""
			if i < len(f.StdErrors) {
				se = formatFloat(f.StdErrors[i])
			}
			table = append(table, []string{
				f.Series, f.Spec, name,
				formatFloat(f.Params[i]), se,
				formatFloat(f.LogLik), strconv.Itoa(f.NObs),
			})
		}
	}
	return writeTable(path, "fits", table)
}

// WriteSummary writes the backtest summary table.
func WriteSummary(path string, rows []SummaryRow) error {
	table := [][]string{{
		"series", "mean", "variance", "dist", "level",
		"obs", "hits", "hit_rate", "mae_vol", "mse_vol", "mse_var",
		"uc_stat", "uc_pvalue", "cci_stat", "cci_pvalue",
		"cc_stat", "cc_pvalue", "dur_stat", "dur_pvalue",
		"dq_stat", "dq_pvalue",
	}}
	for _, r := range rows {
		table = append(table, []string{
			r.Series, r.Mean, r.Variance, r.Dist, formatFloat(r.Level),
			strconv.Itoa(r.Obs), strconv.Itoa(r.Hits),
			formatFloat(r.HitRate), formatFloat(r.MAEVol), formatFloat(r.MSEVol), formatFloat(r.MSEVar),
			formatFloat(r.UCStat), formatFloat(r.UCPValue),
			formatFloat(r.CCIStat), formatFloat(r.CCIPValue),
			formatFloat(r.CCStat), formatFloat(r.CCPValue),
			formatFloat(r.DurStat), formatFloat(r.DurPValue),
			formatFloat(r.DQStat), formatFloat(r.DQPValue),
		})
	}
	return writeTable(path, "backtest", table)
}

func levelColumn(level float64) string {
	return fmt.Sprintf("var_%g", level*100)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func writeTable(path, sheet string, table [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return writeCSVTable(path, table)
	case ".xlsx":
		return writeXLSXTable(path, sheet, table)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func readTable(path string) ([][]string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r := csv.NewReader(f)
		r.FieldsPerRecord = -1
		return r.ReadAll()
	case ".xlsx":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, fmt.Errorf("dataio: %s has no sheets", path)
		}
		return f.GetRows(list[0])
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func writeCSVTable(path string, table [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(table); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeXLSXTable(path, sheet string, table [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	for i, row := range table {
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}
