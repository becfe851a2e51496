package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quantlab/varcast/internal/dataio"
	"github.com/quantlab/varcast/internal/modelspec"
)

// Flags shared by the single-spec commands (stats, fit, forecast).
var (
	seriesFile   string
	seriesColumn string
	seriesSheet  string
	seriesName   string
	exogFile     string

	meanType     string
	varianceType string
	distType     string
	arLags       int
	archP        int
	garchQ       int
	truncation   int
)

func addSeriesFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&seriesFile, "file", "", "input file (.csv or .xlsx, required)")
	cmd.Flags().StringVar(&seriesColumn, "column", "return", "value column semantics (price|return)")
	cmd.Flags().StringVar(&seriesSheet, "sheet", "", "xlsx sheet name (default: first sheet)")
	cmd.Flags().StringVar(&seriesName, "name", "", "series name (default: file basename)")
	cmd.MarkFlagRequired("file")
}

func addSpecFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&meanType, "mean", "constant", "mean model (constant|ar|arx)")
	cmd.Flags().StringVar(&varianceType, "variance", "garch", "variance model (garch|egarch|figarch)")
	cmd.Flags().StringVar(&distType, "dist", "normal", "error distribution (normal|t|skewt|ged)")
	cmd.Flags().IntVar(&arLags, "ar-lags", 1, "AR lag order for ar/arx means")
	cmd.Flags().IntVar(&archP, "arch-p", 1, "ARCH order")
	cmd.Flags().IntVar(&garchQ, "garch-q", 1, "GARCH order")
	cmd.Flags().IntVar(&truncation, "truncation", modelspec.DefaultFIGARCHTruncation, "FIGARCH ARCH(inf) truncation")
	cmd.Flags().StringVar(&exogFile, "exog", "", "exogenous regressor file for arx means")
}

func flagSpec() (modelspec.Spec, error) {
	spec := modelspec.Spec{
		Mean:       modelspec.MeanType(meanType),
		Variance:   modelspec.VarianceType(varianceType),
		Dist:       modelspec.DistType(distType),
		ARLags:     arLags,
		ArchP:      archP,
		GarchQ:     garchQ,
		Truncation: truncation,
	}
	if spec.Mean == modelspec.MeanConstant {
		spec.ARLags = 0
	}
	return spec, spec.Validate()
}

// loadFlagSeries loads the series (and optional exogenous series) named
// by the shared flags.
func loadFlagSeries() (*dataio.Series, []float64, error) {
	name := seriesName
	if name == "" {
		base := filepath.Base(seriesFile)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	s, err := dataio.LoadSeries(seriesFile, dataio.LoadOptions{
		Name:   name,
		Column: seriesColumn,
		Sheet:  seriesSheet,
	})
	if err != nil {
		return nil, nil, err
	}

	var exog []float64
	if exogFile != "" {
		ex, err := dataio.LoadSeries(exogFile, dataio.LoadOptions{Name: name + "_exog", Column: "return"})
		if err != nil {
			return nil, nil, err
		}
		if ex.Len() != s.Len() {
			return nil, nil, fmt.Errorf("exogenous series has %d observations, want %d", ex.Len(), s.Len())
		}
		exog = ex.Returns
	}
	return s, exog, nil
}
