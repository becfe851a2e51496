package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantlab/varcast/internal/dataio"
	"github.com/quantlab/varcast/internal/estimate"
	"github.com/quantlab/varcast/internal/rolling"
)

// forecastCmd represents the forecast command
var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Rolling out-of-sample VaR forecasts for one specification",
	Long: `Re-estimates the model at every origin of a rolling (or
expanding) window and produces one-step-ahead mean, variance and VaR
forecasts for the out-of-sample region.

Example:
  go run ./cmd/varcast forecast --file data/sp500.xlsx --column price --window 1000 --out forecasts.csv
  go run ./cmd/varcast forecast --file data/kospi.csv --variance egarch --dist t --policy expanding --out f.xlsx
  go run ./cmd/varcast forecast --file data/sp500.csv --window 500 --levels 0.01,0.05 --warm-start --out f.csv`,
	RunE: runForecast,
}

var (
	forecastWindow    int
	forecastPolicy    string
	forecastLevels    []float64
	forecastWarmStart bool
	forecastOut       string
)

func init() {
	rootCmd.AddCommand(forecastCmd)
	addSeriesFlags(forecastCmd)
	addSpecFlags(forecastCmd)

	forecastCmd.Flags().IntVar(&forecastWindow, "window", 1000, "estimation window size")
	forecastCmd.Flags().StringVar(&forecastPolicy, "policy", "rolling", "window policy (rolling|expanding)")
	forecastCmd.Flags().Float64SliceVar(&forecastLevels, "levels", []float64{0.01, 0.05}, "VaR confidence levels")
	forecastCmd.Flags().BoolVar(&forecastWarmStart, "warm-start", false, "start each fit from the previous optimum (sequential)")
	forecastCmd.Flags().StringVar(&forecastOut, "out", "", "output file (.csv or .xlsx, required)")
	forecastCmd.MarkFlagRequired("out")
}

func runForecast(cmd *cobra.Command, args []string) error {
	cfg, log, err := appContext()
	if err != nil {
		return err
	}

	spec, err := flagSpec()
	if err != nil {
		return err
	}
	s, exog, err := loadFlagSeries()
	if err != nil {
		return err
	}

	est := estimate.New(log, estimate.Options{
		MaxIterations: cfg.MaxIterations,
		Restarts:      cfg.Restarts,
	})
	forecaster := rolling.New(est, log, rolling.Options{
		Policy:      rolling.Policy(forecastPolicy),
		WindowSize:  forecastWindow,
		Levels:      forecastLevels,
		Concurrency: cfg.Concurrency,
		WarmStart:   forecastWarmStart,
	})

	records, err := forecaster.Run(cmd.Context(), s.Returns, s.Dates, exog, spec)
	if err != nil {
		return err
	}

	if err := dataio.WriteForecasts(forecastOut, records, forecastLevels); err != nil {
		return err
	}

	valid := len(rolling.Valid(records))
	fmt.Printf("%d forecasts (%d valid) for %s on %s written to %s\n",
		len(records), valid, spec.Label(), s.Name, forecastOut)
	return nil
}
