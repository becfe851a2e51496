package commands

import (
	"github.com/spf13/cobra"

	"github.com/quantlab/varcast/pkg/config"
	"github.com/quantlab/varcast/pkg/logger"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "varcast",
	Short: "ARCH-family VaR forecasting and backtesting",
	Long: `varcast estimates ARCH-family volatility models on daily return
series, produces rolling out-of-sample Value-at-Risk forecasts and
validates them with the standard coverage, duration and dynamic
quantile backtests.

Usage:
  go run ./cmd/varcast [command]

Examples:
  go run ./cmd/varcast stats --file data/sp500.xlsx --column price
  go run ./cmd/varcast fit --file data/sp500.xlsx --column price --variance egarch --dist skewt
  go run ./cmd/varcast forecast --file data/sp500.xlsx --column price --window 1000 --out forecasts.csv
  go run ./cmd/varcast backtest --forecasts forecasts.csv
  go run ./cmd/varcast run --study config/study.yaml`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// appContext loads the environment configuration and builds the logger.
func appContext() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, logger.New(cfg), nil
}
