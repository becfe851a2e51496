package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantlab/varcast/internal/dataio"
	"github.com/quantlab/varcast/internal/rolling"
	"github.com/quantlab/varcast/internal/vartest"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest a forecast file",
	Long: `Reads a forecast file produced by the forecast command (or a run)
and validates the VaR sequences at every level found in the file:
unconditional coverage (Kupiec), independence and conditional coverage
(Christoffersen), the duration test (Christoffersen-Pelletier) and the
dynamic quantile test (Engle-Manganelli).

Example:
  go run ./cmd/varcast backtest --forecasts forecasts.csv
  go run ./cmd/varcast backtest --forecasts forecasts.xlsx --significance 0.01`,
	RunE: runBacktest,
}

var (
	backtestForecasts    string
	backtestSignificance float64
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&backtestForecasts, "forecasts", "", "forecast file (.csv or .xlsx, required)")
	backtestCmd.Flags().Float64Var(&backtestSignificance, "significance", 0.05, "test significance level")
	backtestCmd.MarkFlagRequired("forecasts")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	records, levels, err := dataio.ReadForecasts(backtestForecasts)
	if err != nil {
		return err
	}

	valid := rolling.Valid(records)
	if len(valid) == 0 {
		return fmt.Errorf("no valid forecasts in %s", backtestForecasts)
	}

	returns := make([]float64, len(valid))
	for i, rec := range valid {
		returns[i] = rec.Realized
	}

	PrintDoubleSeparator()
	fmt.Printf("  VaR backtest: %s\n", backtestForecasts)
	PrintSeparator()
	PrintKeyValue("Forecasts", fmt.Sprintf("%d (%d valid)", len(records), len(valid)), 14)
	PrintKeyValue("Significance", fnum(backtestSignificance), 14)
	PrintDoubleSeparator()

	for _, lvl := range levels {
		varLoss := make([]float64, len(valid))
		for i, rec := range valid {
			varLoss[i] = rec.VaR[lvl]
		}

		suite := vartest.NewSuite(lvl)
		suite.Significance = backtestSignificance
		rep, err := suite.Run(returns, varLoss)
		if err != nil {
			return err
		}

		fmt.Printf("\nVaR %.1f%%  (hits %d/%d, rate %.4f, expected %.4f)\n",
			lvl*100, rep.Hits, rep.Obs, rep.HitRate, lvl)

		widths := []int{22, 12, 12, 10}
		PrintTableHeader([]string{"test", "statistic", "p-value", "verdict"}, widths)
		for _, res := range []vartest.Result{rep.UC, rep.CCI, rep.CC, rep.Duration, rep.DQ} {
			PrintTableRow([]string{res.Name, fnum(res.Stat), fnum(res.PValue), verdict(res)}, widths)
		}
	}

	return nil
}

func verdict(r vartest.Result) string {
	switch {
	case r.Degenerate:
		return "degenerate"
	case r.Reject:
		return "REJECT"
	default:
		return "pass"
	}
}
