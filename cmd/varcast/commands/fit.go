package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantlab/varcast/internal/dataio"
	"github.com/quantlab/varcast/internal/estimate"
)

// fitCmd represents the fit command
var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit one model specification to the full sample",
	Long: `Estimates a single mean/variance/distribution specification on
the whole series by maximum likelihood and prints the parameter
estimates with their standard errors.

Example:
  go run ./cmd/varcast fit --file data/sp500.xlsx --column price
  go run ./cmd/varcast fit --file data/kospi.csv --mean ar --variance figarch --dist skewt
  go run ./cmd/varcast fit --file data/sp500.csv --variance egarch --out fits.csv`,
	RunE: runFit,
}

var fitOut string

func init() {
	rootCmd.AddCommand(fitCmd)
	addSeriesFlags(fitCmd)
	addSpecFlags(fitCmd)
	fitCmd.Flags().StringVar(&fitOut, "out", "", "export fitted parameters (.csv or .xlsx)")
}

func runFit(cmd *cobra.Command, args []string) error {
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
	fm, err := est.Fit(s.Returns, exog, spec)
	if err != nil {
		return err
	}

	PrintDoubleSeparator()
	fmt.Printf("  %s on %s\n", spec.Label(), s.Name)
	PrintSeparator()
	PrintKeyValue("Observations", fmt.Sprintf("%d", fm.NObs), 16)
	PrintKeyValue("Log-likelihood", fnum(fm.LogLikelihood), 16)
	PrintKeyValue("Func evals", fmt.Sprintf("%d", fm.FuncEvals), 16)
	PrintSeparator()

	widths := []int{12, 14, 14}
	PrintTableHeader([]string{"param", "estimate", "std error"}, widths)
	for i, name := range fm.ParamNames {
		se := ""
		if i < len(fm.StdErrors) {
			se = fnum(fm.StdErrors[i])
		}
		PrintTableRow([]string{name, fnum(fm.Params[i]), se}, widths)
	}
	PrintDoubleSeparator()

	if fitOut != "" {
		fit := dataio.Fit{
			Series:     s.Name,
			Spec:       spec.Label(),
			ParamNames: fm.ParamNames,
			Params:     fm.Params,
			StdErrors:  fm.StdErrors,
			LogLik:     fm.LogLikelihood,
			NObs:       fm.NObs,
		}
		if err := dataio.WriteFits(fitOut, []dataio.Fit{fit}); err != nil {
			return err
		}
		fmt.Printf("Fitted parameters written to %s\n", fitOut)
	}

	return nil
}
