package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantlab/varcast/internal/dataio"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Descriptive statistics for a return series",
	Long: `Loads a return series and prints its descriptive statistics,
including the Jarque-Bera normality test.

Example:
  go run ./cmd/varcast stats --file data/sp500.xlsx --column price
  go run ./cmd/varcast stats --file data/kospi.csv`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	addSeriesFlags(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	s, _, err := loadFlagSeries()
	if err != nil {
		return err
	}

	st := dataio.Describe(s.Returns)

	PrintDoubleSeparator()
	fmt.Printf("  %s\n", s.Name)
	PrintSeparator()
	PrintKeyValue("Observations", fmt.Sprintf("%d", st.N), 16)
	if len(s.Dates) > 0 {
		PrintKeyValue("Period", fmt.Sprintf("%s ~ %s",
			s.Dates[0].Format("2006-01-02"),
			s.Dates[len(s.Dates)-1].Format("2006-01-02")), 16)
	}
	PrintKeyValue("Mean", fnum(st.Mean), 16)
	PrintKeyValue("Std dev", fnum(st.Std), 16)
	PrintKeyValue("Skewness", fnum(st.Skew), 16)
	PrintKeyValue("Excess kurtosis", fnum(st.ExcessKurtosis), 16)
	PrintKeyValue("Min", fnum(st.Min), 16)
	PrintKeyValue("Max", fnum(st.Max), 16)
	PrintSeparator()
	PrintKeyValue("Jarque-Bera", fnum(st.JarqueBera), 16)
	PrintKeyValue("JB p-value", fnum(st.JBPValue), 16)
	PrintDoubleSeparator()

	return nil
}
