package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantlab/varcast/internal/store"
	"github.com/quantlab/varcast/pkg/database"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List persisted study runs",
	Long: `Lists the most recent study runs stored in PostgreSQL.
Requires DATABASE_URL.

Example:
  go run ./cmd/varcast runs
  go run ./cmd/varcast runs --limit 50`,
	RunE: listRuns,
}

var runsLimit int

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to list")
}

func listRuns(cmd *cobra.Command, args []string) error {
	appCfg, _, err := appContext()
	if err != nil {
		return err
	}
	if !appCfg.HasDatabase() {
		return fmt.Errorf("DATABASE_URL is not set")
	}

	db, err := database.New(appCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := store.NewRepository(db.Pool)
	if err := repo.EnsureSchema(cmd.Context()); err != nil {
		return err
	}
	runs, err := repo.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	widths := []int{36, 20, 12, 10, 20}
	PrintTableHeader([]string{"run_id", "study", "hash", "status", "started"}, widths)
	for _, r := range runs {
		hash := r.ConfigHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		PrintTableRow([]string{
			r.ID.String(),
			r.StudyID,
			hash,
			r.Status,
			r.StartedAt.Format("2006-01-02 15:04:05"),
		}, widths)
	}
	return nil
}
