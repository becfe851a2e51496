package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quantlab/varcast/internal/store"
	"github.com/quantlab/varcast/internal/study"
	"github.com/quantlab/varcast/internal/studyconfig"
	"github.com/quantlab/varcast/pkg/database"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a full study from a YAML file",
	Long: `Runs the whole pipeline for every (series, spec) combination in
the study file: load the series, roll the window, backtest the VaR
sequences and export the results. With DATABASE_URL set the run is also
persisted to PostgreSQL.

Example:
  go run ./cmd/varcast run --study config/study.yaml
  go run ./cmd/varcast run --study config/study.yaml --no-db`,
	RunE: runStudy,
}

var (
	studyFile string
	noDB      bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&studyFile, "study", "", "study YAML file (required)")
	runCmd.Flags().BoolVar(&noDB, "no-db", false, "skip persistence even if DATABASE_URL is set")
	runCmd.MarkFlagRequired("study")
}

func runStudy(cmd *cobra.Command, args []string) error {
	appCfg, log, err := appContext()
	if err != nil {
		return err
	}

	cfg, _, err := studyconfig.Load(studyFile)
	if err != nil {
		return err
	}
	hash, err := studyconfig.Hash(cfg)
	if err != nil {
		return err
	}

	var repo *store.Repository
	if appCfg.HasDatabase() && !noDB {
		db, err := database.New(appCfg)
		if err != nil {
			return err
		}
		defer db.Close()
		repo = store.NewRepository(db.Pool)
	}

	log.WithFields(map[string]interface{}{
		"study":     cfg.StudyID,
		"hash":      hash[:12],
		"series":    len(cfg.Series),
		"specs":     len(cfg.Specs()),
		"levels":    cfg.ConfidenceLevels,
		"persisted": repo != nil,
	}).Info("Starting study run")

	runner := study.New(cfg, hash, appCfg, log, repo)
	res, err := runner.Run(cmd.Context(), filepath.Dir(studyFile))
	if err != nil {
		return err
	}

	fmt.Printf("Study %s finished: run %s, %d forecast cells, %d summary rows\n",
		cfg.StudyID, res.RunID, len(res.Forecasts), len(res.Summary))
	return nil
}
