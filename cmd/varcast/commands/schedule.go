package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/quantlab/varcast/internal/store"
	"github.com/quantlab/varcast/internal/study"
	"github.com/quantlab/varcast/internal/studyconfig"
	"github.com/quantlab/varcast/pkg/database"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run a study on a cron schedule",
	Long: `Starts a daemon that re-runs the study on a cron schedule,
typically after each market close so the forecasts incorporate the
latest observations. Stop with Ctrl+C.

Example:
  go run ./cmd/varcast schedule --study config/study.yaml
  go run ./cmd/varcast schedule --study config/study.yaml --cron "0 18 * * 1-5"`,
	RunE: runSchedule,
}

var scheduleCron string

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&studyFile, "study", "", "study YAML file (required)")
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "0 18 * * 1-5", "cron expression (weekday evenings by default)")
	scheduleCmd.MarkFlagRequired("study")
}

func runSchedule(cmd *cobra.Command, args []string) error {
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
	if appCfg.HasDatabase() {
		db, err := database.New(appCfg)
		if err != nil {
			return err
		}
		defer db.Close()
		repo = store.NewRepository(db.Pool)
	}

	runner := study.New(cfg, hash, appCfg, log, repo)
	baseDir := filepath.Dir(studyFile)
	ctx := cmd.Context()

	c := cron.New()
	_, err = c.AddFunc(scheduleCron, func() {
		log.WithField("study", cfg.StudyID).Info("Scheduled study run starting")
		res, err := runner.Run(ctx, baseDir)
		if err != nil {
			log.WithError(err).Error("Scheduled study run failed")
			return
		}
		log.WithFields(map[string]interface{}{
			"run_id": res.RunID.String(),
			"cells":  len(res.Forecasts),
		}).Info("Scheduled study run complete")
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", scheduleCron, err)
	}

	c.Start()
	defer c.Stop()

	fmt.Printf("Scheduler started: %s on %q (Ctrl+C to stop)\n", cfg.StudyID, scheduleCron)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("Scheduler stopped")
	return nil
}
