// Package study orchestrates a full forecasting study: load the
// configured return series, roll every model specification across every
// series, backtest the VaR sequences at every confidence level, and
// export (and optionally persist) the results.
package study

import (
	"context"
	"fmt"
	"math"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/quantlab/varcast/internal/dataio"
	"github.com/quantlab/varcast/internal/estimate"
	"github.com/quantlab/varcast/internal/modelspec"
	"github.com/quantlab/varcast/internal/rolling"
	"github.com/quantlab/varcast/internal/store"
	"github.com/quantlab/varcast/internal/studyconfig"
	"github.com/quantlab/varcast/internal/vartest"
	"github.com/quantlab/varcast/pkg/config"
	"github.com/quantlab/varcast/pkg/logger"
)

// CellKey identifies one (series, spec) cell of the study grid.
type CellKey struct {
	Series string
	Spec   string
}

// Results is everything a run produced.
type Results struct {
	RunID     uuid.UUID
	Forecasts map[CellKey][]rolling.Record
	Fits      []dataio.Fit
	Summary   []dataio.SummaryRow
}

// Runner executes one study configuration.
type Runner struct {
	cfg  *studyconfig.Config
	hash string
	app  *config.Config
	log  *logger.Logger
	repo *store.Repository // nil disables persistence
}

// New creates a Runner. repo may be nil.
func New(cfg *studyconfig.Config, hash string, app *config.Config, log *logger.Logger, repo *store.Repository) *Runner {
	return &Runner{cfg: cfg, hash: hash, app: app, log: log, repo: repo}
}

// Run executes the study. baseDir anchors the relative input and output
// paths from the study file, conventionally the directory the file
// lives in.
func (r *Runner) Run(ctx context.Context, baseDir string) (*Results, error) {
	runID := uuid.New()
	if r.repo != nil {
		if err := r.repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("study: ensuring schema: %w", err)
		}
		var err error
		runID, err = r.repo.CreateRun(ctx, r.cfg.StudyID, r.hash)
		if err != nil {
			return nil, fmt.Errorf("study: creating run: %w", err)
		}
	}

	res := &Results{
		RunID:     runID,
		Forecasts: make(map[CellKey][]rolling.Record),
	}

	err := r.run(ctx, baseDir, res)
	if r.repo != nil {
		status := "completed"
		if err != nil {
			status = "failed"
		}
		if ferr := r.repo.FinishRun(ctx, runID, status); ferr != nil && err == nil {
			err = ferr
		}
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Runner) run(ctx context.Context, baseDir string, res *Results) error {
	for _, w := range studyconfig.Warn(r.cfg) {
		r.log.WithField("code", w.Code).Warn(w.Message)
	}

	type loaded struct {
		series *dataio.Series
		exog   []float64
	}
	inputs := make([]loaded, 0, len(r.cfg.Series))
	for _, sc := range r.cfg.Series {
		s, err := dataio.LoadSeries(resolve(baseDir, sc.File), dataio.LoadOptions{
			Name:   sc.Name,
			Column: sc.Column,
			Sheet:  sc.Sheet,
		})
		if err != nil {
			return err
		}

		st := dataio.Describe(s.Returns)
		r.log.WithFields(map[string]interface{}{
			"series":  s.Name,
			"n":       st.N,
			"mean":    st.Mean,
			"std":     st.Std,
			"skew":    st.Skew,
			"ex_kurt": st.ExcessKurtosis,
			"jb":      st.JarqueBera,
			"jb_pval": st.JBPValue,
		}).Info("Series loaded")

		in := loaded{series: s}
		if sc.ExogFile != "" {
			ex, err := dataio.LoadSeries(resolve(baseDir, sc.ExogFile), dataio.LoadOptions{
				Name:   sc.Name + "_exog",
				Column: "return",
			})
			if err != nil {
				return err
			}
			if ex.Len() != s.Len() {
				return fmt.Errorf("study: exogenous series %s has %d observations, want %d",
					sc.ExogFile, ex.Len(), s.Len())
			}
			in.exog = ex.Returns
		}
		inputs = append(inputs, in)
	}

	est := estimate.New(r.log, estimate.Options{
		MaxIterations: r.cfg.Estimation.MaxIterations,
		Restarts:      r.cfg.Estimation.Restarts,
	})
	forecaster := rolling.New(est, r.log, rolling.Options{
		Policy:      rolling.Policy(r.cfg.Window.Policy),
		WindowSize:  r.cfg.Window.Size,
		Levels:      r.cfg.ConfidenceLevels,
		Concurrency: r.concurrency(),
		WarmStart:   r.cfg.Estimation.WarmStart,
	})

	specs := r.cfg.Specs()
	for _, in := range inputs {
		for _, spec := range specs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if spec.NeedsExogenous() && in.exog == nil {
				r.log.WithFields(map[string]interface{}{
					"series": in.series.Name,
					"spec":   spec.Label(),
				}).Warn("Skipping ARX spec without exogenous series")
				continue
			}
			if err := r.runCell(ctx, est, forecaster, in.series, in.exog, spec, res); err != nil {
				return err
			}
		}
	}

	if err := r.export(baseDir, res); err != nil {
		return err
	}
	return r.persist(ctx, res)
}

// runCell fits the full sample for the parameter report, rolls the
// out-of-sample forecasts and backtests every confidence level.
func (r *Runner) runCell(ctx context.Context, est *estimate.Estimator, forecaster *rolling.Forecaster, s *dataio.Series, exog []float64, spec modelspec.Spec, res *Results) error {
	key := CellKey{Series: s.Name, Spec: spec.Label()}

	fm, err := est.Fit(s.Returns, exog, spec)
	if err != nil {
		r.log.WithError(err).WithFields(map[string]interface{}{
			"series": s.Name,
			"spec":   spec.Label(),
		}).Warn("Full-sample fit failed")
	} else {
		res.Fits = append(res.Fits, dataio.Fit{
			Series:     s.Name,
			Spec:       spec.Label(),
			ParamNames: fm.ParamNames,
			Params:     fm.Params,
			StdErrors:  fm.StdErrors,
			LogLik:     fm.LogLikelihood,
			NObs:       fm.NObs,
		})
	}

	records, err := forecaster.Run(ctx, s.Returns, s.Dates, exog, spec)
	if err != nil {
		return fmt.Errorf("study: %s/%s: %w", s.Name, spec.Label(), err)
	}
	res.Forecasts[key] = records

	rows, err := Backtest(s.Name, spec, records, r.cfg.ConfidenceLevels, r.cfg.Significance)
	if err != nil {
		return err
	}
	res.Summary = append(res.Summary, rows...)
	return nil
}

// Backtest runs the test battery on one forecast sequence and shapes
// the outcome into summary rows, one per confidence level. Only valid
// records enter the tests.
func Backtest(series string, spec modelspec.Spec, records []rolling.Record, levels []float64, significance float64) ([]dataio.SummaryRow, error) {
	valid := rolling.Valid(records)

	returns := make([]float64, len(valid))
	volForecast := make([]float64, len(valid))
	volRealized := make([]float64, len(valid))
	varForecast := make([]float64, len(valid))
	varRealized := make([]float64, len(valid))
	for i, rec := range valid {
		returns[i] = rec.Realized
		volForecast[i] = math.Sqrt(rec.Variance)
		volRealized[i] = math.Abs(rec.Realized)
		varForecast[i] = rec.Variance
		varRealized[i] = rec.Realized * rec.Realized
	}

	var maeVol, mseVol, mseVar float64
	if len(valid) > 0 {
		var err error
		if maeVol, err = vartest.MAE(volForecast, volRealized); err != nil {
			return nil, err
		}
		if mseVol, err = vartest.MSE(volForecast, volRealized); err != nil {
			return nil, err
		}
		if mseVar, err = vartest.MSE(varForecast, varRealized); err != nil {
			return nil, err
		}
	}

	rows := make([]dataio.SummaryRow, 0, len(levels))
	for _, lvl := range levels {
		varLoss := make([]float64, len(valid))
		for i, rec := range valid {
			varLoss[i] = rec.VaR[lvl]
		}

		suite := vartest.NewSuite(lvl)
		if significance > 0 {
			suite.Significance = significance
		}
		rep, err := suite.Run(returns, varLoss)
		if err != nil {
			return nil, err
		}

		rows = append(rows, dataio.SummaryRow{
			Series:   series,
			Mean:     string(spec.Mean),
			Variance: string(spec.Variance),
			Dist:     string(spec.Dist),
			Level:    lvl,

			Obs:     rep.Obs,
			Hits:    rep.Hits,
			HitRate: rep.HitRate,
			MAEVol:  maeVol,
			MSEVol:  mseVol,
			MSEVar:  mseVar,

			UCStat:    rep.UC.Stat,
			UCPValue:  rep.UC.PValue,
			CCIStat:   rep.CCI.Stat,
			CCIPValue: rep.CCI.PValue,
			CCStat:    rep.CC.Stat,
			CCPValue:  rep.CC.PValue,
			DurStat:   rep.Duration.Stat,
			DurPValue: rep.Duration.PValue,
			DQStat:    rep.DQ.Stat,
			DQPValue:  rep.DQ.PValue,
		})
	}
	return rows, nil
}

func (r *Runner) export(baseDir string, res *Results) error {
	dir := resolve(baseDir, r.cfg.Output.Dir)
	if r.cfg.Output.Dir == "" {
		dir = baseDir
	}
	ext := "." + r.cfg.Output.Format

	if len(res.Fits) > 0 {
		if err := dataio.WriteFits(filepath.Join(dir, "fits"+ext), res.Fits); err != nil {
			return err
		}
	}
	for key, records := range res.Forecasts {
		name := fmt.Sprintf("forecasts_%s_%s%s", key.Series, key.Spec, ext)
		if err := dataio.WriteForecasts(filepath.Join(dir, name), records, r.cfg.ConfidenceLevels); err != nil {
			return err
		}
	}
	if len(res.Summary) > 0 {
		if err := dataio.WriteSummary(filepath.Join(dir, "backtest"+ext), res.Summary); err != nil {
			return err
		}
	}

	r.log.WithFields(map[string]interface{}{
		"dir":   dir,
		"cells": len(res.Forecasts),
		"rows":  len(res.Summary),
	}).Info("Results exported")
	return nil
}

func (r *Runner) persist(ctx context.Context, res *Results) error {
	if r.repo == nil {
		return nil
	}

	if err := r.repo.SaveFits(ctx, res.RunID, res.Fits); err != nil {
		return fmt.Errorf("study: saving fits: %w", err)
	}
	for key, records := range res.Forecasts {
		if err := r.repo.SaveForecasts(ctx, res.RunID, key.Series, key.Spec, records, r.cfg.ConfidenceLevels); err != nil {
			return fmt.Errorf("study: saving forecasts for %s/%s: %w", key.Series, key.Spec, err)
		}
	}
	if err := r.repo.SaveBacktests(ctx, res.RunID, res.Summary); err != nil {
		return fmt.Errorf("study: saving backtests: %w", err)
	}

	r.log.WithField("run_id", res.RunID.String()).Info("Results persisted")
	return nil
}

func (r *Runner) concurrency() int {
	if r.cfg.Estimation.Concurrency > 0 {
		return r.cfg.Estimation.Concurrency
	}
	if r.app != nil {
		return r.app.Concurrency
	}
	return 0
}

func resolve(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
