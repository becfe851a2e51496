// Package store persists study runs, fitted models, forecast sequences
// and backtest summaries to PostgreSQL.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantlab/varcast/internal/dataio"
	"github.com/quantlab/varcast/internal/rolling"
)

// Repository is the result store for study runs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a repository on an existing pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema applies the result schema. Safe to call on every run.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, ddl)
	return err
}

// Run identifies one execution of a study configuration.
type Run struct {
	ID         uuid.UUID
	StudyID    string
	ConfigHash string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// CreateRun registers a new run and returns its ID.
func (r *Repository) CreateRun(ctx context.Context, studyID, configHash string) (uuid.UUID, error) {
	id := uuid.New()
	query := `
		INSERT INTO varcast.runs (run_id, study_id, config_hash)
		VALUES ($1, $2, $3)`

	_, err := r.pool.Exec(ctx, query, id, studyID, configHash)
	return id, err
}

// FinishRun marks a run completed or failed.
func (r *Repository) FinishRun(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE varcast.runs
		SET status = $2, finished_at = NOW()
		WHERE run_id = $1`

	_, err := r.pool.Exec(ctx, query, id, status)
	return err
}

// ListRuns returns the most recent runs, newest first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT run_id, study_id, config_hash, status, started_at, finished_at
		FROM varcast.runs
		ORDER BY started_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID, &run.StudyID, &run.ConfigHash,
			&run.Status, &run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// SaveFits stores fitted parameters in long format, one row per parameter.
func (r *Repository) SaveFits(ctx context.Context, runID uuid.UUID, fits []dataio.Fit) error {
	if len(fits) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO varcast.fits (run_id, series, spec, param, value, std_error, loglik, nobs)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, series, spec, param) DO UPDATE SET
			value = EXCLUDED.value,
			std_error = EXCLUDED.std_error,
			loglik = EXCLUDED.loglik,
			nobs = EXCLUDED.nobs`

	n := 0
	for _, f := range fits {
		for i, name := range f.ParamNames {
			var se *float64
			if i < len(f.StdErrors) {
				se = &f.StdErrors[i]
			}
			batch.Queue(query, runID, f.Series, f.Spec, name, f.Params[i], se, f.LogLik, f.NObs)
			n++
		}
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}

	return nil
}

// SaveForecasts stores a rolling forecast sequence, one row per
// (origin, level). Invalid origins are stored too, with their failure
// reason and a zero VaR.
func (r *Repository) SaveForecasts(ctx context.Context, runID uuid.UUID, series, spec string, records []rolling.Record, levels []float64) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO varcast.forecasts
			(run_id, series, spec, origin, date, level, mean, variance, var_loss, realized, valid, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (run_id, series, spec, origin, level) DO UPDATE SET
			date = EXCLUDED.date,
			mean = EXCLUDED.mean,
			variance = EXCLUDED.variance,
			var_loss = EXCLUDED.var_loss,
			realized = EXCLUDED.realized,
			valid = EXCLUDED.valid,
			error = EXCLUDED.error`

	n := 0
	for _, rec := range records {
		var date *time.Time
		if !rec.Date.IsZero() {
			d := rec.Date
			date = &d
		}
		for _, lvl := range levels {
			batch.Queue(query, runID, series, spec, rec.Origin, date, lvl,
				rec.Mean, rec.Variance, rec.VaR[lvl], rec.Realized, rec.Valid, rec.Err)
			n++
		}
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}

	return nil
}

// GetForecasts reads back the forecast sequence for one (run, series,
// spec), reassembling the per-level rows into records.
func (r *Repository) GetForecasts(ctx context.Context, runID uuid.UUID, series, spec string) ([]rolling.Record, error) {
	query := `
		SELECT origin, date, level, mean, variance, var_loss, realized, valid, error
		FROM varcast.forecasts
		WHERE run_id = $1 AND series = $2 AND spec = $3
		ORDER BY origin, level`

	rows, err := r.pool.Query(ctx, query, runID, series, spec)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []rolling.Record
	byOrigin := map[int]int{}
	for rows.Next() {
		var (
			origin                             int
			date                               *time.Time
			level, mean, vari, varLoss, realzd float64
			valid                              bool
			errMsg                             string
		)
		if err := rows.Scan(&origin, &date, &level, &mean, &vari, &varLoss, &realzd, &valid, &errMsg); err != nil {
			return nil, err
		}

		idx, ok := byOrigin[origin]
		if !ok {
			rec := rolling.Record{
				Origin:   origin,
				Mean:     mean,
				Variance: vari,
				VaR:      map[float64]float64{},
				Realized: realzd,
				Valid:    valid,
				Err:      errMsg,
			}
			if date != nil {
				rec.Date = *date
			}
			records = append(records, rec)
			idx = len(records) - 1
			byOrigin[origin] = idx
		}
		records[idx].VaR[level] = varLoss
	}

	return records, rows.Err()
}

// SaveBacktests stores the backtest summary rows for a run.
func (r *Repository) SaveBacktests(ctx context.Context, runID uuid.UUID, rows []dataio.SummaryRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO varcast.backtests
			(run_id, series, mean_model, variance, dist, level,
			 obs, hits, hit_rate, mae_vol, mse_vol, mse_var,
			 uc_stat, uc_pvalue, cci_stat, cci_pvalue, cc_stat, cc_pvalue,
			 dur_stat, dur_pvalue, dq_stat, dq_pvalue)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (run_id, series, mean_model, variance, dist, level) DO UPDATE SET
			obs = EXCLUDED.obs,
			hits = EXCLUDED.hits,
			hit_rate = EXCLUDED.hit_rate,
			mae_vol = EXCLUDED.mae_vol,
			mse_vol = EXCLUDED.mse_vol,
			mse_var = EXCLUDED.mse_var,
			uc_stat = EXCLUDED.uc_stat,
			uc_pvalue = EXCLUDED.uc_pvalue,
			cci_stat = EXCLUDED.cci_stat,
			cci_pvalue = EXCLUDED.cci_pvalue,
			cc_stat = EXCLUDED.cc_stat,
			cc_pvalue = EXCLUDED.cc_pvalue,
			dur_stat = EXCLUDED.dur_stat,
			dur_pvalue = EXCLUDED.dur_pvalue,
			dq_stat = EXCLUDED.dq_stat,
			dq_pvalue = EXCLUDED.dq_pvalue`

	for _, s := range rows {
		batch.Queue(query, runID, s.Series, s.Mean, s.Variance, s.Dist, s.Level,
			s.Obs, s.Hits, s.HitRate, s.MAEVol, s.MSEVol, s.MSEVar,
			s.UCStat, s.UCPValue, s.CCIStat, s.CCIPValue, s.CCStat, s.CCPValue,
			s.DurStat, s.DurPValue, s.DQStat, s.DQPValue)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}

	return nil
}
