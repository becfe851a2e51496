package store

// ddl creates the result schema. Idempotent; applied at the start of
// any persisted run.
const ddl = `
CREATE SCHEMA IF NOT EXISTS varcast;

CREATE TABLE IF NOT EXISTS varcast.runs (
	run_id       UUID PRIMARY KEY,
	study_id     TEXT NOT NULL,
	config_hash  TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	finished_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS varcast.fits (
	run_id     UUID NOT NULL REFERENCES varcast.runs(run_id) ON DELETE CASCADE,
	series     TEXT NOT NULL,
	spec       TEXT NOT NULL,
	param      TEXT NOT NULL,
	value      DOUBLE PRECISION NOT NULL,
	std_error  DOUBLE PRECISION,
	loglik     DOUBLE PRECISION NOT NULL,
	nobs       INTEGER NOT NULL,
	PRIMARY KEY (run_id, series, spec, param)
);

CREATE TABLE IF NOT EXISTS varcast.forecasts (
	run_id    UUID NOT NULL REFERENCES varcast.runs(run_id) ON DELETE CASCADE,
	series    TEXT NOT NULL,
	spec      TEXT NOT NULL,
	origin    INTEGER NOT NULL,
	date      DATE,
	level     DOUBLE PRECISION NOT NULL,
	mean      DOUBLE PRECISION NOT NULL,
	variance  DOUBLE PRECISION NOT NULL,
	var_loss  DOUBLE PRECISION NOT NULL,
	realized  DOUBLE PRECISION NOT NULL,
	valid     BOOLEAN NOT NULL,
	error     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, series, spec, origin, level)
);

CREATE INDEX IF NOT EXISTS idx_forecasts_run_spec
	ON varcast.forecasts (run_id, series, spec);

CREATE TABLE IF NOT EXISTS varcast.backtests (
	run_id      UUID NOT NULL REFERENCES varcast.runs(run_id) ON DELETE CASCADE,
	series      TEXT NOT NULL,
	mean_model  TEXT NOT NULL,
	variance    TEXT NOT NULL,
	dist        TEXT NOT NULL,
	level       DOUBLE PRECISION NOT NULL,
	obs         INTEGER NOT NULL,
	hits        INTEGER NOT NULL,
	hit_rate    DOUBLE PRECISION NOT NULL,
	mae_vol     DOUBLE PRECISION NOT NULL,
	mse_vol     DOUBLE PRECISION NOT NULL,
	mse_var     DOUBLE PRECISION NOT NULL,
	uc_stat     DOUBLE PRECISION,
	uc_pvalue   DOUBLE PRECISION,
	cci_stat    DOUBLE PRECISION,
	cci_pvalue  DOUBLE PRECISION,
	cc_stat     DOUBLE PRECISION,
	cc_pvalue   DOUBLE PRECISION,
	dur_stat    DOUBLE PRECISION,
	dur_pvalue  DOUBLE PRECISION,
	dq_stat     DOUBLE PRECISION,
	dq_pvalue   DOUBLE PRECISION,
	PRIMARY KEY (run_id, series, mean_model, variance, dist, level)
);
`
