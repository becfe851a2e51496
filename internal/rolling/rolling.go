// Package rolling produces out-of-sample one-step-ahead forecast
// sequences by re-estimating a model at every origin of a sliding or
// expanding window. Re-estimation at every origin is the point: no state
// is reused between origins, so the fits are independent and run on a
// bounded worker pool.
package rolling

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantlab/varcast/internal/estimate"
	"github.com/quantlab/varcast/internal/modelspec"
	"github.com/quantlab/varcast/pkg/logger"
)

// Policy selects how the estimation window grows as the origin advances.
type Policy string

const (
	// PolicyRolling keeps a fixed-size window ending at the origin.
	PolicyRolling Policy = "rolling"
	// PolicyExpanding anchors the window at the start of the series.
	PolicyExpanding Policy = "expanding"
)

// ErrWindowTooLarge is returned when the window leaves no out-of-sample
// region.
var ErrWindowTooLarge = errors.New("rolling: window leaves no out-of-sample observations")

// Record is one out-of-sample forecast row. Realized is filled from the
// observation at the origin itself, which is what makes backtesting
// possible. Invalid records mark origins whose fit failed; they carry the
// failure reason and are excluded downstream.
type Record struct {
	Origin   int
	Date     time.Time
	Mean     float64
	Variance float64
	VaR      map[float64]float64
	Realized float64
	Valid    bool
	Err      string

	// fitted parameter vector, kept for warm-started sequential runs
	params []float64
}

// Options configures a rolling run.
type Options struct {
	Policy      Policy
	WindowSize  int
	Levels      []float64 // VaR confidence levels
	Concurrency int       // 0 means GOMAXPROCS
	WarmStart   bool      // start each fit from the previous origin's optimum
}

// Forecaster drives an Estimator across origins.
type Forecaster struct {
	est  *estimate.Estimator
	log  *logger.Logger
	opts Options
}

// New creates a Forecaster. Default levels are 1% and 5%.
func New(est *estimate.Estimator, log *logger.Logger, opts Options) *Forecaster {
	if opts.Policy == "" {
		opts.Policy = PolicyRolling
	}
	if len(opts.Levels) == 0 {
		opts.Levels = []float64{0.01, 0.05}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	return &Forecaster{est: est, log: log, opts: opts}
}

// Run produces one Record per out-of-sample origin for the given spec.
// dates may be nil; exog is required for ARX specs and must cover the
// whole series. Per-origin estimation failures do not abort the run.
func (f *Forecaster) Run(ctx context.Context, returns []float64, dates []time.Time, exog []float64, spec modelspec.Spec) ([]Record, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	w := f.opts.WindowSize
	if w < spec.MinObservations() {
		return nil, fmt.Errorf("rolling: window %d below minimum %d for %s", w, spec.MinObservations(), spec.Label())
	}
	if w >= len(returns) {
		return nil, fmt.Errorf("%w: window %d, series %d", ErrWindowTooLarge, w, len(returns))
	}

	records := make([]Record, len(returns)-w)

	start := time.Now()
	if f.opts.WarmStart {
		f.runSequential(ctx, returns, dates, exog, spec, records)
	} else {
		f.runParallel(ctx, returns, dates, exog, spec, records)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	valid := 0
	for _, r := range records {
		if r.Valid {
			valid++
		}
	}
	f.log.WithFields(map[string]interface{}{
		"spec":    spec.Label(),
		"origins": len(records),
		"valid":   valid,
		"elapsed": time.Since(start).String(),
	}).Info("Rolling forecast complete")

	return records, nil
}

func (f *Forecaster) runParallel(ctx context.Context, returns []float64, dates []time.Time, exog []float64, spec modelspec.Spec, records []Record) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Concurrency)

	for i := range records {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Each task writes only its own slot.
			records[i] = f.forecastOrigin(returns, dates, exog, spec, f.opts.WindowSize+i, nil)
			return nil
		})
	}
	_ = g.Wait()
}

func (f *Forecaster) runSequential(ctx context.Context, returns []float64, dates []time.Time, exog []float64, spec modelspec.Spec, records []Record) {
	var prev []float64
	for i := range records {
		if ctx.Err() != nil {
			return
		}
		rec := f.forecastOrigin(returns, dates, exog, spec, f.opts.WindowSize+i, prev)
		records[i] = rec
		if rec.Valid {
			prev = rec.params
		}
	}
}

// forecastOrigin fits the window ending at origin and projects one step
// ahead to origin itself.
func (f *Forecaster) forecastOrigin(returns []float64, dates []time.Time, exog []float64, spec modelspec.Spec, origin int, warmStart []float64) Record {
	rec := Record{Origin: origin, Realized: returns[origin]}
	if dates != nil {
		rec.Date = dates[origin]
	}

	lo := 0
	if f.opts.Policy == PolicyRolling {
		lo = origin - f.opts.WindowSize
	}
	window := returns[lo:origin]
	var windowExog []float64
	if exog != nil {
		windowExog = exog[lo : origin+1] // one past the window for the ARX forecast
	}

	var fm *estimate.FittedModel
	var err error
	if warmStart != nil {
		fm, err = f.est.FitFrom(window, windowExog, spec, warmStart)
	} else {
		fm, err = f.est.Fit(window, windowExog, spec)
	}
	if err != nil {
		f.log.WithError(err).WithFields(map[string]interface{}{
			"spec":   spec.Label(),
			"origin": origin,
		}).Warn("Origin fit failed, marking record invalid")
		rec.Err = err.Error()
		return rec
	}

	mean, vari, err := fm.Forecast(window, windowExog)
	if err != nil {
		rec.Err = err.Error()
		return rec
	}

	rec.Mean = mean
	rec.Variance = vari
	rec.VaR = make(map[float64]float64, len(f.opts.Levels))
	for _, alpha := range f.opts.Levels {
		v, err := fm.VaR(mean, vari, alpha)
		if err != nil {
			rec.Err = err.Error()
			return rec
		}
		rec.VaR[alpha] = v
	}
	rec.Valid = true
	rec.params = fm.Params
	return rec
}

// Valid filters a record sequence down to its valid rows.
func Valid(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Valid {
			out = append(out, r)
		}
	}
	return out
}
