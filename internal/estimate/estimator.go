// Package estimate fits ARCH-family models by maximum likelihood. The
// joint log-likelihood of the standardized residuals is maximized with
// Nelder-Mead over the stacked mean/variance/distribution parameter
// vector; constraint violations are penalized rather than propagated, so
// the optimizer can wander and recover. Standard errors come from the
// inverse numerical Hessian at the optimum.
package estimate

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/quantlab/varcast/internal/dist"
	"github.com/quantlab/varcast/internal/meanmodel"
	"github.com/quantlab/varcast/internal/modelspec"
	"github.com/quantlab/varcast/internal/variance"
	"github.com/quantlab/varcast/pkg/logger"
)

var (
	// ErrConvergence is returned when no optimizer restart reached
	// tolerance within the iteration budget.
	ErrConvergence = errors.New("estimate: optimizer failed to converge")

	// ErrInsufficientData is returned when the series is shorter than
	// the minimum required by the requested lag structure.
	ErrInsufficientData = errors.New("estimate: insufficient observations")
)

// penalty is the objective value assigned to parameter proposals that
// violate a constraint or produce a non-finite likelihood.
const penalty = 1e10

// Options tunes the estimator.
type Options struct {
	MaxIterations int     // Nelder-Mead major iteration budget per restart
	Restarts      int     // perturbed restarts beyond the heuristic start
	Tolerance     float64 // absolute function-value convergence tolerance
	Seed          int64   // seed for restart perturbations
}

func (o *Options) fillDefaults() {
	if o.MaxIterations <= 0 {
		o.MaxIterations = 2000
	}
	if o.Restarts < 0 {
		o.Restarts = 0
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-8
	}
	if o.Seed == 0 {
		o.Seed = 1
	}
}

// Estimator fits models to return series.
type Estimator struct {
	opts Options
	log  *logger.Logger
}

// New creates an Estimator.
func New(log *logger.Logger, opts Options) *Estimator {
	opts.fillDefaults()
	return &Estimator{opts: opts, log: log}
}

// Fit estimates the given spec on the return series by maximum
// likelihood. exog may be nil unless the spec is ARX.
func (e *Estimator) Fit(returns, exog []float64, spec modelspec.Spec) (*FittedModel, error) {
	return e.fit(returns, exog, spec, nil)
}

// FitFrom behaves like Fit but takes an explicit starting parameter
// vector, e.g. the previous rolling origin's optimum.
func (e *Estimator) FitFrom(returns, exog []float64, spec modelspec.Spec, start []float64) (*FittedModel, error) {
	return e.fit(returns, exog, spec, start)
}

func (e *Estimator) fit(returns, exog []float64, spec modelspec.Spec, warmStart []float64) (*FittedModel, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if len(returns) < spec.MinObservations() {
		return nil, fmt.Errorf("%w: %d observations, need %d for %s",
			ErrInsufficientData, len(returns), spec.MinObservations(), spec.Label())
	}
	if spec.NeedsExogenous() {
		if len(exog) < len(returns) {
			return nil, meanmodel.ErrMissingExogenous
		}
	}

	mm, err := meanmodel.New(spec)
	if err != nil {
		return nil, err
	}
	filt, err := variance.New(spec)
	if err != nil {
		return nil, err
	}
	d, err := dist.New(spec.Dist)
	if err != nil {
		return nil, err
	}

	meanN, varN, distN := mm.NumParams(), filt.NumParams(), d.NumParams()
	dim := meanN + varN + distN
	nObs := len(returns) - mm.Lags()

	// Scratch buffers local to this fit; rolling windows run many fits
	// in parallel and must not share state.
	resid := make([]float64, nObs)
	h := make([]float64, nObs)

	objective := func(x []float64) float64 {
		return negLogLikelihood(x, meanN, varN, mm, filt, d, returns, exog, resid, h)
	}

	starts := e.startPoints(mm, filt, d, returns, exog, warmStart, dim)

	best, evals, err := e.minimize(objective, starts)
	if err != nil {
		return nil, err
	}

	// Recompute the path at the optimum so the returned buffers hold
	// the optimal fit, not the last proposal evaluated.
	ll := -objective(best.X)
	pathResid := make([]float64, nObs)
	pathH := make([]float64, nObs)
	copy(pathResid, resid)
	copy(pathH, h)

	se := e.standardErrors(objective, best.X)

	names := make([]string, 0, dim)
	for i := 0; i < meanN; i++ {
		names = append(names, fmt.Sprintf("mu[%d]", i))
	}
	names = append(names, filt.ParamNames()...)
	for i := 0; i < distN; i++ {
		names = append(names, fmt.Sprintf("shape[%d]", i))
	}

	return &FittedModel{
		Spec:          spec,
		Params:        best.X,
		ParamNames:    names,
		StdErrors:     se,
		LogLikelihood: ll,
		Resid:         pathResid,
		Variance:      pathH,
		NObs:          nObs,
		FuncEvals:     evals,
		meanN:         meanN,
		varN:          varN,
		distN:         distN,
	}, nil
}

// negLogLikelihood evaluates the penalized negative joint log-likelihood
// for one parameter proposal, writing the residual and variance paths
// into the provided scratch buffers.
func negLogLikelihood(
	x []float64,
	meanN, varN int,
	mm meanmodel.Model,
	filt variance.Filter,
	d dist.Distribution,
	returns, exog []float64,
	resid, h []float64,
) float64 {
	meanParams := x[:meanN]
	varParams := x[meanN : meanN+varN]
	distParams := x[meanN+varN:]

	if filt.Validate(varParams) != nil || d.Validate(distParams) != nil {
		return penalty
	}

	meanmodel.Residuals(mm, returns, exog, meanParams, resid)
	filt.Path(resid, varParams, h)

	var ll float64
	for t := range resid {
		ht := h[t]
		if ht <= 0 || math.IsNaN(ht) || math.IsInf(ht, 0) {
			return penalty
		}
		z := resid[t] / math.Sqrt(ht)
		ll += d.LogDensity(z, distParams) - 0.5*math.Log(ht)
	}
	if math.IsNaN(ll) || math.IsInf(ll, 0) {
		return penalty
	}
	return -ll
}

// startPoints assembles the heuristic start plus bounded perturbations
// of it, with an optional warm start first.
func (e *Estimator) startPoints(
	mm meanmodel.Model,
	filt variance.Filter,
	d dist.Distribution,
	returns, exog []float64,
	warmStart []float64,
	dim int,
) [][]float64 {
	lags := mm.Lags()
	resid := make([]float64, len(returns)-lags)
	meanStart := mm.Start(returns)
	meanmodel.Residuals(mm, returns, exog, meanStart, resid)

	base := make([]float64, 0, dim)
	base = append(base, meanStart...)
	base = append(base, filt.Start(resid)...)
	base = append(base, d.Start()...)

	starts := make([][]float64, 0, e.opts.Restarts+2)
	if len(warmStart) == dim {
		starts = append(starts, append([]float64(nil), warmStart...))
	}
	starts = append(starts, base)

	// Perturbed restarts: jitter the variance and shape blocks within
	// their bounds, keep the mean block at the moment estimate.
	rng := rand.New(rand.NewSource(e.opts.Seed))
	meanN := mm.NumParams()
	varBounds := filt.Bounds()
	distBounds := d.Bounds()
	for r := 0; r < e.opts.Restarts; r++ {
		p := append([]float64(nil), base...)
		for i, b := range varBounds {
			p[meanN+i] = jitter(rng, p[meanN+i], b.Min, b.Max)
		}
		for i, b := range distBounds {
			j := meanN + len(varBounds) + i
			p[j] = jitter(rng, p[j], b.Min, b.Max)
		}
		starts = append(starts, p)
	}
	return starts
}

func jitter(rng *rand.Rand, v, lo, hi float64) float64 {
	v *= 1 + 0.4*(rng.Float64()-0.5)
	if v <= lo {
		v = lo + 0.05*(hi-lo)
	}
	if v >= hi {
		v = hi - 0.05*(hi-lo)
	}
	return v
}

// minimize runs Nelder-Mead from each start and keeps the best
// converged optimum.
func (e *Estimator) minimize(objective func([]float64) float64, starts [][]float64) (*optimize.Result, int, error) {
	problem := optimize.Problem{Func: objective}

	var best *optimize.Result
	evals := 0
	for _, x0 := range starts {
		settings := &optimize.Settings{
			MajorIterations: e.opts.MaxIterations,
			Converger: &optimize.FunctionConverge{
				Absolute:   e.opts.Tolerance,
				Iterations: 100,
			},
		}
		res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
		if res != nil {
			evals += res.Stats.FuncEvaluations
		}
		if err != nil || res == nil || !converged(res.Status) || res.F >= penalty {
			continue
		}
		if best == nil || res.F < best.F {
			best = res
		}
	}
	if best == nil {
		return nil, evals, ErrConvergence
	}
	return best, evals, nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.FunctionConvergence,
		optimize.StepConvergence,
		optimize.FunctionThreshold,
		optimize.MethodConverge:
		return true
	default:
		return false
	}
}

// standardErrors inverts the numerical Hessian of the negative
// log-likelihood at the optimum. Failure to invert is reported as NaN
// entries, not an error.
func (e *Estimator) standardErrors(objective func([]float64) float64, x []float64) []float64 {
	dim := len(x)
	se := make([]float64, dim)
	for i := range se {
		se[i] = math.NaN()
	}

	hess := mat.NewDense(dim, dim, nil)
	step := make([]float64, dim)
	for i := range x {
		step[i] = math.Max(1e-4*math.Abs(x[i]), 1e-5)
	}

	f0 := objective(x)
	xi := append([]float64(nil), x...)
	for i := 0; i < dim; i++ {
		// Diagonal: central second difference.
		xi[i] = x[i] + step[i]
		fp := objective(xi)
		xi[i] = x[i] - step[i]
		fm := objective(xi)
		xi[i] = x[i]
		hess.Set(i, i, (fp-2*f0+fm)/(step[i]*step[i]))

		for j := i + 1; j < dim; j++ {
			xi[i], xi[j] = x[i]+step[i], x[j]+step[j]
			fpp := objective(xi)
			xi[j] = x[j] - step[j]
			fpm := objective(xi)
			xi[i] = x[i] - step[i]
			fmm := objective(xi)
			xi[j] = x[j] + step[j]
			fmp := objective(xi)
			xi[i], xi[j] = x[i], x[j]

			hij := (fpp - fpm - fmp + fmm) / (4 * step[i] * step[j])
			hess.Set(i, j, hij)
			hess.Set(j, i, hij)
		}
	}

	var cov mat.Dense
	if err := cov.Inverse(hess); err != nil {
		if e.log != nil {
			e.log.WithError(err).Warn("Hessian not invertible, standard errors unavailable")
		}
		return se
	}
	for i := 0; i < dim; i++ {
		if v := cov.At(i, i); v > 0 {
			se[i] = math.Sqrt(v)
		}
	}
	return se
}
