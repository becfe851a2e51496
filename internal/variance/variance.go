// Package variance implements the conditional variance filters: GARCH,
// EGARCH and FIGARCH. A filter is a recursion h(t) = f(past variances,
// past residuals; theta) run over a mean-model residual series. All
// filters backcast the pre-sample state to the sample variance of the
// residuals, so early-sample likelihood weighting is the same across
// models.
package variance

import (
	"errors"
	"fmt"
	"math"

	"github.com/quantlab/varcast/internal/modelspec"
)

// ErrNonStationary is returned when filter parameters violate the
// stationarity / positivity constraints. The estimator treats it as a
// rejected proposal, not a fatal error.
var ErrNonStationary = errors.New("variance: non-stationary parameters")

// Bound is a box constraint on one filter parameter.
type Bound struct {
	Min float64
	Max float64
}

// Filter is a recursive conditional variance model.
type Filter interface {
	Name() string

	// NumParams returns the number of free filter parameters.
	NumParams() int

	// ParamNames returns a label per parameter, in vector order.
	ParamNames() []string

	// Bounds returns box constraints for each parameter, used for
	// starting-value perturbation.
	Bounds() []Bound

	// Start returns starting values anchored at the unconditional
	// variance of the residuals.
	Start(resid []float64) []float64

	// Validate checks stationarity and positivity constraints.
	Validate(params []float64) error

	// Path runs the recursion over resid and fills h with the
	// conditional variance at every step. len(h) == len(resid).
	// Parameters must already satisfy Validate; the path is then
	// strictly positive.
	Path(resid, params, h []float64)

	// Forecast projects the variance one step beyond the end of resid,
	// given the in-sample path h.
	Forecast(resid, h, params []float64) float64
}

// New returns the variance filter for the given spec.
func New(spec modelspec.Spec) (Filter, error) {
	switch spec.Variance {
	case modelspec.VarGARCH:
		return &GARCH{P: spec.ArchP, Q: spec.GarchQ}, nil
	case modelspec.VarEGARCH:
		return &EGARCH{P: spec.ArchP, Q: spec.GarchQ}, nil
	case modelspec.VarFIGARCH:
		return &FIGARCH{Trunc: spec.TruncationLags()}, nil
	default:
		return nil, fmt.Errorf("variance: unknown variance type %q", spec.Variance)
	}
}

// backcast returns the pre-sample variance state: the sample second
// moment of the residuals, floored away from zero.
func backcast(resid []float64) float64 {
	var sum float64
	for _, e := range resid {
		sum += e * e
	}
	hbar := sum / float64(len(resid))
	if hbar < 1e-12 {
		hbar = 1e-12
	}
	return hbar
}

func allFinite(params []float64) bool {
	for _, p := range params {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return false
		}
	}
	return true
}
