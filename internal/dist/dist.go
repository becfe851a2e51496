// Package dist provides the standardized (zero-mean, unit-variance) error
// distributions used by the volatility models: normal, Student-t, Hansen
// skewed-t and the generalized error distribution. Each exposes the
// log-density and quantile of the standardized form so it can be combined
// multiplicatively with a conditional variance filter.
package dist

import (
	"errors"
	"fmt"

	"github.com/quantlab/varcast/internal/modelspec"
)

var (
	// ErrInvalidParameter is returned when shape parameters violate
	// the distribution's support constraints.
	ErrInvalidParameter = errors.New("dist: invalid shape parameter")

	// ErrOutOfRange is returned when a quantile probability is not in (0,1).
	ErrOutOfRange = errors.New("dist: probability out of range")
)

// Bound is a box constraint on one shape parameter.
type Bound struct {
	Min float64
	Max float64
}

// Distribution is a standardized error distribution.
type Distribution interface {
	Name() string

	// NumParams returns the number of free shape parameters.
	NumParams() int

	// Bounds returns box constraints for each shape parameter.
	Bounds() []Bound

	// Validate checks the shape parameters against their support.
	Validate(params []float64) error

	// LogDensity evaluates the log density at standardized value z.
	// Parameters must already satisfy Validate.
	LogDensity(z float64, params []float64) float64

	// Quantile returns the p-quantile of the standardized distribution.
	Quantile(p float64, params []float64) (float64, error)

	// Start returns a reasonable shape-parameter starting point for
	// likelihood maximization.
	Start() []float64
}

// New returns the distribution for the given tag.
func New(tag modelspec.DistType) (Distribution, error) {
	switch tag {
	case modelspec.DistNormal:
		return Normal{}, nil
	case modelspec.DistStudent:
		return StudentT{}, nil
	case modelspec.DistSkewT:
		return SkewedT{}, nil
	case modelspec.DistGED:
		return GED{}, nil
	default:
		return nil, fmt.Errorf("dist: unknown distribution %q", tag)
	}
}

func checkProb(p float64) error {
	if p <= 0 || p >= 1 {
		return fmt.Errorf("%w: %g", ErrOutOfRange, p)
	}
	return nil
}
