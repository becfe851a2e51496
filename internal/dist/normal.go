package dist

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const logSqrt2Pi = 0.9189385332046727 // ln(sqrt(2*pi))

// Normal is the standard normal distribution. It has no shape parameters.
type Normal struct{}

func (Normal) Name() string     { return "normal" }
func (Normal) NumParams() int   { return 0 }
func (Normal) Bounds() []Bound  { return nil }
func (Normal) Start() []float64 { return nil }

func (Normal) Validate(params []float64) error {
	if len(params) != 0 {
		return ErrInvalidParameter
	}
	return nil
}

func (Normal) LogDensity(z float64, _ []float64) float64 {
	return -logSqrt2Pi - 0.5*z*z
}

func (Normal) Quantile(p float64, _ []float64) (float64, error) {
	if err := checkProb(p); err != nil {
		return math.NaN(), err
	}
	return distuv.UnitNormal.Quantile(p), nil
}
