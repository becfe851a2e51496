package dist

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// StudentT is the standardized Student-t distribution with unit variance.
// Shape parameter: degrees of freedom nu > 2 (required for the variance
// to exist).
type StudentT struct{}

func (StudentT) Name() string   { return "t" }
func (StudentT) NumParams() int { return 1 }

func (StudentT) Bounds() []Bound {
	return []Bound{{Min: 2.05, Max: 100}}
}

func (StudentT) Start() []float64 { return []float64{8} }

func (StudentT) Validate(params []float64) error {
	if len(params) != 1 {
		return fmt.Errorf("%w: want 1 parameter, got %d", ErrInvalidParameter, len(params))
	}
	if nu := params[0]; nu <= 2 || math.IsNaN(nu) {
		return fmt.Errorf("%w: degrees of freedom %g must exceed 2", ErrInvalidParameter, params[0])
	}
	return nil
}

func (StudentT) LogDensity(z float64, params []float64) float64 {
	nu := params[0]
	lgNum, _ := math.Lgamma((nu + 1) / 2)
	lgDen, _ := math.Lgamma(nu / 2)
	return lgNum - lgDen - 0.5*math.Log(math.Pi*(nu-2)) -
		(nu+1)/2*math.Log1p(z*z/(nu-2))
}

func (StudentT) Quantile(p float64, params []float64) (float64, error) {
	if err := checkProb(p); err != nil {
		return math.NaN(), err
	}
	nu := params[0]
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: nu}
	// Rescale the raw t quantile to unit variance.
	return t.Quantile(p) * math.Sqrt((nu-2)/nu), nil
}
