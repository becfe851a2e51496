package dist

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// SkewedT is Hansen's (1994) skewed Student-t distribution, standardized
// to zero mean and unit variance. Shape parameters: degrees of freedom
// nu > 2 and skewness lambda in (-1,1); lambda < 0 puts more mass in the
// left tail.
type SkewedT struct{}

func (SkewedT) Name() string   { return "skewt" }
func (SkewedT) NumParams() int { return 2 }

func (SkewedT) Bounds() []Bound {
	return []Bound{
		{Min: 2.05, Max: 100},
		{Min: -0.99, Max: 0.99},
	}
}

func (SkewedT) Start() []float64 { return []float64{8, -0.1} }

func (SkewedT) Validate(params []float64) error {
	if len(params) != 2 {
		return fmt.Errorf("%w: want 2 parameters, got %d", ErrInvalidParameter, len(params))
	}
	nu, lam := params[0], params[1]
	if nu <= 2 || math.IsNaN(nu) {
		return fmt.Errorf("%w: degrees of freedom %g must exceed 2", ErrInvalidParameter, nu)
	}
	if lam <= -1 || lam >= 1 || math.IsNaN(lam) {
		return fmt.Errorf("%w: skewness %g must lie in (-1,1)", ErrInvalidParameter, lam)
	}
	return nil
}

// hansenConstants returns the a, b, c constants of Hansen's density.
func hansenConstants(nu, lam float64) (a, b, c float64) {
	lgNum, _ := math.Lgamma((nu + 1) / 2)
	lgDen, _ := math.Lgamma(nu / 2)
	c = math.Exp(lgNum-lgDen) / math.Sqrt(math.Pi*(nu-2))
	a = 4 * lam * c * (nu - 2) / (nu - 1)
	b = math.Sqrt(1 + 3*lam*lam - a*a)
	return a, b, c
}

func (SkewedT) LogDensity(z float64, params []float64) float64 {
	nu, lam := params[0], params[1]
	a, b, c := hansenConstants(nu, lam)

	skew := 1 + lam
	if z < -a/b {
		skew = 1 - lam
	}
	u := (b*z + a) / skew

	return math.Log(b) + math.Log(c) - (nu+1)/2*math.Log1p(u*u/(nu-2))
}

func (SkewedT) Quantile(p float64, params []float64) (float64, error) {
	if err := checkProb(p); err != nil {
		return math.NaN(), err
	}
	nu, lam := params[0], params[1]
	a, b, _ := hansenConstants(nu, lam)

	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: nu}
	scale := math.Sqrt((nu - 2) / nu)

	// The two branches correspond to the mass (1-lambda)/2 left of the mode.
	if p < (1-lam)/2 {
		return ((1-lam)*scale*t.Quantile(p/(1-lam)) - a) / b, nil
	}
	return ((1+lam)*scale*t.Quantile(0.5+(p-(1-lam)/2)/(1+lam)) - a) / b, nil
}
