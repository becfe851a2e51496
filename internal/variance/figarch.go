package variance

import (
	"fmt"
)

// FIGARCH is the fractionally integrated GARCH(1,d,1) filter of Baillie,
// Bollerslev and Mikkelsen (1996). The fractional differencing parameter
// d in (0,1) gives hyperbolic rather than exponential decay of shock
// impact. The ARCH(inf) representation
//
//	h(t) = omega + sum_k lambda_k * e(t-k)^2
//
// is truncated at Trunc lags; lambda weights follow from the recursion on
// the fractional-differencing coefficients. Parameters:
// [omega, phi, d, beta].
type FIGARCH struct {
	Trunc int
}

func (g *FIGARCH) Name() string   { return fmt.Sprintf("figarch(1,d,1) trunc=%d", g.Trunc) }
func (g *FIGARCH) NumParams() int { return 4 }

func (g *FIGARCH) ParamNames() []string {
	return []string{"omega", "phi", "d", "beta"}
}

func (g *FIGARCH) Bounds() []Bound {
	return []Bound{
		{Min: 1e-8, Max: 10},
		{Min: 0, Max: 0.5},
		{Min: 0.01, Max: 0.99},
		{Min: 0, Max: 0.999},
	}
}

func (g *FIGARCH) Start(resid []float64) []float64 {
	hbar := backcast(resid)
	// phi, d, beta chosen well inside the constraint set.
	return []float64{hbar * 0.1, 0.2, 0.4, 0.5}
}

// Validate enforces the Bollerslev-Mikkelsen sufficient conditions for a
// non-negative conditional variance: omega > 0, 0 < d < 1,
// 0 <= phi <= (1-d)/2 and 0 <= beta <= phi + d.
func (g *FIGARCH) Validate(params []float64) error {
	if len(params) != 4 {
		return fmt.Errorf("%w: want 4 parameters, got %d", ErrNonStationary, len(params))
	}
	if !allFinite(params) {
		return fmt.Errorf("%w: non-finite parameters", ErrNonStationary)
	}
	omega, phi, d, beta := params[0], params[1], params[2], params[3]
	if omega <= 0 {
		return fmt.Errorf("%w: omega %g must be positive", ErrNonStationary, omega)
	}
	if d <= 0 || d >= 1 {
		return fmt.Errorf("%w: fractional d %g must lie in (0,1)", ErrNonStationary, d)
	}
	if phi < 0 || phi > (1-d)/2 {
		return fmt.Errorf("%w: phi %g outside [0,(1-d)/2]", ErrNonStationary, phi)
	}
	if beta < 0 || beta > phi+d {
		return fmt.Errorf("%w: beta %g outside [0,phi+d]", ErrNonStationary, beta)
	}
	return nil
}

// weights computes the truncated ARCH(inf) lag weights lambda_1..lambda_K.
func (g *FIGARCH) weights(params []float64) []float64 {
	phi, d, beta := params[1], params[2], params[3]
	k := g.Trunc
	lambda := make([]float64, k)

	delta := d
	lambda[0] = d + phi - beta
	for i := 1; i < k; i++ {
		deltaNext := delta * (float64(i) - d) / float64(i+1)
		lambda[i] = beta*lambda[i-1] + (deltaNext - phi*delta)
		delta = deltaNext
	}
	return lambda
}

func (g *FIGARCH) Path(resid, params, h []float64) {
	hbar := backcast(resid)
	lambda := g.weights(params)
	for t := range resid {
		v := params[0]
		for k, w := range lambda {
			if idx := t - 1 - k; idx >= 0 {
				v += w * resid[idx] * resid[idx]
			} else {
				v += w * hbar
			}
		}
		h[t] = v
	}
}

func (g *FIGARCH) Forecast(resid, _, params []float64) float64 {
	n := len(resid)
	hbar := backcast(resid)
	lambda := g.weights(params)
	v := params[0]
	for k, w := range lambda {
		if idx := n - 1 - k; idx >= 0 {
			v += w * resid[idx] * resid[idx]
		} else {
			v += w * hbar
		}
	}
	return v
}
