package variance

import (
	"fmt"
)

// GARCH is the short-memory GARCH(P,Q) filter of Bollerslev (1986):
//
//	h(t) = omega + sum_i alpha_i*e(t-i)^2 + sum_j beta_j*h(t-j)
//
// Parameters: [omega, alpha_1..alpha_P, beta_1..beta_Q].
type GARCH struct {
	P int // lags on squared residuals
	Q int // lags on past variances
}

func (g *GARCH) Name() string   { return fmt.Sprintf("garch(%d,%d)", g.P, g.Q) }
func (g *GARCH) NumParams() int { return 1 + g.P + g.Q }

func (g *GARCH) ParamNames() []string {
	names := []string{"omega"}
	for i := 1; i <= g.P; i++ {
		names = append(names, fmt.Sprintf("alpha[%d]", i))
	}
	for j := 1; j <= g.Q; j++ {
		names = append(names, fmt.Sprintf("beta[%d]", j))
	}
	return names
}

func (g *GARCH) Bounds() []Bound {
	bounds := []Bound{{Min: 1e-8, Max: 10}}
	for i := 0; i < g.P+g.Q; i++ {
		bounds = append(bounds, Bound{Min: 0, Max: 0.999})
	}
	return bounds
}

func (g *GARCH) Start(resid []float64) []float64 {
	hbar := backcast(resid)
	params := make([]float64, g.NumParams())
	alpha := 0.05 / float64(g.P)
	beta := 0.90 / float64(g.Q)
	if g.Q == 0 {
		alpha = 0.30 / float64(g.P)
		beta = 0
	}
	persistence := 0.0
	for i := 0; i < g.P; i++ {
		params[1+i] = alpha
		persistence += alpha
	}
	for j := 0; j < g.Q; j++ {
		params[1+g.P+j] = beta
		persistence += beta
	}
	params[0] = hbar * (1 - persistence)
	return params
}

func (g *GARCH) Validate(params []float64) error {
	if len(params) != g.NumParams() {
		return fmt.Errorf("%w: want %d parameters, got %d", ErrNonStationary, g.NumParams(), len(params))
	}
	if !allFinite(params) {
		return fmt.Errorf("%w: non-finite parameters", ErrNonStationary)
	}
	if params[0] <= 0 {
		return fmt.Errorf("%w: omega %g must be positive", ErrNonStationary, params[0])
	}
	sum := 0.0
	for _, c := range params[1:] {
		if c < 0 {
			return fmt.Errorf("%w: negative coefficient %g", ErrNonStationary, c)
		}
		sum += c
	}
	if sum >= 1 {
		return fmt.Errorf("%w: persistence %g >= 1", ErrNonStationary, sum)
	}
	return nil
}

func (g *GARCH) Path(resid, params, h []float64) {
	hbar := backcast(resid)
	for t := range resid {
		v := params[0]
		for i := 1; i <= g.P; i++ {
			if k := t - i; k >= 0 {
				v += params[i] * resid[k] * resid[k]
			} else {
				v += params[i] * hbar
			}
		}
		for j := 1; j <= g.Q; j++ {
			if k := t - j; k >= 0 {
				v += params[g.P+j] * h[k]
			} else {
				v += params[g.P+j] * hbar
			}
		}
		h[t] = v
	}
}

func (g *GARCH) Forecast(resid, h, params []float64) float64 {
	n := len(resid)
	hbar := backcast(resid)
	v := params[0]
	for i := 1; i <= g.P; i++ {
		if k := n - i; k >= 0 {
			v += params[i] * resid[k] * resid[k]
		} else {
			v += params[i] * hbar
		}
	}
	for j := 1; j <= g.Q; j++ {
		if k := n - j; k >= 0 {
			v += params[g.P+j] * h[k]
		} else {
			v += params[g.P+j] * hbar
		}
	}
	return v
}
