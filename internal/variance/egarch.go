package variance

import (
	"fmt"
	"math"
)

// absZMean is E|z| for a standard normal shock, the centering constant
// of the magnitude term.
var absZMean = math.Sqrt(2 / math.Pi)

// EGARCH is the exponential GARCH(P,Q) filter of Nelson (1991). The
// recursion runs on log-variance with an asymmetric response, so
// negative and positive shocks of equal size move the variance
// differently and no positivity constraints are needed on the raw
// coefficients:
//
//	ln h(t) = omega + sum_i [alpha_i*(|z(t-i)|-E|z|) + gamma_i*z(t-i)]
//	               + sum_j beta_j*ln h(t-j)
//
// Parameters: [omega, alpha_1..alpha_P, gamma_1..gamma_P, beta_1..beta_Q].
type EGARCH struct {
	P int
	Q int
}

// Log-variance is clamped to this band during the recursion so that a
// wild proposal cannot overflow to Inf before the likelihood rejects it.
const logVarClamp = 50.0

func (g *EGARCH) Name() string   { return fmt.Sprintf("egarch(%d,%d)", g.P, g.Q) }
func (g *EGARCH) NumParams() int { return 1 + 2*g.P + g.Q }

func (g *EGARCH) ParamNames() []string {
	names := []string{"omega"}
	for i := 1; i <= g.P; i++ {
		names = append(names, fmt.Sprintf("alpha[%d]", i))
	}
	for i := 1; i <= g.P; i++ {
		names = append(names, fmt.Sprintf("gamma[%d]", i))
	}
	for j := 1; j <= g.Q; j++ {
		names = append(names, fmt.Sprintf("beta[%d]", j))
	}
	return names
}

func (g *EGARCH) Bounds() []Bound {
	bounds := []Bound{{Min: -5, Max: 5}}
	for i := 0; i < 2*g.P; i++ {
		bounds = append(bounds, Bound{Min: -2, Max: 2})
	}
	for j := 0; j < g.Q; j++ {
		bounds = append(bounds, Bound{Min: -0.999, Max: 0.999})
	}
	return bounds
}

func (g *EGARCH) Start(resid []float64) []float64 {
	hbar := backcast(resid)
	params := make([]float64, g.NumParams())
	beta := 0.90 / float64(max(g.Q, 1))
	sumBeta := 0.0
	for j := 0; j < g.Q; j++ {
		params[1+2*g.P+j] = beta
		sumBeta += beta
	}
	for i := 0; i < g.P; i++ {
		params[1+i] = 0.10 / float64(g.P)      // magnitude response
		params[1+g.P+i] = -0.05 / float64(g.P) // leverage
	}
	params[0] = math.Log(hbar) * (1 - sumBeta)
	return params
}

func (g *EGARCH) Validate(params []float64) error {
	if len(params) != g.NumParams() {
		return fmt.Errorf("%w: want %d parameters, got %d", ErrNonStationary, g.NumParams(), len(params))
	}
	if !allFinite(params) {
		return fmt.Errorf("%w: non-finite parameters", ErrNonStationary)
	}
	sumBeta := 0.0
	for j := 0; j < g.Q; j++ {
		sumBeta += params[1+2*g.P+j]
	}
	if math.Abs(sumBeta) >= 1 {
		return fmt.Errorf("%w: log-variance persistence %g", ErrNonStationary, sumBeta)
	}
	return nil
}

func (g *EGARCH) Path(resid, params, h []float64) {
	lnBar := math.Log(backcast(resid))
	lnh := make([]float64, len(resid))
	for t := range resid {
		v := params[0]
		for i := 1; i <= g.P; i++ {
			var z float64
			if k := t - i; k >= 0 {
				z = resid[k] / math.Sqrt(h[k])
			}
			v += params[i]*(math.Abs(z)-absZMean) + params[g.P+i]*z
		}
		for j := 1; j <= g.Q; j++ {
			if k := t - j; k >= 0 {
				v += params[2*g.P+j] * lnh[k]
			} else {
				v += params[2*g.P+j] * lnBar
			}
		}
		lnh[t] = clampLogVar(v)
		h[t] = math.Exp(lnh[t])
	}
}

func (g *EGARCH) Forecast(resid, h, params []float64) float64 {
	n := len(resid)
	lnBar := math.Log(backcast(resid))
	v := params[0]
	for i := 1; i <= g.P; i++ {
		var z float64
		if k := n - i; k >= 0 {
			z = resid[k] / math.Sqrt(h[k])
		}
		v += params[i]*(math.Abs(z)-absZMean) + params[g.P+i]*z
	}
	for j := 1; j <= g.Q; j++ {
		if k := n - j; k >= 0 {
			v += params[2*g.P+j] * math.Log(h[k])
		} else {
			v += params[2*g.P+j] * lnBar
		}
	}
	return math.Exp(clampLogVar(v))
}

func clampLogVar(v float64) float64 {
	if v > logVarClamp {
		return logVarClamp
	}
	if v < -logVarClamp {
		return -logVarClamp
	}
	return v
}
