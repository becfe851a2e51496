package vartest

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// DynamicQuantile is the dynamic quantile test of Engle and Manganelli
// (2004): an artificial regression of the demeaned hit sequence on a
// constant, lagged hits and the (current and lagged) VaR forecasts. Under
// correct specification the regression has no explanatory power and the
// statistic is chi-square with 1 + HitLags + ForecastLags degrees of
// freedom.
func (s *Suite) DynamicQuantile(returns, varLoss []float64) Result {
	res := Result{Name: "DQ"}

	hits, err := s.Hits(returns, varLoss)
	if err != nil {
		res.Stat = math.NaN()
		res.PValue = math.NaN()
		res.Degenerate = true
		return res
	}

	p, q := s.HitLags, s.ForecastLags
	pq := p
	if q-1 > pq {
		pq = q - 1
	}
	n := len(hits)
	cols := 1 + p + q
	rows := n - pq
	if rows <= cols {
		res.Stat = math.NaN()
		res.PValue = math.NaN()
		res.Degenerate = true
		return res
	}

	y := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		y.SetVec(i, float64(hits[pq+i])-s.Alpha)
	}

	x := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		x.Set(i, 0, 1)
		for j := 1; j <= p; j++ {
			x.Set(i, j, float64(hits[pq+i-j]))
		}
		for j := 0; j < q; j++ {
			// VaR enters in return units, as the (negative) threshold.
			x.Set(i, 1+p+j, -varLoss[pq+i-j])
		}
	}

	// Least-squares coefficients via QR.
	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		res.Stat = math.NaN()
		res.PValue = math.NaN()
		res.Degenerate = true
		return res
	}

	// DQ = beta' X'X beta / (alpha (1-alpha)) = ||X beta||^2 / (alpha (1-alpha)).
	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	ssq := mat.Dot(&fitted, &fitted)

	res.Stat = ssq / (s.Alpha * (1 - s.Alpha))
	res.PValue = chi2P(res.Stat, cols)
	res.Reject = s.reject(res)
	return res
}
