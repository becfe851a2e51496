// Package vartest validates VaR forecast sequences against realized
// returns. It implements the unconditional coverage test of Kupiec
// (1995), the independence and conditional coverage tests of
// Christoffersen (1998), the duration-based test of Christoffersen and
// Pelletier (2004) and the dynamic quantile test of Engle and Manganelli
// (2004), plus MAE/MSE accuracy metrics for the volatility forecasts.
package vartest

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrLengthMismatch is returned when the returns and VaR sequences
// differ in length.
var ErrLengthMismatch = errors.New("vartest: returns and VaR series must have the same length")

// Result is one hypothesis-test outcome. Degenerate marks windows where
// the statistic is a boundary limit (no violations, all violations, too
// few durations); such results never reject.
type Result struct {
	Name       string
	Stat       float64
	PValue     float64
	Reject     bool
	Degenerate bool
}

// Suite runs the backtest battery at one VaR confidence level.
type Suite struct {
	Alpha        float64 // VaR level, e.g. 0.01 or 0.05
	Significance float64 // decision threshold for rejection
	HitLags      int     // lagged hits in the DQ regression
	ForecastLags int     // current + lagged VaR terms in the DQ regression
}

// NewSuite creates a Suite with the conventional defaults: 5%
// significance, 4 hit lags and 1 forecast lag in the DQ test.
func NewSuite(alpha float64) *Suite {
	return &Suite{
		Alpha:        alpha,
		Significance: 0.05,
		HitLags:      4,
		ForecastLags: 1,
	}
}

// Report bundles the whole battery for one (series, spec, level) cell.
type Report struct {
	Alpha   float64
	Obs     int
	Hits    int
	HitRate float64

	UC       Result
	CCI      Result
	CC       Result
	Duration Result
	DQ       Result
}

// Hits computes the violation indicator series: 1 where the realized
// return is more extreme than the forecast loss. varLoss holds VaR as
// positive loss magnitudes.
func (s *Suite) Hits(returns, varLoss []float64) ([]int, error) {
	if len(returns) != len(varLoss) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(returns), len(varLoss))
	}
	hits := make([]int, len(returns))
	for i := range returns {
		if returns[i] < -varLoss[i] {
			hits[i] = 1
		}
	}
	return hits, nil
}

// Run executes the full battery.
func (s *Suite) Run(returns, varLoss []float64) (*Report, error) {
	hits, err := s.Hits(returns, varLoss)
	if err != nil {
		return nil, err
	}

	n1 := 0
	for _, h := range hits {
		n1 += h
	}

	rep := &Report{
		Alpha: s.Alpha,
		Obs:   len(hits),
		Hits:  n1,
	}
	if len(hits) > 0 {
		rep.HitRate = float64(n1) / float64(len(hits))
	}

	rep.UC = s.Kupiec(hits)
	rep.CCI = s.Independence(hits)
	rep.CC = s.ConditionalCoverage(hits)
	rep.Duration = s.DurationTest(hits)
	rep.DQ = s.DynamicQuantile(returns, varLoss)
	return rep, nil
}

// Kupiec is the unconditional coverage (proportion of failures) test.
// The x = 0 and x = N boundary cases use the exact limiting form of the
// likelihood ratio and are flagged degenerate.
func (s *Suite) Kupiec(hits []int) Result {
	n := len(hits)
	x := 0
	for _, h := range hits {
		x += h
	}

	res := Result{Name: "UC"}
	if n == 0 {
		res.Degenerate = true
		res.PValue = math.NaN()
		return res
	}

	fn, fx, alpha := float64(n), float64(x), s.Alpha
	switch {
	case x == 0:
		res.Stat = -2 * fn * math.Log(1-alpha)
		res.Degenerate = true
	case x == n:
		res.Stat = -2 * fn * math.Log(alpha)
		res.Degenerate = true
	default:
		res.Stat = -2 * ((fn-fx)*math.Log(fn*(1-alpha)/(fn-fx)) +
			fx*math.Log(fn*alpha/fx))
	}
	res.PValue = chi2P(res.Stat, 1)
	res.Reject = s.reject(res)
	return res
}

// Independence is Christoffersen's first-order Markov test against
// violation clustering. Empty transition cells contribute zero to the
// likelihood, matching the limiting form.
func (s *Suite) Independence(hits []int) Result {
	res := Result{Name: "CCI"}
	if len(hits) < 2 {
		res.Degenerate = true
		res.PValue = math.NaN()
		return res
	}

	var n00, n01, n10, n11 float64
	for t := 1; t < len(hits); t++ {
		switch {
		case hits[t-1] == 0 && hits[t] == 0:
			n00++
		case hits[t-1] == 0 && hits[t] == 1:
			n01++
		case hits[t-1] == 1 && hits[t] == 0:
			n10++
		default:
			n11++
		}
	}

	var logNum float64
	if (n00+n10) > 0 && (n01+n11) > 0 {
		p := (n01 + n11) / (n00 + n01 + n10 + n11)
		logNum = (n00+n10)*math.Log(1-p) + (n01+n11)*math.Log(p)
	}

	var logDen float64
	if n00 > 0 && n01 > 0 {
		p01 := n01 / (n00 + n01)
		logDen += n00*math.Log(1-p01) + n01*math.Log(p01)
	}
	if n10 > 0 && n11 > 0 {
		p11 := n11 / (n10 + n11)
		logDen += n10*math.Log(1-p11) + n11*math.Log(p11)
	}

	res.Stat = -2 * (logNum - logDen)
	if res.Stat < 0 {
		// Guarded zero cells can leave a tiny negative residue.
		res.Stat = 0
	}
	res.Degenerate = (n01+n11) == 0 || (n00+n10) == 0
	res.PValue = chi2P(res.Stat, 1)
	res.Reject = s.reject(res)
	return res
}

// ConditionalCoverage is the joint test: UC + CCI with two degrees of
// freedom.
func (s *Suite) ConditionalCoverage(hits []int) Result {
	uc := s.Kupiec(hits)
	cci := s.Independence(hits)

	res := Result{
		Name:       "CC",
		Stat:       uc.Stat + cci.Stat,
		Degenerate: uc.Degenerate || cci.Degenerate,
	}
	res.PValue = chi2P(res.Stat, 2)
	res.Reject = s.reject(res)
	return res
}

func (s *Suite) reject(r Result) bool {
	return !r.Degenerate && !math.IsNaN(r.PValue) && r.PValue < s.Significance
}

func chi2P(stat float64, dof int) float64 {
	if math.IsNaN(stat) || stat < 0 {
		return math.NaN()
	}
	return distuv.ChiSquared{K: float64(dof)}.Survival(stat)
}

// MAE is the mean absolute error between a forecast sequence and a
// realized proxy.
func MAE(forecast, realized []float64) (float64, error) {
	if len(forecast) != len(realized) {
		return 0, ErrLengthMismatch
	}
	if len(forecast) == 0 {
		return 0, nil
	}
	var sum float64
	for i := range forecast {
		sum += math.Abs(forecast[i] - realized[i])
	}
	return sum / float64(len(forecast)), nil
}

// MSE is the mean squared error between a forecast sequence and a
// realized proxy.
func MSE(forecast, realized []float64) (float64, error) {
	if len(forecast) != len(realized) {
		return 0, ErrLengthMismatch
	}
	if len(forecast) == 0 {
		return 0, nil
	}
	var sum float64
	for i := range forecast {
		d := forecast[i] - realized[i]
		sum += d * d
	}
	return sum / float64(len(forecast)), nil
}
