package vartest

import (
	"math"
)

// DurationTest is the duration-based independence test of Christoffersen
// and Pelletier (2004). Gaps between consecutive violations are tested
// against a memoryless exponential null versus a Weibull alternative
// whose hazard may depend on the time since the last violation. Fewer
// than two durations (zero or one violation) is a boundary case reported
// as degenerate rather than an error.
func (s *Suite) DurationTest(hits []int) Result {
	res := Result{Name: "DUR"}

	durations := violationDurations(hits)
	if len(durations) < 2 {
		res.Stat = math.NaN()
		res.PValue = math.NaN()
		res.Degenerate = true
		return res
	}

	ll0 := exponentialLogLik(durations)
	ll1, _ := weibullProfileMax(durations)

	res.Stat = 2 * (ll1 - ll0)
	if res.Stat < 0 {
		res.Stat = 0
	}
	res.PValue = chi2P(res.Stat, 1)
	res.Reject = s.reject(res)
	return res
}

// violationDurations returns the gaps, in observations, between
// consecutive violations.
func violationDurations(hits []int) []float64 {
	prev := -1
	var durations []float64
	for i, h := range hits {
		if h != 1 {
			continue
		}
		if prev >= 0 {
			durations = append(durations, float64(i-prev))
		}
		prev = i
	}
	return durations
}

// exponentialLogLik is the maximized log-likelihood under the
// memoryless null, with rate fitted at 1/mean duration.
func exponentialLogLik(d []float64) float64 {
	n := float64(len(d))
	var sum float64
	for _, v := range d {
		sum += v
	}
	return n*math.Log(n/sum) - n
}

// weibullProfileMax maximizes the Weibull log-likelihood over the shape
// parameter b, with the scale profiled out analytically. Returns the
// maximized log-likelihood and the shape at the maximum.
func weibullProfileMax(d []float64) (float64, float64) {
	profile := func(b float64) float64 {
		n := float64(len(d))
		var sumPow, sumLog float64
		for _, v := range d {
			sumPow += math.Pow(v, b)
			sumLog += math.Log(v)
		}
		// ln L(b) with a^b = n / sum d^b substituted in.
		return n*math.Log(n/sumPow) + n*math.Log(b) + (b-1)*sumLog - n
	}

	// Golden-section search on the shape; the bracket comfortably covers
	// both clustering (b < 1 after transformation) and regular spacing.
	const (
		lo, hi = 0.05, 25.0
		phi    = 0.6180339887498949
		iters  = 120
	)
	a, b := lo, hi
	c := b - phi*(b-a)
	e := a + phi*(b-a)
	fc, fe := profile(c), profile(e)
	for i := 0; i < iters; i++ {
		if fc > fe {
			b, e, fe = e, c, fc
			c = b - phi*(b-a)
			fc = profile(c)
		} else {
			a, c, fc = c, e, fe
			e = a + phi*(b-a)
			fe = profile(e)
		}
	}
	best := (a + b) / 2
	return profile(best), best
}
