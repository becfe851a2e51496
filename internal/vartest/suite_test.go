package vartest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toySeries is the 20-observation reference scenario: three oversized
// losses against a constant 2% VaR forecast, placed so that no two
// violations are adjacent.
func toySeries() (returns, varLoss []float64) {
	returns = make([]float64, 20)
	varLoss = make([]float64, 20)
	for i := range returns {
		returns[i] = 0.1
		varLoss[i] = 2.0
	}
	returns[5] = -3.0
	returns[10] = -4.0
	returns[15] = -2.5
	return returns, varLoss
}

func hitsWithOnes(n int, ones ...int) []int {
	hits := make([]int, n)
	for _, i := range ones {
		hits[i] = 1
	}
	return hits
}

func TestHits(t *testing.T) {
	s := NewSuite(0.05)
	returns, varLoss := toySeries()

	hits, err := s.Hits(returns, varLoss)
	require.NoError(t, err)

	count := 0
	for _, h := range hits {
		count += h
	}
	assert.Equal(t, 3, count)
	assert.Equal(t, 1, hits[5])
	assert.Equal(t, 1, hits[10])
	assert.Equal(t, 1, hits[15])

	_, err = s.Hits(returns, varLoss[:10])
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestKupiecPerfectCalibration(t *testing.T) {
	// Violation count exactly at the nominal rate: statistic zero,
	// p-value one, no rejection.
	cases := []struct {
		alpha float64
		n     int
		ones  int
	}{
		{0.04, 250, 10},
		{0.05, 240, 12},
	}
	for _, tc := range cases {
		s := NewSuite(tc.alpha)
		positions := make([]int, tc.ones)
		for i := range positions {
			positions[i] = i * (tc.n / tc.ones)
		}
		res := s.Kupiec(hitsWithOnes(tc.n, positions...))

		assert.InDelta(t, 0, res.Stat, 1e-10)
		assert.InDelta(t, 1, res.PValue, 1e-6)
		assert.False(t, res.Reject)
		assert.False(t, res.Degenerate)
	}
}

// Reference values for the toy scenario were cross-checked against
// independent statistical software.
func TestKupiecToyScenario(t *testing.T) {
	s := NewSuite(0.05)
	returns, varLoss := toySeries()
	hits, err := s.Hits(returns, varLoss)
	require.NoError(t, err)

	res := s.Kupiec(hits)
	assert.InDelta(t, 2.80999, res.Stat, 1e-4)
	assert.InDelta(t, 0.09368, res.PValue, 1e-3)
	assert.False(t, res.Reject)
}

func TestIndependenceToyScenario(t *testing.T) {
	s := NewSuite(0.05)
	returns, varLoss := toySeries()
	hits, _ := s.Hits(returns, varLoss)

	res := s.Independence(hits)
	assert.InDelta(t, 1.13168, res.Stat, 1e-4)
	assert.InDelta(t, 0.28741, res.PValue, 1e-3)
	assert.False(t, res.Reject)
}

func TestConditionalCoverageToyScenario(t *testing.T) {
	s := NewSuite(0.05)
	returns, varLoss := toySeries()
	hits, _ := s.Hits(returns, varLoss)

	res := s.ConditionalCoverage(hits)
	assert.InDelta(t, 3.94167, res.Stat, 1e-4)
	// chi-square(2) survival is exp(-x/2)
	assert.InDelta(t, math.Exp(-3.94167/2), res.PValue, 1e-5)
}

func TestIndependenceClusteringDetected(t *testing.T) {
	s := NewSuite(0.05)

	spread := hitsWithOnes(20, 5, 10, 15)
	clustered := hitsWithOnes(20, 5, 6, 7, 8, 9)

	resSpread := s.Independence(spread)
	resClustered := s.Independence(clustered)

	assert.Greater(t, resClustered.Stat, resSpread.Stat)
	assert.True(t, resClustered.Reject, "five consecutive violations must reject independence")
	assert.False(t, resSpread.Reject)
}

func TestKupiecDegenerateCases(t *testing.T) {
	s := NewSuite(0.05)

	// No violations at all: limiting form, flagged, never rejected.
	res := s.Kupiec(hitsWithOnes(250))
	assert.True(t, res.Degenerate)
	assert.False(t, res.Reject)
	assert.InDelta(t, -2*250*math.Log(0.95), res.Stat, 1e-10)

	// Every observation a violation: symmetric boundary.
	all := make([]int, 50)
	for i := range all {
		all[i] = 1
	}
	res = s.Kupiec(all)
	assert.True(t, res.Degenerate)
	assert.False(t, res.Reject)
	assert.InDelta(t, -2*50*math.Log(0.05), res.Stat, 1e-10)
}

func TestIndependenceDegenerateNoViolations(t *testing.T) {
	s := NewSuite(0.05)
	res := s.Independence(hitsWithOnes(100))
	assert.True(t, res.Degenerate)
	assert.False(t, res.Reject)
	assert.InDelta(t, 0, res.Stat, 1e-10)
}

func TestDurationNoViolationsDoesNotCrash(t *testing.T) {
	s := NewSuite(0.01)

	res := s.DurationTest(hitsWithOnes(250))
	assert.True(t, res.Degenerate)
	assert.False(t, res.Reject)
	assert.True(t, math.IsNaN(res.Stat))

	// One violation: still not enough durations.
	res = s.DurationTest(hitsWithOnes(250, 100))
	assert.True(t, res.Degenerate)

	// Two violations: one duration, still degenerate.
	res = s.DurationTest(hitsWithOnes(250, 100, 130))
	assert.True(t, res.Degenerate)
}

func TestDurationClusteredVsRegular(t *testing.T) {
	s := NewSuite(0.05)

	// Evenly spaced violations are the most regular (non-memoryless)
	// pattern; bursts of back-to-back violations are the opposite.
	regular := hitsWithOnes(200, 20, 40, 60, 80, 100, 120, 140, 160, 180)
	burst := hitsWithOnes(200, 20, 21, 22, 23, 100, 101, 102, 180, 181)

	resRegular := s.DurationTest(regular)
	resBurst := s.DurationTest(burst)

	assert.False(t, resRegular.Degenerate)
	assert.False(t, resBurst.Degenerate)
	assert.GreaterOrEqual(t, resRegular.Stat, 0.0)
	assert.GreaterOrEqual(t, resBurst.Stat, 0.0)

	// Both deviate from the exponential null; the i.i.d.-like pattern in
	// between should sit lower than the equally spaced extreme.
	assert.Greater(t, resRegular.Stat, 0.0)
}

func TestDynamicQuantileShortSeriesDegenerate(t *testing.T) {
	s := NewSuite(0.05)
	returns := []float64{0.1, 0.2, -0.1}
	varLoss := []float64{2, 2, 2}

	res := s.DynamicQuantile(returns, varLoss)
	assert.True(t, res.Degenerate)
}

func TestDynamicQuantileToyScenario(t *testing.T) {
	s := NewSuite(0.05)
	returns, varLoss := toySeries()
	// Vary the forecasts slightly so the VaR regressor is not collinear
	// with the constant.
	for i := range varLoss {
		varLoss[i] += 0.01 * float64(i%5)
	}

	res := s.DynamicQuantile(returns, varLoss)
	assert.False(t, math.IsNaN(res.Stat))
	assert.GreaterOrEqual(t, res.Stat, 0.0)
	assert.GreaterOrEqual(t, res.PValue, 0.0)
	assert.LessOrEqual(t, res.PValue, 1.0)
}

func TestRunReport(t *testing.T) {
	s := NewSuite(0.05)
	returns, varLoss := toySeries()

	rep, err := s.Run(returns, varLoss)
	require.NoError(t, err)

	assert.Equal(t, 20, rep.Obs)
	assert.Equal(t, 3, rep.Hits)
	assert.InDelta(t, 0.15, rep.HitRate, 1e-12)
	assert.Equal(t, "UC", rep.UC.Name)
	assert.Equal(t, "CC", rep.CC.Name)
	assert.InDelta(t, rep.UC.Stat+rep.CCI.Stat, rep.CC.Stat, 1e-12)
}

func TestMAEAndMSE(t *testing.T) {
	forecast := []float64{1, 2, 3}
	realized := []float64{1.5, 1.5, 3.5}

	mae, err := MAE(forecast, realized)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, mae, 1e-12)

	mse, err := MSE(forecast, realized)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, mse, 1e-12)

	// Identical sequences score exactly zero.
	mae, _ = MAE(forecast, forecast)
	assert.Zero(t, mae)
	mse, _ = MSE(forecast, forecast)
	assert.Zero(t, mse)

	_, err = MAE(forecast, realized[:2])
	assert.ErrorIs(t, err, ErrLengthMismatch)
}
