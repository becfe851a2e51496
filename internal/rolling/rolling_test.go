package rolling

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/varcast/internal/estimate"
	"github.com/quantlab/varcast/internal/modelspec"
	"github.com/quantlab/varcast/pkg/logger"
)

func simulateGARCH(n int, seed int64) []float64 {
	const omega, alpha, beta = 0.05, 0.1, 0.85
	rng := rand.New(rand.NewSource(seed))
	returns := make([]float64, n)
	h := omega / (1 - alpha - beta)
	var eps float64
	for t := 0; t < n; t++ {
		if t > 0 {
			h = omega + alpha*eps*eps + beta*h
		}
		eps = math.Sqrt(h) * rng.NormFloat64()
		returns[t] = eps
	}
	return returns
}

func garchSpec() modelspec.Spec {
	return modelspec.Spec{
		Mean:     modelspec.MeanConstant,
		Variance: modelspec.VarGARCH,
		Dist:     modelspec.DistNormal,
		ArchP:    1,
		GarchQ:   1,
	}
}

func TestRunProducesAlignedRecords(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping rolling estimation test")
	}

	returns := simulateGARCH(340, 21)
	dates := make([]time.Time, len(returns))
	day0 := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = day0.AddDate(0, 0, i)
	}

	est := estimate.New(logger.Nop(), estimate.Options{MaxIterations: 800})
	f := New(est, logger.Nop(), Options{
		Policy:     PolicyRolling,
		WindowSize: 300,
		Levels:     []float64{0.01, 0.05},
	})

	records, err := f.Run(context.Background(), returns, dates, nil, garchSpec())
	require.NoError(t, err)
	require.Len(t, records, 40)

	valid := Valid(records)
	require.NotEmpty(t, valid, "every origin failed to fit")

	for _, r := range records {
		assert.Equal(t, returns[r.Origin], r.Realized)
		assert.Equal(t, dates[r.Origin], r.Date)
		if !r.Valid {
			assert.NotEmpty(t, r.Err)
			continue
		}
		assert.Greater(t, r.Variance, 0.0)
		require.Contains(t, r.VaR, 0.01)
		require.Contains(t, r.VaR, 0.05)
		assert.Greater(t, r.VaR[0.01], r.VaR[0.05],
			"origin %d: 1%% VaR must exceed 5%% VaR", r.Origin)
	}
}

func TestRunExpandingWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping rolling estimation test")
	}

	returns := simulateGARCH(320, 5)
	est := estimate.New(logger.Nop(), estimate.Options{MaxIterations: 800})
	f := New(est, logger.Nop(), Options{
		Policy:     PolicyExpanding,
		WindowSize: 300,
		Levels:     []float64{0.05},
	})

	records, err := f.Run(context.Background(), returns, nil, nil, garchSpec())
	require.NoError(t, err)
	require.Len(t, records, 20)
}

func TestRunWarmStartMatchesCold(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping rolling estimation test")
	}

	returns := simulateGARCH(315, 9)
	est := estimate.New(logger.Nop(), estimate.Options{MaxIterations: 1500, Restarts: 1})

	cold := New(est, logger.Nop(), Options{WindowSize: 300, Levels: []float64{0.05}})
	warm := New(est, logger.Nop(), Options{WindowSize: 300, Levels: []float64{0.05}, WarmStart: true})

	recsCold, err := cold.Run(context.Background(), returns, nil, nil, garchSpec())
	require.NoError(t, err)
	recsWarm, err := warm.Run(context.Background(), returns, nil, nil, garchSpec())
	require.NoError(t, err)

	// Warm starting is a performance lever only; the forecasts must agree.
	for i := range recsCold {
		if !recsCold[i].Valid || !recsWarm[i].Valid {
			continue
		}
		assert.InDelta(t, recsCold[i].Variance, recsWarm[i].Variance, 5e-2, "origin %d", recsCold[i].Origin)
	}
}

func TestRunWindowTooLarge(t *testing.T) {
	est := estimate.New(logger.Nop(), estimate.Options{})
	f := New(est, logger.Nop(), Options{WindowSize: 300})

	_, err := f.Run(context.Background(), simulateGARCH(200, 1), nil, nil, garchSpec())
	assert.ErrorIs(t, err, ErrWindowTooLarge)
}

func TestRunRejectsTinyWindow(t *testing.T) {
	est := estimate.New(logger.Nop(), estimate.Options{})
	f := New(est, logger.Nop(), Options{WindowSize: 10})

	_, err := f.Run(context.Background(), simulateGARCH(200, 1), nil, nil, garchSpec())
	assert.Error(t, err)
}

func TestRunCancelledContext(t *testing.T) {
	est := estimate.New(logger.Nop(), estimate.Options{})
	f := New(est, logger.Nop(), Options{WindowSize: 300})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Run(ctx, simulateGARCH(400, 1), nil, nil, garchSpec())
	assert.ErrorIs(t, err, context.Canceled)
}
