package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/varcast/internal/dataio"
	"github.com/quantlab/varcast/internal/rolling"
	"github.com/quantlab/varcast/pkg/config"
	"github.com/quantlab/varcast/pkg/database"
)

func testRepository(t *testing.T) *Repository {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	repo := NewRepository(db.Pool)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func TestRunLifecycle(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	id, err := repo.CreateRun(ctx, "test_study", "deadbeef")
	require.NoError(t, err)

	require.NoError(t, repo.FinishRun(ctx, id, "completed"))

	runs, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)

	found := false
	for _, r := range runs {
		if r.ID == id {
			found = true
			assert.Equal(t, "test_study", r.StudyID)
			assert.Equal(t, "completed", r.Status)
			assert.NotNil(t, r.FinishedAt)
		}
	}
	assert.True(t, found, "created run not listed")
}

func TestSaveAndGetForecasts(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	id, err := repo.CreateRun(ctx, "test_study", "deadbeef")
	require.NoError(t, err)

	levels := []float64{0.01, 0.05}
	in := []rolling.Record{
		{
			Origin:   500,
			Date:     time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
			Mean:     0.03,
			Variance: 1.4,
			VaR:      map[float64]float64{0.01: 2.72, 0.05: 1.92},
			Realized: -0.8,
			Valid:    true,
		},
		{
			Origin: 501,
			VaR:    map[float64]float64{},
			Valid:  false,
			Err:    "optimizer did not converge",
		},
	}

	require.NoError(t, repo.SaveForecasts(ctx, id, "sp500", "ar-garch-t", in, levels))

	// Upsert: saving again must not duplicate rows.
	require.NoError(t, repo.SaveForecasts(ctx, id, "sp500", "ar-garch-t", in, levels))

	out, err := repo.GetForecasts(ctx, id, "sp500", "ar-garch-t")
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, 500, out[0].Origin)
	assert.InDelta(t, 0.03, out[0].Mean, 1e-12)
	assert.InDelta(t, 2.72, out[0].VaR[0.01], 1e-12)
	assert.InDelta(t, 1.92, out[0].VaR[0.05], 1e-12)
	assert.True(t, out[0].Valid)

	assert.False(t, out[1].Valid)
	assert.Equal(t, "optimizer did not converge", out[1].Err)
}

func TestSaveFitsAndBacktests(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	id, err := repo.CreateRun(ctx, "test_study", "deadbeef")
	require.NoError(t, err)

	fits := []dataio.Fit{
		{
			Series:     "sp500",
			Spec:       "constant-garch-normal",
			ParamNames: []string{"mu", "omega", "alpha[1]", "beta[1]"},
			Params:     []float64{0.03, 0.02, 0.09, 0.89},
			StdErrors:  []float64{0.01, 0.008, 0.02, 0.025},
			LogLik:     -1423.5,
			NObs:       1000,
		},
	}
	require.NoError(t, repo.SaveFits(ctx, id, fits))
	require.NoError(t, repo.SaveFits(ctx, id, fits)) // upsert

	rows := []dataio.SummaryRow{
		{
			Series: "sp500", Mean: "constant", Variance: "garch", Dist: "normal",
			Level: 0.05, Obs: 500, Hits: 27, HitRate: 0.054,
			UCStat: 0.17, UCPValue: 0.68,
		},
	}
	require.NoError(t, repo.SaveBacktests(ctx, id, rows))
	require.NoError(t, repo.SaveBacktests(ctx, id, rows)) // upsert
}
