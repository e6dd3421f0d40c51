package steps

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-multiverse/internal/domain"
)

// linearInput builds a state whose dataset follows y = slope*x + intercept
// exactly, with z an unrelated covariate.
func linearInput(t *testing.T, n int, slope, intercept float64) domain.State {
	t.Helper()

	x := make([]float64, n)
	z := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		z[i] = float64(i % 7)
		y[i] = slope*x[i] + intercept
	}

	ds := domain.NewDataset(n)
	ds.Columns["x"] = x
	ds.Columns["z"] = z
	ds.Columns["y"] = y
	return domain.With(domain.NewState(), domain.KeyDataset, ds)
}

func choose(value string) []domain.Choice {
	return []domain.Choice{{Name: ChoiceControlForConfounder, Value: domain.Categorical(value)}}
}

func TestNewEstimateModelStep(t *testing.T) {
	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewEstimateModelStep("", DefaultEstimateModelConfig())
		assert.ErrorIs(t, err, ErrEmptyStepName)
	})

	t.Run("rejects invalid confidence level", func(t *testing.T) {
		cfg := DefaultEstimateModelConfig()
		cfg.ConfidenceLevel = 0.3
		_, err := NewEstimateModelStep("estimate", cfg)
		assert.ErrorContains(t, err, "validation failed")
	})

	t.Run("rejects missing column names", func(t *testing.T) {
		cfg := DefaultEstimateModelConfig()
		cfg.Outcome = ""
		_, err := NewEstimateModelStep("estimate", cfg)
		assert.Error(t, err)
	})
}

func TestEstimateModelStep_Describe(t *testing.T) {
	step, err := NewEstimateModelStep("estimate", DefaultEstimateModelConfig())
	require.NoError(t, err)

	meta := step.Describe()
	require.Len(t, meta.Specs, 1)
	assert.Equal(t, ChoiceControlForConfounder, meta.Specs[0].Name)
	assert.Equal(t, domain.KindCategorical, meta.Specs[0].Kind)
	assert.Len(t, meta.Specs[0].Domain, 2)
	assert.NotEmpty(t, meta.StepDescription)
}

func TestEstimateModelStep_Execute(t *testing.T) {
	step, err := NewEstimateModelStep("estimate", DefaultEstimateModelConfig())
	require.NoError(t, err)

	t.Run("recovers the exact slope on noiseless data", func(t *testing.T) {
		input := linearInput(t, 30, 2, 3)

		out, err := step.Execute(input, choose("no"))
		require.NoError(t, err)

		est, ok := domain.Get(out, domain.KeyEstimate)
		require.True(t, ok)
		assert.InDelta(t, 2.0, est, 1e-8)

		se, ok := domain.Get(out, domain.KeyStdError)
		require.True(t, ok)
		assert.InDelta(t, 0, se, 1e-6, "a perfect fit has a vanishing standard error")

		n, ok := domain.Get(out, domain.KeyNObs)
		require.True(t, ok)
		assert.Equal(t, 30, n)
	})

	t.Run("interval brackets the estimate", func(t *testing.T) {
		// Perturb the outcome so the residual variance is non-zero.
		input := linearInput(t, 40, 1.5, 0)
		ds, ok := domain.Get(input, domain.KeyDataset)
		require.True(t, ok)
		y := ds.Columns["y"]
		for i := range y {
			if i%2 == 0 {
				y[i] += 0.5
			} else {
				y[i] -= 0.5
			}
		}
		input = domain.With(input, domain.KeyDataset, ds)

		out, err := step.Execute(input, choose("yes"))
		require.NoError(t, err)

		est, _ := domain.Get(out, domain.KeyEstimate)
		lo, _ := domain.Get(out, domain.KeyCILower)
		hi, _ := domain.Get(out, domain.KeyCIUpper)
		p, _ := domain.Get(out, domain.KeyPValue)

		assert.Less(t, lo, est)
		assert.Greater(t, hi, est)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	})

	t.Run("input state is not modified", func(t *testing.T) {
		input := linearInput(t, 30, 2, 3)

		_, err := step.Execute(input, choose("no"))
		require.NoError(t, err)

		_, ok := domain.Get(input, domain.KeyEstimate)
		assert.False(t, ok, "execution must not leak results into the input")
	})

	t.Run("rejects an out-of-domain choice with a suggestion", func(t *testing.T) {
		_, err := step.Execute(linearInput(t, 30, 2, 3), choose("yse"))
		require.ErrorIs(t, err, domain.ErrOutOfDomain)

		var invalid *domain.InvalidChoiceError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "yes", invalid.Suggestion)
	})

	t.Run("fails without a dataset", func(t *testing.T) {
		_, err := step.Execute(domain.NewState(), choose("no"))
		assert.ErrorIs(t, err, ErrMissingDataset)
	})

	t.Run("fails on a missing column", func(t *testing.T) {
		ds := domain.NewDataset(10)
		ds.Columns["y"] = make([]float64, 10)
		input := domain.With(domain.NewState(), domain.KeyDataset, ds)

		_, err := step.Execute(input, choose("no"))
		assert.ErrorIs(t, err, domain.ErrColumnNotFound)
	})

	t.Run("fails when observations do not cover the parameters", func(t *testing.T) {
		_, err := step.Execute(linearInput(t, 2, 2, 3), choose("no"))
		assert.ErrorIs(t, err, ErrNotEnoughObservations)
	})
}

func TestFitOLS(t *testing.T) {
	t.Run("adjusting removes omitted-variable bias", func(t *testing.T) {
		// y depends on both x and z, and x correlates with z. The simple
		// regression absorbs z's contribution into the x coefficient; the
		// adjusted regression recovers the true slope.
		n := 200
		x := make([]float64, n)
		z := make([]float64, n)
		y := make([]float64, n)
		for i := 0; i < n; i++ {
			z[i] = float64(i%10) - 4.5
			x[i] = z[i] + float64(i%3)
			y[i] = 2*x[i] + 3*z[i]
		}

		naive, err := fitOLS(y, [][]float64{x}, 0.95)
		require.NoError(t, err)
		adjusted, err := fitOLS(y, [][]float64{x, z}, 0.95)
		require.NoError(t, err)

		assert.InDelta(t, 2.0, adjusted.estimate, 1e-8)
		assert.Greater(t, math.Abs(naive.estimate-2.0), 0.5,
			"the naive estimate should be visibly biased")
	})

	t.Run("collinear regressors fail", func(t *testing.T) {
		n := 50
		x := make([]float64, n)
		y := make([]float64, n)
		for i := 0; i < n; i++ {
			x[i] = float64(i)
			y[i] = 2 * x[i]
		}

		_, err := fitOLS(y, [][]float64{x, x}, 0.95)
		assert.Error(t, err)
	})

	t.Run("regressor length mismatch", func(t *testing.T) {
		_, err := fitOLS(make([]float64, 10), [][]float64{make([]float64, 9)}, 0.95)
		assert.ErrorContains(t, err, "does not match")
	})
}

func TestEstimateModelStep_Fixtures(t *testing.T) {
	step, err := NewEstimateModelStep("estimate", DefaultEstimateModelConfig())
	require.NoError(t, err)

	fixtures := step.Fixtures()
	require.NotEmpty(t, fixtures)

	for _, fx := range fixtures {
		t.Run(fx.Name, func(t *testing.T) {
			out, err := step.Execute(fx.Input, fx.Choices)
			if fx.WantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if fx.Check != nil {
				assert.NoError(t, fx.Check(out))
			}
		})
	}
}
