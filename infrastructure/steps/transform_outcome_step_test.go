package steps

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-multiverse/internal/domain"
)

func transformInput(t *testing.T, y []float64) domain.State {
	t.Helper()

	ds := domain.NewDataset(len(y))
	ds.Columns["y"] = y
	return domain.With(domain.NewState(), domain.KeyDataset, ds)
}

func transformChoice(name string) []domain.Choice {
	return []domain.Choice{{Name: ChoiceTransform, Value: domain.Categorical(name)}}
}

func TestNewTransformOutcomeStep(t *testing.T) {
	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewTransformOutcomeStep("", DefaultTransformOutcomeConfig())
		assert.ErrorIs(t, err, ErrEmptyStepName)
	})

	t.Run("rejects unsupported transform names", func(t *testing.T) {
		cfg := DefaultTransformOutcomeConfig()
		cfg.Transforms = []string{"none", "sqrt"}
		_, err := NewTransformOutcomeStep("transform", cfg)
		assert.Error(t, err)
	})

	t.Run("rejects empty transform enumeration", func(t *testing.T) {
		cfg := DefaultTransformOutcomeConfig()
		cfg.Transforms = nil
		_, err := NewTransformOutcomeStep("transform", cfg)
		assert.Error(t, err)
	})
}

func TestTransformOutcomeStep_Describe(t *testing.T) {
	cfg := DefaultTransformOutcomeConfig()
	cfg.Transforms = []string{"none", "log"}

	step, err := NewTransformOutcomeStep("transform", cfg)
	require.NoError(t, err)

	meta := step.Describe()
	require.Len(t, meta.Specs, 1)
	assert.Equal(t, ChoiceTransform, meta.Specs[0].Name)
	assert.Equal(t, domain.KindCategorical, meta.Specs[0].Kind)
	assert.Len(t, meta.Specs[0].Domain, 2, "only the configured transforms are enumerable")
}

func TestTransformOutcomeStep_Execute(t *testing.T) {
	step, err := NewTransformOutcomeStep("transform", DefaultTransformOutcomeConfig())
	require.NoError(t, err)

	t.Run("none passes the data through", func(t *testing.T) {
		input := transformInput(t, []float64{1, 2, 3})

		out, err := step.Execute(input, transformChoice(TransformNone))
		require.NoError(t, err)

		ds, ok := domain.Get(out, domain.KeyDataset)
		require.True(t, ok)
		assert.Equal(t, []float64{1, 2, 3}, ds.Columns["y"])
	})

	t.Run("log maps the column element-wise", func(t *testing.T) {
		input := transformInput(t, []float64{1, math.E, math.E * math.E})

		out, err := step.Execute(input, transformChoice(TransformLog))
		require.NoError(t, err)

		ds, ok := domain.Get(out, domain.KeyDataset)
		require.True(t, ok)
		y := ds.Columns["y"]
		assert.InDelta(t, 0, y[0], 1e-12)
		assert.InDelta(t, 1, y[1], 1e-12)
		assert.InDelta(t, 2, y[2], 1e-12)
	})

	t.Run("log faults on non-positive values", func(t *testing.T) {
		input := transformInput(t, []float64{1, 0, 2})

		_, err := step.Execute(input, transformChoice(TransformLog))
		assert.ErrorContains(t, err, "non-positive")
	})

	t.Run("standardize centers and scales", func(t *testing.T) {
		input := transformInput(t, []float64{2, 4, 6, 8})

		out, err := step.Execute(input, transformChoice(TransformStandardize))
		require.NoError(t, err)

		ds, ok := domain.Get(out, domain.KeyDataset)
		require.True(t, ok)
		y := ds.Columns["y"]

		sum := 0.0
		for _, v := range y {
			sum += v
		}
		assert.InDelta(t, 0, sum, 1e-12, "standardized column must have zero mean")
		assert.InDelta(t, -y[3], y[0], 1e-12, "symmetric inputs standardize symmetrically")
	})

	t.Run("standardize faults on zero variance", func(t *testing.T) {
		input := transformInput(t, []float64{5, 5, 5})

		_, err := step.Execute(input, transformChoice(TransformStandardize))
		assert.ErrorIs(t, err, ErrZeroVariance)
	})

	t.Run("input state is not modified", func(t *testing.T) {
		input := transformInput(t, []float64{1, 2, 3})

		_, err := step.Execute(input, transformChoice(TransformStandardize))
		require.NoError(t, err)

		ds, ok := domain.Get(input, domain.KeyDataset)
		require.True(t, ok)
		assert.Equal(t, []float64{1, 2, 3}, ds.Columns["y"], "the input dataset must stay untouched")
	})

	t.Run("rejects an out-of-domain transform", func(t *testing.T) {
		cfg := DefaultTransformOutcomeConfig()
		cfg.Transforms = []string{"none", "log"}
		restricted, err := NewTransformOutcomeStep("transform", cfg)
		require.NoError(t, err)

		input := transformInput(t, []float64{1, 2, 3})
		_, err = restricted.Execute(input, transformChoice(TransformStandardize))
		assert.ErrorIs(t, err, domain.ErrOutOfDomain)
	})

	t.Run("fails without a dataset", func(t *testing.T) {
		_, err := step.Execute(domain.NewState(), transformChoice(TransformLog))
		assert.ErrorIs(t, err, ErrMissingDataset)
	})
}

func TestTransformOutcomeStep_Fixtures(t *testing.T) {
	step, err := NewTransformOutcomeStep("transform", DefaultTransformOutcomeConfig())
	require.NoError(t, err)

	for _, fx := range step.Fixtures() {
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

func TestNewTransformOutcomeFromConfig(t *testing.T) {
	t.Run("defaults apply when config is empty", func(t *testing.T) {
		step, err := NewTransformOutcomeFromConfig("transform1", map[string]any{})
		require.NoError(t, err)

		assert.Len(t, step.Describe().Specs[0].Domain, 3)
	})

	t.Run("config overrides defaults", func(t *testing.T) {
		step, err := NewTransformOutcomeFromConfig("transform1", map[string]any{
			"transforms": []string{"none"},
		})
		require.NoError(t, err)

		domainVals := step.Describe().Specs[0].Domain
		require.Len(t, domainVals, 1)
		assert.Equal(t, "none", domainVals[0].Text())
	})

	t.Run("invalid config is rejected", func(t *testing.T) {
		_, err := NewTransformOutcomeFromConfig("transform1", map[string]any{
			"transforms": []string{"sqrt"},
		})
		assert.Error(t, err)
	})
}
