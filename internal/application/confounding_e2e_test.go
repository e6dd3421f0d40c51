package application

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-multiverse/infrastructure/steps"
	"github.com/ahrav/go-multiverse/internal/domain"
	"github.com/ahrav/go-multiverse/internal/ports"
	"github.com/ahrav/go-multiverse/internal/testutils"
)

// TestConfoundingMultiverse exhausts a one-step design over synthetic data
// with a known true effect and verifies that the adjusted specification
// lands closer to the truth than the naive one.
func TestConfoundingMultiverse(t *testing.T) {
	ctx := context.Background()

	estimate, err := steps.NewEstimateModelStep("estimate", steps.DefaultEstimateModelConfig())
	require.NoError(t, err)
	design, err := NewDesign("confounding", estimate)
	require.NoError(t, err)

	cfg := testutils.DefaultConfoundedConfig()
	input, err := testutils.NewConfoundedState(cfg)
	require.NoError(t, err)

	table, err := NewExhauster().Exhaust(ctx, design, input)
	require.NoError(t, err)

	require.Equal(t, 2, table.NumRows(), "one binary choice yields two analyses")
	require.False(t, table.HasColumn(domain.FailureColumn))

	estimates := make(map[string]float64, 2)
	for i := 0; i < table.NumRows(); i++ {
		choice, ok := table.Cell(i, steps.ChoiceControlForConfounder)
		require.True(t, ok)
		est, ok := table.Cell(i, domain.KeyEstimate.Name())
		require.True(t, ok)
		estimates[choice.(string)] = est.(float64)
	}

	adjusted := math.Abs(estimates["yes"] - cfg.Effect)
	naive := math.Abs(estimates["no"] - cfg.Effect)
	assert.Less(t, adjusted, naive,
		"controlling for the confounder must move the estimate toward the truth")
	assert.InDelta(t, cfg.Effect, estimates["yes"], 0.2)
	assert.Greater(t, naive, 0.2, "the naive estimate should carry visible bias")
}

// TestFullMultiverse runs the complete three-step pipeline end to end:
// 3 transforms x 2 exclusion settings x 3 thresholds x 2 specifications.
func TestFullMultiverse(t *testing.T) {
	ctx := context.Background()

	transform, err := steps.NewTransformOutcomeStep("transform", steps.DefaultTransformOutcomeConfig())
	require.NoError(t, err)
	filter, err := steps.NewFilterOutliersStep("filter", steps.DefaultFilterOutliersConfig())
	require.NoError(t, err)
	estimate, err := steps.NewEstimateModelStep("estimate", steps.DefaultEstimateModelConfig())
	require.NoError(t, err)

	design, err := NewDesign("full", transform, filter, estimate)
	require.NoError(t, err)

	input, err := testutils.NewConfoundedState(testutils.DefaultConfoundedConfig())
	require.NoError(t, err)

	table, err := NewExhauster().Exhaust(ctx, design, input)
	require.NoError(t, err)

	assert.Equal(t, 36, table.NumRows())

	// Every protocol combination must be present exactly once.
	seen := make(map[string]int)
	for i := 0; i < table.NumRows(); i++ {
		tr, _ := table.Cell(i, steps.ChoiceTransform)
		ex, _ := table.Cell(i, steps.ChoiceExcludeOutliers)
		th, _ := table.Cell(i, steps.ChoiceSDThreshold)
		cz, _ := table.Cell(i, steps.ChoiceControlForConfounder)
		key := tr.(string) + "|" +
			map[bool]string{false: "f", true: "t"}[ex.(bool)] + "|" +
			domain.Numeric(th.(float64)).String() + "|" + cz.(string)
		seen[key]++
	}
	assert.Len(t, seen, 36)
	for key, count := range seen {
		assert.Equal(t, 1, count, "protocol %s appeared %d times", key, count)
	}

	// Estimates exist wherever the row did not fault; the synthetic draw
	// keeps y positive, so the log transform never faults on the raw data.
	for i := 0; i < table.NumRows(); i++ {
		if table.HasColumn(domain.FailureColumn) {
			if failure, _ := table.Cell(i, domain.FailureColumn); failure != nil {
				continue
			}
		}
		est, ok := table.Cell(i, domain.KeyEstimate.Name())
		require.True(t, ok)
		assert.IsType(t, float64(0), est, "row %d", i)
	}
}

// TestPowerAcrossSampleSizes verifies that rejection rates rise with the
// sample size under a fixed protocol and a real effect.
func TestPowerAcrossSampleSizes(t *testing.T) {
	if testing.Short() {
		t.Skip("power simulation is comparatively slow")
	}

	ctx := context.Background()

	estimate, err := steps.NewEstimateModelStep("estimate", steps.DefaultEstimateModelConfig())
	require.NoError(t, err)
	design, err := NewDesign("power", estimate)
	require.NoError(t, err)

	protocol := domain.Protocol{
		{Name: steps.ChoiceControlForConfounder, Value: domain.Categorical("yes")},
	}
	generator := testutils.NewConfoundedGenerator(testutils.DefaultConfoundedConfig())
	grid := []ports.Params{{"n": 20}, {"n": 400}}

	table, err := NewPowerSimulator().SimulatePower(ctx, design, protocol, generator, grid, 100)
	require.NoError(t, err)
	require.Equal(t, 200, table.NumRows())

	rates := make(map[int]float64)
	for _, n := range []int{20, 400} {
		total, rejected := 0, 0
		for i := 0; i < table.NumRows(); i++ {
			size, _ := table.Cell(i, "n")
			if size != n {
				continue
			}
			total++
			p, ok := table.Cell(i, domain.KeyPValue.Name())
			require.True(t, ok)
			if p.(float64) < 0.05 {
				rejected++
			}
		}
		require.Equal(t, 100, total)
		rates[n] = float64(rejected) / float64(total)
	}

	assert.Greater(t, rates[400], rates[20],
		"power must increase with sample size under a real effect")
	assert.Greater(t, rates[400], 0.9, "n=400 with effect 0.5 should be near-certain rejection")
}
