// Package testutils provides utilities for testing, including synthetic
// dataset generators with known ground truth. These components are intended
// for internal use within the project's test suites and for power
// simulation, and are not part of the public API.
package testutils

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"

	"github.com/ahrav/go-multiverse/internal/domain"
	"github.com/ahrav/go-multiverse/internal/ports"
)

// ConfoundedConfig parameterizes a synthetic dataset drawn from a linear
// model with a known confounder:
//
//	z ~ Normal(0, 1)
//	x = Confounding*z + Normal(0, 1)
//	y = Effect*x + Confounding*z + Normal(0, NoiseSD)
//
// Because z drives both x and y, a regression of y on x alone is biased
// upward; controlling for z recovers Effect. That makes the dataset a
// ground-truth probe for analysis pipelines: the right answer is known by
// construction.
type ConfoundedConfig struct {
	// N is the number of observations to draw.
	N int
	// Effect is the true causal coefficient of x on y.
	Effect float64
	// Confounding scales how strongly z drives both x and y. Zero removes
	// the confounding entirely.
	Confounding float64
	// NoiseSD is the standard deviation of the outcome noise.
	NoiseSD float64
	// Seed fixes the random stream for reproducible draws.
	Seed uint64
}

// DefaultConfoundedConfig returns a configuration with a moderate true
// effect and enough confounding that naive and adjusted estimates visibly
// diverge.
func DefaultConfoundedConfig() ConfoundedConfig {
	return ConfoundedConfig{
		N:           1000,
		Effect:      0.5,
		Confounding: 1.0,
		NoiseSD:     1.0,
		Seed:        1,
	}
}

// NewConfoundedDataset draws a dataset with columns x, z, and y from the
// configured linear model. Values in y are shifted to be strictly positive
// so log transformation is well defined on the raw draw.
func NewConfoundedDataset(cfg ConfoundedConfig) (*domain.Dataset, error) {
	if cfg.N < 1 {
		return nil, fmt.Errorf("dataset size must be at least 1, got %d", cfg.N)
	}
	if cfg.NoiseSD < 0 {
		return nil, fmt.Errorf("noise standard deviation must be non-negative, got %g", cfg.NoiseSD)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1))

	x := make([]float64, cfg.N)
	z := make([]float64, cfg.N)
	y := make([]float64, cfg.N)
	minY := math.Inf(1)
	for i := range cfg.N {
		z[i] = rng.NormFloat64()
		x[i] = cfg.Confounding*z[i] + rng.NormFloat64()
		y[i] = cfg.Effect*x[i] + cfg.Confounding*z[i] + cfg.NoiseSD*rng.NormFloat64()
		minY = math.Min(minY, y[i])
	}

	// Shift the outcome above zero without touching the slope.
	if minY <= 0 {
		shift := -minY + 1
		for i := range y {
			y[i] += shift
		}
	}

	ds := domain.NewDataset(cfg.N)
	ds.Columns["x"] = x
	ds.Columns["z"] = z
	ds.Columns["y"] = y
	return ds, nil
}

// NewConfoundedState wraps NewConfoundedDataset into a ready-to-run input
// state.
func NewConfoundedState(cfg ConfoundedConfig) (domain.State, error) {
	ds, err := NewConfoundedDataset(cfg)
	if err != nil {
		return domain.State{}, err
	}
	return domain.With(domain.NewState(), domain.KeyDataset, ds), nil
}

// NewConfoundedGenerator adapts the confounded model into an input
// generator for power simulation. Each invocation draws an independent
// dataset: the base configuration supplies defaults, and the per-cell
// parameters n, effect, confounding, and noise_sd override them. A
// monotonically advancing seed offset keeps replications independent while
// the whole simulation stays reproducible from the base seed.
//
// The returned generator derives a fresh random stream per call, so it is
// safe for the concurrent dispatch the power simulator performs.
func NewConfoundedGenerator(base ConfoundedConfig) ports.InputGenerator {
	var calls uint64

	return func(params ports.Params) (domain.State, error) {
		cfg := base

		if v, ok := params["n"]; ok {
			n, err := toInt(v)
			if err != nil {
				return domain.State{}, fmt.Errorf("parameter n: %w", err)
			}
			cfg.N = n
		}
		if v, ok := params["effect"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return domain.State{}, fmt.Errorf("parameter effect: %w", err)
			}
			cfg.Effect = f
		}
		if v, ok := params["confounding"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return domain.State{}, fmt.Errorf("parameter confounding: %w", err)
			}
			cfg.Confounding = f
		}
		if v, ok := params["noise_sd"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return domain.State{}, fmt.Errorf("parameter noise_sd: %w", err)
			}
			cfg.NoiseSD = f
		}

		cfg.Seed = base.Seed + atomic.AddUint64(&calls, 1)
		return NewConfoundedState(cfg)
	}
}

// toInt coerces the numeric types a parameter grid plausibly carries.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

// toFloat64 coerces the numeric types a parameter grid plausibly carries.
func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
