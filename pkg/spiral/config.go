package spiral

import (
	"errors"
	"fmt"
	"math"
)

// Defaults applied to options that are never set.
const (
	DefaultSeed  = "demo"
	DefaultDepth = 12
	DefaultRatio = 144.0 / 99.0
)

// Ratio bounds. Outside them the angular step 2π/ratio² or the node
// coordinates stop being representable.
const (
	MinRatio = 1e-6
	MaxRatio = 1e6
)

var (
	// ErrInvalidConfig is returned when depth or count is negative or out of
	// range, or the ratio lies outside [MinRatio, MaxRatio].
	ErrInvalidConfig = errors.New("spiral: invalid config")

	// ErrInvalidIndex is returned when a node is requested at a negative index.
	ErrInvalidIndex = errors.New("spiral: invalid index")
)

// Config is the immutable seed/depth/ratio triple that fixes a generator's
// output. A Generator copies it at construction and never mutates it.
type Config struct {
	Seed  string  `json:"seed" yaml:"seed"`
	Depth int     `json:"depth" yaml:"depth"`
	Ratio float64 `json:"ratio" yaml:"ratio"`
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		Seed:  DefaultSeed,
		Depth: DefaultDepth,
		Ratio: DefaultRatio,
	}
}

// Validate reports whether c can drive a generator.
func (c Config) Validate() error {
	if c.Depth < 0 {
		return fmt.Errorf("%w: depth %d is negative", ErrInvalidConfig, c.Depth)
	}
	if !(c.Ratio > 0) || math.IsInf(c.Ratio, 1) {
		return fmt.Errorf("%w: ratio %v must be positive and finite", ErrInvalidConfig, c.Ratio)
	}
	if c.Ratio < MinRatio || c.Ratio > MaxRatio {
		return fmt.Errorf("%w: ratio %g outside [%g, %g]", ErrInvalidConfig, c.Ratio, MinRatio, MaxRatio)
	}
	return nil
}

// Option sets one field of the generator configuration.
type Option func(*Config)

// WithSeed sets the seed. An empty seed falls back to DefaultSeed.
func WithSeed(seed string) Option {
	return func(c *Config) { c.Seed = seed }
}

// WithDepth sets the number of nodes in a generation run.
func WithDepth(depth int) Option {
	return func(c *Config) { c.Depth = depth }
}

// WithRatio sets the spiral proportion constant.
func WithRatio(ratio float64) Option {
	return func(c *Config) { c.Ratio = ratio }
}
