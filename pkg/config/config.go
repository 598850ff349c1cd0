// Package config loads analysis tuning parameters from defaults, an
// optional YAML file, and MARKETLENS_* environment variables.
package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/viper"

	"github.com/seenimoa/marketlens/pkg/models"
)

// Config represents the complete analysis configuration.
type Config struct {
	RiskFreeRate float64      `mapstructure:"risk_free_rate" yaml:"risk_free_rate"` // annualized, e.g. 0.01
	Solver       SolverConfig `mapstructure:"solver"         yaml:"solver"`
	Stats        StatsConfig  `mapstructure:"stats"          yaml:"stats"`
	Growth       GrowthConfig `mapstructure:"growth"         yaml:"growth"`
	Runner       RunnerConfig `mapstructure:"runner"         yaml:"runner"`
}

// SolverConfig brackets the implied-volatility bisection.
type SolverConfig struct {
	Lo      float64 `mapstructure:"lo"       yaml:"lo"`
	Hi      float64 `mapstructure:"hi"       yaml:"hi"`
	Tol     float64 `mapstructure:"tol"      yaml:"tol"`
	MaxIter int     `mapstructure:"max_iter" yaml:"max_iter"`
}

// StatsConfig holds return-statistics settings.
type StatsConfig struct {
	Window    int `mapstructure:"window"     yaml:"window"`     // rolling stddev window, bars
	KDEPoints int `mapstructure:"kde_points" yaml:"kde_points"` // density grid size
}

// GrowthConfig selects the line items growth rates are computed for.
type GrowthConfig struct {
	// Fields lists statement line items; empty means the library default
	// set (revenue, EBITDA, net income, diluted EPS).
	Fields []string `mapstructure:"fields" yaml:"fields"`
}

// RunnerConfig holds batch execution settings.
type RunnerConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"` // max tickers in flight
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		RiskFreeRate: 0.01,
		Solver:       SolverConfig{Lo: 1e-6, Hi: 5.0, Tol: 1e-6, MaxIter: 100},
		Stats:        StatsConfig{Window: 21, KDEPoints: 200},
		Runner:       RunnerConfig{Concurrency: 4},
	}
}

// Load reads configuration, layering an optional YAML file and environment
// variables over the defaults. An empty path skips the file and uses
// defaults plus environment only.
//
// Environment variables use the prefix MARKETLENS with "_" joining nested
// keys, e.g. MARKETLENS_RISK_FREE_RATE, MARKETLENS_SOLVER_MAX_ITER.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MARKETLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults mirrors Default into viper so file and environment values
// layer over it key by key.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("risk_free_rate", d.RiskFreeRate)
	v.SetDefault("solver.lo", d.Solver.Lo)
	v.SetDefault("solver.hi", d.Solver.Hi)
	v.SetDefault("solver.tol", d.Solver.Tol)
	v.SetDefault("solver.max_iter", d.Solver.MaxIter)
	v.SetDefault("stats.window", d.Stats.Window)
	v.SetDefault("stats.kde_points", d.Stats.KDEPoints)
	v.SetDefault("runner.concurrency", d.Runner.Concurrency)
}

// Validate checks that the loaded values can actually drive the analysis
// packages.
func (c *Config) Validate() error {
	if math.IsNaN(c.RiskFreeRate) || math.IsInf(c.RiskFreeRate, 0) {
		return &models.ErrInvalidParameter{Param: "risk_free_rate", Value: c.RiskFreeRate, Reason: "must be finite"}
	}
	if c.Solver.Lo <= 0 {
		return &models.ErrInvalidParameter{Param: "solver.lo", Value: c.Solver.Lo, Reason: "must be positive"}
	}
	if c.Solver.Hi <= c.Solver.Lo {
		return &models.ErrInvalidParameter{Param: "solver.hi", Value: c.Solver.Hi, Reason: "must be above solver.lo"}
	}
	if c.Solver.Tol <= 0 {
		return &models.ErrInvalidParameter{Param: "solver.tol", Value: c.Solver.Tol, Reason: "must be positive"}
	}
	if c.Solver.MaxIter < 1 {
		return &models.ErrInvalidParameter{Param: "solver.max_iter", Value: float64(c.Solver.MaxIter), Reason: "must be at least 1"}
	}
	if c.Stats.Window < 2 {
		return &models.ErrInvalidParameter{Param: "stats.window", Value: float64(c.Stats.Window), Reason: "must be at least 2"}
	}
	if c.Stats.KDEPoints < 2 {
		return &models.ErrInvalidParameter{Param: "stats.kde_points", Value: float64(c.Stats.KDEPoints), Reason: "must be at least 2"}
	}
	if c.Runner.Concurrency < 1 {
		return &models.ErrInvalidParameter{Param: "runner.concurrency", Value: float64(c.Runner.Concurrency), Reason: "must be at least 1"}
	}
	return nil
}
