// Package config holds the settings of the ACS lag pipeline and loads them
// from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-acs/dsp/vanvleck"
	"github.com/cwbudde/algo-acs/dsp/window"
)

var errInvalid = errors.New("config: invalid value")

// Config defines how raw lags are turned into spectra.
type Config struct {
	VanVleckCorr  vanvleck.Model `yaml:"vanVleckCorr"`
	Smoothing     window.Type    `yaml:"smoothing"`
	VVSize        int            `yaml:"vvsize"`
	UseDCBias     bool           `yaml:"useDCBias"`
	DCBias        float64        `yaml:"dcbias"`
	MinBiasFactor int            `yaml:"minbiasfactor"`
	FixLags       bool           `yaml:"fixlags"`
	FixLagsLog    string         `yaml:"fixlagslog"`
	SigmaFactor   float64        `yaml:"sigmaFactor"`
	SpikeStart    int            `yaml:"spikeStart"`
}

// Option mutates a Config.
type Option func(*Config)

// Default returns Schwab correction, Hanning smoothing, 65-point tables,
// no bias handling, detect-only anomaly checks at 6 sigma from lag 200.
func Default() Config {
	return Config{
		VanVleckCorr:  vanvleck.Schwab,
		Smoothing:     window.TypeHanning,
		VVSize:        vanvleck.DefaultTableSize,
		MinBiasFactor: -1,
		SigmaFactor:   6,
		SpikeStart:    200,
	}
}

// New applies opts to the default config.
func New(opts ...Option) Config {
	cfg := Default()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithVanVleck selects the quantization correction.
func WithVanVleck(m vanvleck.Model) Option {
	return func(cfg *Config) { cfg.VanVleckCorr = m }
}

// WithSmoothing selects the lag window.
func WithSmoothing(t window.Type) Option {
	return func(cfg *Config) { cfg.Smoothing = t }
}

// WithVVSize sets the Schwab inversion table size.
func WithVVSize(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.VVSize = n
		}
	}
}

// WithDCBias sets the Schwab bias handling.
func WithDCBias(use bool, bias float64, minBiasFactor int) Option {
	return func(cfg *Config) {
		cfg.UseDCBias = use
		cfg.DCBias = bias
		cfg.MinBiasFactor = minBiasFactor
	}
}

// WithFixLags enables repair of anomalies and sets the audit log path.
func WithFixLags(fix bool, logPath string) Option {
	return func(cfg *Config) {
		cfg.FixLags = fix
		cfg.FixLagsLog = logPath
	}
}

// WithSigmaFactor sets the anomaly threshold.
func WithSigmaFactor(f float64) Option {
	return func(cfg *Config) {
		if f > 0 {
			cfg.SigmaFactor = f
		}
	}
}

// WithSpikeStart sets the first lag tested for spikes.
func WithSpikeStart(lag int) Option {
	return func(cfg *Config) {
		if lag >= 0 {
			cfg.SpikeStart = lag
		}
	}
}

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	switch {
	case c.VanVleckCorr < vanvleck.NoVanVleck || c.VanVleckCorr > vanvleck.PowerLevel:
		return fmt.Errorf("%w: vanVleckCorr %v", errInvalid, c.VanVleckCorr)
	case c.Smoothing < window.TypeNone || c.Smoothing > window.TypeHamming:
		return fmt.Errorf("%w: smoothing %v", errInvalid, c.Smoothing)
	case c.VVSize <= 0:
		return fmt.Errorf("%w: vvsize %d", errInvalid, c.VVSize)
	case !(c.SigmaFactor > 0):
		return fmt.Errorf("%w: sigmaFactor %v", errInvalid, c.SigmaFactor)
	case c.SpikeStart < 0:
		return fmt.Errorf("%w: spikeStart %d", errInvalid, c.SpikeStart)
	}
	return nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Load reads a YAML file. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}
