// Package config loads the exchange configuration: defaults, then an
// optional YAML file, then environment variables (a .env file is honored).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"tradingfloor/internal/common"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

/*
YAML config example:

tick_period: 1s
workers: 4
log_level: info
gateway:
  enabled: true
  address: 0.0.0.0
  port: 9001
simulation:
  min_delay: 300ms
  max_delay: 10s
  info_ratio: 0.2
  info_lookback: 10s
brokers:
  - { id: XPI, name: XP Investimentos }
companies:
  - symbol: PETR
    name: Petrobras
    share_classes: [COMMON, PREFERRED]
*/

type Gateway struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

type Simulation struct {
	MinDelay     time.Duration `yaml:"min_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	InfoRatio    float64       `yaml:"info_ratio"`    // Share of operations that are price requests.
	InfoLookback time.Duration `yaml:"info_lookback"` // How far back price requests may look.
}

type Config struct {
	TickPeriod time.Duration    `yaml:"tick_period"`
	Workers    uint             `yaml:"workers"`
	LogLevel   string           `yaml:"log_level"`
	Gateway    Gateway          `yaml:"gateway"`
	Simulation Simulation       `yaml:"simulation"`
	Brokers    []common.Broker  `yaml:"brokers"`
	Companies  []common.Company `yaml:"companies"`
}

func Default() Config {
	return Config{
		TickPeriod: time.Second,
		Workers:    4,
		LogLevel:   "info",
		Gateway: Gateway{
			Enabled: true,
			Address: "0.0.0.0",
			Port:    9001,
		},
		Simulation: Simulation{
			MinDelay:     300 * time.Millisecond,
			MaxDelay:     10 * time.Second,
			InfoRatio:    0.2,
			InfoLookback: 10 * time.Second,
		},
		Brokers:   common.DefaultBrokers(),
		Companies: common.DefaultCompanies(),
	}
}

// LoadFile overlays the YAML file at path on the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("unable to parse config file: %w", err)
	}
	return cfg, nil
}

// Load reads the YAML file (if path is set) and applies environment
// overrides. Priority: ENV > .env file > YAML > defaults.
func Load(path, envPath string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return Config{}, err
		}
	}

	// The .env file is optional.
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (cfg *Config) applyEnv() error {
	durations := map[string]*time.Duration{
		"TF_TICK_PERIOD":       &cfg.TickPeriod,
		"TF_SIM_MIN_DELAY":     &cfg.Simulation.MinDelay,
		"TF_SIM_MAX_DELAY":     &cfg.Simulation.MaxDelay,
		"TF_SIM_INFO_LOOKBACK": &cfg.Simulation.InfoLookback,
	}
	for key, target := range durations {
		if value := os.Getenv(key); value != "" {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
			}
			*target = d
		}
	}

	if value := os.Getenv("TF_WORKERS"); value != "" {
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: TF_WORKERS: %w", ErrInvalidConfig, err)
		}
		cfg.Workers = uint(n)
	}
	if value := os.Getenv("TF_PORT"); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: TF_PORT: %w", ErrInvalidConfig, err)
		}
		cfg.Gateway.Port = port
	}
	if value := os.Getenv("TF_GATEWAY"); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: TF_GATEWAY: %w", ErrInvalidConfig, err)
		}
		cfg.Gateway.Enabled = enabled
	}
	if value := os.Getenv("TF_SIM_INFO_RATIO"); value != "" {
		ratio, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: TF_SIM_INFO_RATIO: %w", ErrInvalidConfig, err)
		}
		cfg.Simulation.InfoRatio = ratio
	}
	if value := os.Getenv("TF_ADDRESS"); value != "" {
		cfg.Gateway.Address = value
	}
	if value := os.Getenv("TF_LOG_LEVEL"); value != "" {
		cfg.LogLevel = value
	}
	return nil
}

func (cfg Config) Validate() error {
	if cfg.TickPeriod <= 0 {
		return fmt.Errorf("%w: tick period must be positive", ErrInvalidConfig)
	}
	if cfg.Workers == 0 {
		return fmt.Errorf("%w: at least one worker is required", ErrInvalidConfig)
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: log level: %w", ErrInvalidConfig, err)
	}
	if cfg.Gateway.Enabled && (cfg.Gateway.Port <= 0 || cfg.Gateway.Port > 65535) {
		return fmt.Errorf("%w: gateway port out of range: %d", ErrInvalidConfig, cfg.Gateway.Port)
	}
	sim := cfg.Simulation
	if sim.MinDelay <= 0 || sim.MaxDelay <= sim.MinDelay {
		return fmt.Errorf("%w: simulation delays must satisfy 0 < min < max", ErrInvalidConfig)
	}
	if sim.InfoRatio < 0 || sim.InfoRatio > 1 {
		return fmt.Errorf("%w: info ratio must be within [0, 1]", ErrInvalidConfig)
	}
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("%w: no brokers configured", ErrInvalidConfig)
	}
	if len(cfg.Companies) == 0 {
		return fmt.Errorf("%w: no companies configured", ErrInvalidConfig)
	}
	return nil
}

// Level is the parsed log level, info when unset or invalid.
func (cfg Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return level
}
