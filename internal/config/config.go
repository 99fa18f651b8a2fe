// Package config handles run configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gateway-fm/dabench/pkg/types"
)

// Config holds the resolved run configuration. It is immutable once Resolve returns.
type Config struct {
	Mode         types.Mode
	EigenDA      EigenDAConfig
	MetricsPort  uint16
	StopAfterOne bool   // Stop after a single round
	RunForSecs   uint32 // math.MaxUint32 = unbounded
	SleepForSecs uint32 // Pause between rounds
	LogLevel     string
}

// EigenDAConfig is the mode-specific configuration carried by each subcommand.
type EigenDAConfig struct {
	BlockSize                int // Payload size in bytes
	DisperserRPC             string
	QuorumID                 uint32
	AdversaryThreshold       uint32 // Percent
	QuorumThreshold          uint32 // Percent
	StatusQueryRetryInterval time.Duration
	StatusQueryTimeout       time.Duration
	RequestTimeout           time.Duration // Per-RPC deadline
	Insecure                 bool          // Plaintext gRPC (local disperser)
}

// Defaults
const (
	DefaultMetricsPort              = 9148
	DefaultRunForSecs               = math.MaxUint32 // effectively unbounded
	DefaultSleepForSecs             = 0
	DefaultLogLevel                 = "info"
	DefaultBlockSize                = 128 * 1024
	DefaultDisperserRPC             = "disperser-holesky.eigenda.xyz:443"
	DefaultQuorumID                 = 0
	DefaultAdversaryThreshold       = 25
	DefaultQuorumThreshold          = 50
	DefaultStatusQueryRetryInterval = 5 * time.Second
	DefaultStatusQueryTimeout       = 25 * time.Minute
	DefaultRequestTimeout           = 60 * time.Second
	MaxBlockSize                    = 16 * 1024 * 1024 // Disperser blob size limit
)

// DefaultEigenDAConfig returns the mode-config defaults.
func DefaultEigenDAConfig() EigenDAConfig {
	return EigenDAConfig{
		BlockSize:                DefaultBlockSize,
		DisperserRPC:             DefaultDisperserRPC,
		QuorumID:                 DefaultQuorumID,
		AdversaryThreshold:       DefaultAdversaryThreshold,
		QuorumThreshold:          DefaultQuorumThreshold,
		StatusQueryRetryInterval: DefaultStatusQueryRetryInterval,
		StatusQueryTimeout:       DefaultStatusQueryTimeout,
		RequestTimeout:           DefaultRequestTimeout,
	}
}

// ConfigurationError is returned for any malformed or missing argument.
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Msg, e.Err)
	}
	return "configuration error: " + e.Msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErrorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// defaults builds the pre-flag configuration, applying environment overrides.
// Command-line flags take precedence over environment variables.
func defaults() (*Config, error) {
	cfg := &Config{
		EigenDA:      DefaultEigenDAConfig(),
		MetricsPort:  DefaultMetricsPort,
		RunForSecs:   DefaultRunForSecs,
		SleepForSecs: DefaultSleepForSecs,
		LogLevel:     DefaultLogLevel,
	}

	if v := os.Getenv("METRICS_PORT"); v != "" {
		port, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("invalid METRICS_PORT %q", v), Err: err}
		}
		cfg.MetricsPort = uint16(port)
	}
	if v := os.Getenv("EIGENDA_DISPERSER_RPC"); v != "" {
		cfg.EigenDA.DisperserRPC = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}

// Unbounded reports whether the run has no wall-clock budget.
func (c *Config) Unbounded() bool {
	return c.RunForSecs == DefaultRunForSecs
}

// RunFor returns the wall-clock budget of the run.
func (c *Config) RunFor() time.Duration {
	return time.Duration(c.RunForSecs) * time.Second
}

// SleepBetweenRounds returns the pause applied after every round.
func (c *Config) SleepBetweenRounds() time.Duration {
	return time.Duration(c.SleepForSecs) * time.Second
}

// MetricsAddr returns the metrics server bind address.
func (c *Config) MetricsAddr() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(int(c.MetricsPort)))
}

// SlogLevel maps LogLevel to a slog level; unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate validates the run configuration.
func (c *Config) Validate() error {
	if !c.Mode.Valid() {
		return configErrorf("invalid mode %q", c.Mode)
	}
	if c.MetricsPort == 0 {
		return configErrorf("invalid metrics port 0")
	}
	return c.EigenDA.Validate()
}

// Validate validates the mode-config.
func (c *EigenDAConfig) Validate() error {
	if c.BlockSize <= 0 {
		return configErrorf("block size must be positive, got %d", c.BlockSize)
	}
	if c.BlockSize > MaxBlockSize {
		return configErrorf("block size %d exceeds maximum of %d bytes", c.BlockSize, MaxBlockSize)
	}
	if strings.TrimSpace(c.DisperserRPC) == "" {
		return configErrorf("disperser RPC address is required")
	}
	if _, _, err := net.SplitHostPort(c.DisperserRPC); err != nil {
		return &ConfigurationError{Msg: fmt.Sprintf("invalid disperser RPC address %q", c.DisperserRPC), Err: err}
	}
	if c.QuorumThreshold == 0 || c.QuorumThreshold > 100 {
		return configErrorf("quorum threshold must be between 1 and 100, got %d", c.QuorumThreshold)
	}
	if c.AdversaryThreshold >= c.QuorumThreshold {
		return configErrorf("adversary threshold (%d) must be below quorum threshold (%d)",
			c.AdversaryThreshold, c.QuorumThreshold)
	}
	if c.StatusQueryRetryInterval <= 0 {
		return configErrorf("status query retry interval must be positive")
	}
	if c.StatusQueryTimeout <= 0 {
		return configErrorf("status query timeout must be positive")
	}
	if c.RequestTimeout <= 0 {
		return configErrorf("request timeout must be positive")
	}
	return nil
}
