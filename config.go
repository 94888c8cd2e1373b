package taskpool

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Swind/go-task-pool/core"
)

// ErrInvalidConfig is returned when a configuration value is out of range.
var ErrInvalidConfig = errors.New("taskpool: invalid config")

// Config is the deployment configuration of a pool. It is resolved once,
// when the pool is constructed.
type Config struct {
	// Name labels logs and metrics.
	Name string `toml:"name"`

	// Workers is the number of worker goroutines. Zero means GOMAXPROCS.
	Workers int `toml:"workers"`

	// MaxLevel is the most verbose diagnostic level emitted. The zero value
	// resolves to info.
	MaxLevel core.LevelFilter `toml:"max_level"`

	// StealBatch caps how many tasks an idle worker takes from another.
	StealBatch int `toml:"steal_batch"`

	// HistoryCapacity is how many poll records are kept for diagnostics.
	HistoryCapacity int `toml:"history_capacity"`

	// ShutdownTimeout bounds a graceful stop, e.g. "5s".
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

const (
	defaultPoolName        = "taskpool"
	defaultShutdownTimeout = 5 * time.Second
	maxWorkers             = 10000
)

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		Name:            defaultPoolName,
		Workers:         runtime.GOMAXPROCS(0),
		MaxLevel:        core.DefaultLevelFilter,
		StealBatch:      32,
		HistoryCapacity: 100,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig and validates it.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown keys %v in %s", ErrInvalidConfig, undecoded, path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg.Resolve(), nil
}

// ParseConfig is LoadConfig for an in-memory document.
func ParseConfig(data string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown keys %v", ErrInvalidConfig, undecoded)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg.Resolve(), nil
}

// Validate reports values that can never be made to work.
func (c Config) Validate() error {
	if c.Workers < 0 || c.Workers > maxWorkers {
		return fmt.Errorf("%w: workers must be in [0, %d], got %d", ErrInvalidConfig, maxWorkers, c.Workers)
	}
	if c.StealBatch < 0 {
		return fmt.Errorf("%w: steal_batch must not be negative, got %d", ErrInvalidConfig, c.StealBatch)
	}
	if c.HistoryCapacity < 0 {
		return fmt.Errorf("%w: history_capacity must not be negative, got %d", ErrInvalidConfig, c.HistoryCapacity)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: shutdown_timeout must not be negative, got %v", ErrInvalidConfig, c.ShutdownTimeout)
	}
	if c.MaxLevel > core.LevelFilterTrace {
		return fmt.Errorf("%w: max_level %d", ErrInvalidConfig, c.MaxLevel)
	}
	return nil
}

// Resolve fills zero values: an empty name, zero workers (GOMAXPROCS), an
// unset max level and a zero shutdown timeout.
func (c Config) Resolve() Config {
	c.MaxLevel = c.MaxLevel.OrDefault()
	if c.Name == "" {
		c.Name = defaultPoolName
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	return c
}
