// Package config loads snekmax settings.
//
// Values are layered: built-in defaults, then the YAML file named by -config
// (or SNEKMAX_CONFIG), then SNEKMAX_* environment variables, then flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brensch/snekmax/engine"
	"github.com/brensch/snekmax/heuristic"
	"github.com/brensch/snekmax/search"
)

const envPrefix = "SNEKMAX_"

type Config struct {
	// Path is the YAML file the config was read from, if any.
	Path string `yaml:"-"`

	Listen string `yaml:"listen"`
	// LatencyReserve is kept back from the host's per-move timeout for
	// network and serialisation.
	LatencyReserve time.Duration `yaml:"latency_reserve"`
	// MinCompute is the least time a decision gets regardless of reserve.
	MinCompute time.Duration `yaml:"min_compute"`
	// DefaultTimeout applies when a request carries no timeout.
	DefaultTimeout time.Duration `yaml:"default_timeout"`

	Search  Search            `yaml:"search"`
	Weights heuristic.Weights `yaml:"weights"`
	Log     Log               `yaml:"log"`
	Archive Archive           `yaml:"archive"`
}

type Search struct {
	SafetyBuffer time.Duration `yaml:"safety_buffer"`
	MaxDepth     int           `yaml:"max_depth"`
	Parallel     bool          `yaml:"parallel"`
	TableSize    int           `yaml:"table_size"`
	Opponents    string        `yaml:"opponents"`
}

type Log struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// Archive controls the parquet decision archive. An empty Dir disables it.
type Archive struct {
	Dir        string        `yaml:"dir"`
	FlushCount int           `yaml:"flush_count"`
	FlushEvery time.Duration `yaml:"flush_every"`
}

func Default() Config {
	sc := search.DefaultConfig()
	return Config{
		Listen:         ":8080",
		LatencyReserve: 150 * time.Millisecond,
		MinCompute:     50 * time.Millisecond,
		DefaultTimeout: 500 * time.Millisecond,
		Search: Search{
			SafetyBuffer: sc.SafetyBuffer,
			MaxDepth:     sc.MaxDepth,
			Parallel:     sc.Parallel,
			TableSize:    sc.TableSize,
			Opponents:    sc.Opponents.Name(),
		},
		Weights: heuristic.DefaultWeights(),
		Log:     Log{Format: "pretty", Level: "info"},
		Archive: Archive{FlushCount: 1000, FlushEvery: 5 * time.Minute},
	}
}

// Load reads defaults, then the YAML file at path (skipped when path is
// empty), then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	c.Path = path
	return nil
}

func (c *Config) applyEnv() {
	c.Listen = getEnvOrDefault(envPrefix+"LISTEN", c.Listen)
	c.LatencyReserve = getEnvDurationOrDefault(envPrefix+"LATENCY_RESERVE", c.LatencyReserve)
	c.MinCompute = getEnvDurationOrDefault(envPrefix+"MIN_COMPUTE", c.MinCompute)
	c.DefaultTimeout = getEnvDurationOrDefault(envPrefix+"DEFAULT_TIMEOUT", c.DefaultTimeout)

	c.Search.SafetyBuffer = getEnvDurationOrDefault(envPrefix+"SAFETY_BUFFER", c.Search.SafetyBuffer)
	c.Search.MaxDepth = getEnvIntOrDefault(envPrefix+"MAX_DEPTH", c.Search.MaxDepth)
	c.Search.Parallel = getEnvBoolOrDefault(envPrefix+"PARALLEL", c.Search.Parallel)
	c.Search.TableSize = getEnvIntOrDefault(envPrefix+"TABLE_SIZE", c.Search.TableSize)
	c.Search.Opponents = getEnvOrDefault(envPrefix+"OPPONENTS", c.Search.Opponents)

	c.Log.Format = getEnvOrDefault(envPrefix+"LOG_FORMAT", c.Log.Format)
	c.Log.Level = getEnvOrDefault(envPrefix+"LOG_LEVEL", c.Log.Level)

	c.Archive.Dir = getEnvOrDefault(envPrefix+"ARCHIVE_DIR", c.Archive.Dir)
	c.Archive.FlushCount = getEnvIntOrDefault(envPrefix+"ARCHIVE_FLUSH_COUNT", c.Archive.FlushCount)
	c.Archive.FlushEvery = getEnvDurationOrDefault(envPrefix+"ARCHIVE_FLUSH_EVERY", c.Archive.FlushEvery)
}

// Bind registers flags for every setting on fs, defaulting to c's current
// values.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Listen, "listen", c.Listen, "HTTP listen address")
	fs.DurationVar(&c.LatencyReserve, "latency-reserve", c.LatencyReserve, "Time kept back from the move timeout for network overhead")
	fs.DurationVar(&c.MinCompute, "min-compute", c.MinCompute, "Minimum time given to a decision")
	fs.DurationVar(&c.DefaultTimeout, "default-timeout", c.DefaultTimeout, "Move timeout when the request has none")

	fs.DurationVar(&c.Search.SafetyBuffer, "safety-buffer", c.Search.SafetyBuffer, "Search stops this long before the deadline")
	fs.IntVar(&c.Search.MaxDepth, "max-depth", c.Search.MaxDepth, "Maximum search depth in ticks")
	fs.BoolVar(&c.Search.Parallel, "parallel", c.Search.Parallel, "Search root moves in parallel")
	fs.IntVar(&c.Search.TableSize, "table-size", c.Search.TableSize, "Transposition table entries per decision")
	fs.StringVar(&c.Search.Opponents, "opponents", c.Search.Opponents, "Opponent model: paranoid or greedy")

	fs.StringVar(&c.Log.Format, "log-format", c.Log.Format, "Log format: pretty, json or text")
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "Log level")

	fs.StringVar(&c.Archive.Dir, "archive-dir", c.Archive.Dir, "Directory for parquet decision archives (empty disables)")
	fs.IntVar(&c.Archive.FlushCount, "archive-flush-count", c.Archive.FlushCount, "Flush the archive after this many decisions")
	fs.DurationVar(&c.Archive.FlushEvery, "archive-flush-every", c.Archive.FlushEvery, "Flush the archive at this interval")
}

// Parse layers the config for a binary. extra, when set, registers the
// binary's own flags; it runs once per flag pass so it must only bind
// pointers (fs.IntVar, not fs.Int).
func Parse(name string, args []string, extra func(fs *flag.FlagSet)) (Config, error) {
	path := getEnvOrDefault(envPrefix+"CONFIG", "")

	// First pass only finds -config; errors are reported by the second.
	scratch := Default()
	pre := flagSet(name, &scratch, &path, extra)
	pre.SetOutput(io.Discard)
	if err := pre.Parse(args); err != nil {
		cfg := Default()
		return cfg, flagSet(name, &cfg, &path, extra).Parse(args)
	}

	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if err := flagSet(name, &cfg, &cfg.Path, extra).Parse(args); err != nil {
		return cfg, fmt.Errorf("parse flags: %w", err)
	}
	return cfg, cfg.Validate()
}

func flagSet(name string, cfg *Config, path *string, extra func(fs *flag.FlagSet)) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfg.Bind(fs)
	fs.StringVar(path, "config", *path, "YAML config file (env SNEKMAX_CONFIG)")
	if extra != nil {
		extra(fs)
	}
	return fs
}

func (c Config) Validate() error {
	switch {
	case c.Search.MaxDepth <= 0:
		return fmt.Errorf("max depth must be positive, got %d", c.Search.MaxDepth)
	case c.Search.TableSize <= 0:
		return fmt.Errorf("table size must be positive, got %d", c.Search.TableSize)
	case c.Search.SafetyBuffer < 0 || c.LatencyReserve < 0 || c.MinCompute < 0:
		return errors.New("durations must not be negative")
	}
	if _, err := search.ParseOpponentModel(c.Search.Opponents); err != nil {
		return err
	}
	return nil
}

// SearchConfig converts the search section for the search package.
func (c Config) SearchConfig() (search.Config, error) {
	model, err := search.ParseOpponentModel(c.Search.Opponents)
	if err != nil {
		return search.Config{}, err
	}
	return search.Config{
		SafetyBuffer: c.Search.SafetyBuffer,
		MaxDepth:     c.Search.MaxDepth,
		Parallel:     c.Search.Parallel,
		TableSize:    c.Search.TableSize,
		Opponents:    model,
	}, nil
}

// NewEngine builds an engine from the search and weights sections.
func (c Config) NewEngine(logger *slog.Logger) (*engine.Engine, error) {
	sc, err := c.SearchConfig()
	if err != nil {
		return nil, err
	}
	return engine.New(sc, heuristic.NewWeighted(c.Weights), logger), nil
}

// ComputeBudget is how long a decision may run for a host timeout: timeout
// minus the latency reserve, never below MinCompute.
func (c Config) ComputeBudget(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		timeout = c.DefaultTimeout
	}
	budget := timeout - c.LatencyReserve
	if budget < c.MinCompute {
		budget = c.MinCompute
	}
	return budget
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		var i int
		if _, err := fmt.Sscanf(val, "%d", &i); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
