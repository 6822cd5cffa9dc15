// Package config loads the critters TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/fortiblox/critters/internal/logging"
	"github.com/fortiblox/critters/pkg/world"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the resolved configuration.
type Config struct {
	SpeciesDir string
	Species    []string
	Seed       uint64

	Grid      Grid
	Batch     Batch
	Dashboard Dashboard
	Feed      Feed
	Log       Log
}

// Grid is the environment shape.
type Grid struct {
	Width  int
	Height int
	// Critters zero selects the default count for the grid.
	Critters int
}

// Batch configures headless runs.
type Batch struct {
	Rounds        int
	EpochCap      int64
	ResultsPath   string
	StandingsPath string
	// TraceDir empty disables traces.
	TraceDir string
}

// Dashboard configures the live HTTP view.
type Dashboard struct {
	Bind  string
	Port  int
	Frame time.Duration
}

// Feed configures the gRPC frame stream served next to the dashboard.
type Feed struct {
	Bind string
	// Port zero disables the feed.
	Port int
}

// Address returns the feed listen address.
func (f Feed) Address() string {
	return fmt.Sprintf("%s:%d", f.Bind, f.Port)
}

// Log configures the process logger.
type Log struct {
	Level   zerolog.Level
	NoColor bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SpeciesDir: "species",
		Seed:       1,
		Grid: Grid{
			Width:  world.DefaultWidth,
			Height: world.DefaultHeight,
		},
		Batch: Batch{
			Rounds:        10,
			EpochCap:      3000,
			ResultsPath:   "data/results.db",
			StandingsPath: "data/standings",
		},
		Dashboard: Dashboard{
			Bind:  "127.0.0.1",
			Port:  8080,
			Frame: 100 * time.Millisecond,
		},
		Feed: Feed{
			Bind: "127.0.0.1",
			Port: 9090,
		},
		Log: Log{Level: zerolog.InfoLevel},
	}
}

type fileConfig struct {
	SpeciesDir string   `toml:"species_dir"`
	Species    []string `toml:"species"`
	Seed       uint64   `toml:"seed"`

	Grid struct {
		Width    int `toml:"width"`
		Height   int `toml:"height"`
		Critters int `toml:"critters"`
	} `toml:"grid"`

	Batch struct {
		Rounds        int    `toml:"rounds"`
		EpochCap      int64  `toml:"epoch_cap"`
		ResultsPath   string `toml:"results_path"`
		StandingsPath string `toml:"standings_path"`
		TraceDir      string `toml:"trace_dir"`
	} `toml:"batch"`

	Dashboard struct {
		Bind    string `toml:"bind"`
		Port    int    `toml:"port"`
		FrameMS int64  `toml:"frame_ms"`
	} `toml:"dashboard"`

	Feed struct {
		Bind string `toml:"bind"`
		Port int    `toml:"port"`
	} `toml:"feed"`

	Log struct {
		Level   string `toml:"level"`
		NoColor bool   `toml:"no_color"`
	} `toml:"log"`
}

// Load reads path and applies every key it defines over Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q", ErrInvalid, undecoded[0].String())
	}

	if meta.IsDefined("species_dir") {
		cfg.SpeciesDir = strings.TrimSpace(raw.SpeciesDir)
	}
	if meta.IsDefined("species") {
		cfg.Species = normalizeNames(raw.Species)
	}
	if meta.IsDefined("seed") {
		cfg.Seed = raw.Seed
	}

	if meta.IsDefined("grid", "width") {
		cfg.Grid.Width = raw.Grid.Width
	}
	if meta.IsDefined("grid", "height") {
		cfg.Grid.Height = raw.Grid.Height
	}
	if meta.IsDefined("grid", "critters") {
		cfg.Grid.Critters = raw.Grid.Critters
	}

	if meta.IsDefined("batch", "rounds") {
		cfg.Batch.Rounds = raw.Batch.Rounds
	}
	if meta.IsDefined("batch", "epoch_cap") {
		cfg.Batch.EpochCap = raw.Batch.EpochCap
	}
	if meta.IsDefined("batch", "results_path") {
		cfg.Batch.ResultsPath = strings.TrimSpace(raw.Batch.ResultsPath)
	}
	if meta.IsDefined("batch", "standings_path") {
		cfg.Batch.StandingsPath = strings.TrimSpace(raw.Batch.StandingsPath)
	}
	if meta.IsDefined("batch", "trace_dir") {
		cfg.Batch.TraceDir = strings.TrimSpace(raw.Batch.TraceDir)
	}

	if meta.IsDefined("dashboard", "bind") {
		cfg.Dashboard.Bind = strings.TrimSpace(raw.Dashboard.Bind)
	}
	if meta.IsDefined("dashboard", "port") {
		cfg.Dashboard.Port = raw.Dashboard.Port
	}
	if meta.IsDefined("dashboard", "frame_ms") {
		cfg.Dashboard.Frame = time.Duration(raw.Dashboard.FrameMS) * time.Millisecond
	}

	if meta.IsDefined("feed", "bind") {
		cfg.Feed.Bind = strings.TrimSpace(raw.Feed.Bind)
	}
	if meta.IsDefined("feed", "port") {
		cfg.Feed.Port = raw.Feed.Port
	}

	if meta.IsDefined("log", "level") {
		lvl, ok := logging.ParseLevel(raw.Log.Level)
		if !ok {
			return Config{}, fmt.Errorf("%w: log level %q", ErrInvalid, raw.Log.Level)
		}
		cfg.Log.Level = lvl
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration for values no run can use.
func (c Config) Validate() error {
	switch {
	case c.SpeciesDir == "":
		return fmt.Errorf("%w: species_dir is empty", ErrInvalid)
	case c.Grid.Width <= 0 || c.Grid.Height <= 0:
		return fmt.Errorf("%w: grid %dx%d", ErrInvalid, c.Grid.Width, c.Grid.Height)
	case c.Grid.Critters < 0 || c.Grid.Critters > c.Grid.Width*c.Grid.Height:
		return fmt.Errorf("%w: %d critters on a %dx%d grid", ErrInvalid, c.Grid.Critters, c.Grid.Width, c.Grid.Height)
	case c.Grid.Critters == 0 && world.DefaultCritterCount(c.Grid.Width, c.Grid.Height) > c.Grid.Width*c.Grid.Height:
		return fmt.Errorf("%w: default of %d critters does not fit a %dx%d grid", ErrInvalid,
			world.DefaultCritterCount(c.Grid.Width, c.Grid.Height), c.Grid.Width, c.Grid.Height)
	case c.Batch.Rounds <= 0:
		return fmt.Errorf("%w: rounds must be positive, got %d", ErrInvalid, c.Batch.Rounds)
	case c.Batch.EpochCap <= 0:
		return fmt.Errorf("%w: epoch_cap must be positive, got %d", ErrInvalid, c.Batch.EpochCap)
	case c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535:
		return fmt.Errorf("%w: port %d", ErrInvalid, c.Dashboard.Port)
	case c.Dashboard.Frame <= 0:
		return fmt.Errorf("%w: frame_ms must be positive", ErrInvalid)
	case c.Feed.Port < 0 || c.Feed.Port > 65535:
		return fmt.Errorf("%w: feed port %d", ErrInvalid, c.Feed.Port)
	case c.Feed.Port == c.Dashboard.Port && c.Feed.Bind == c.Dashboard.Bind:
		return fmt.Errorf("%w: feed and dashboard both on %s", ErrInvalid, c.Feed.Address())
	}
	return nil
}

// WorldConfig returns the environment configuration for seed.
func (c Config) WorldConfig(seed uint64, logger zerolog.Logger) world.Config {
	return world.Config{
		Width:    c.Grid.Width,
		Height:   c.Grid.Height,
		Critters: c.Grid.Critters,
		Seed:     seed,
		Logger:   logger,
	}
}

func normalizeNames(in []string) []string {
	out := make([]string, 0, len(in))
	for _, name := range in {
		v := strings.TrimSpace(name)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
