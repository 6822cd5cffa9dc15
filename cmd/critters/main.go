// Critters: a grid arena where species of tiny programs compete for space.
//
// This is the main entry point. It loads species programs from a directory and
// either plays headless tournament rounds, serves a live dashboard with its
// gRPC frame feed, follows a remote feed, or replays a recorded trace to check
// that the simulation is deterministic.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/fortiblox/critters/internal/config"
	"github.com/fortiblox/critters/internal/logging"
	"github.com/fortiblox/critters/pkg/batch"
	"github.com/fortiblox/critters/pkg/dashboard"
	"github.com/fortiblox/critters/pkg/feed"
	"github.com/fortiblox/critters/pkg/results"
	"github.com/fortiblox/critters/pkg/species"
	"github.com/fortiblox/critters/pkg/standings"
	"github.com/fortiblox/critters/pkg/trace"
	"github.com/fortiblox/critters/pkg/world"
)

// Version information
var (
	Version   = "0.1.0"
	GitCommit = "dev"
)

// Configuration flags
var (
	configPath  = flag.String("config", "", "Path to a TOML configuration file")
	mode        = flag.String("mode", "headless", "Run mode: headless, serve, watch, verify")
	speciesDir  = flag.String("species-dir", "", "Directory of .cri species files (overrides config)")
	speciesList = flag.String("species", "", "Comma-separated species to enter (default: all loaded)")
	seed        = flag.Uint64("seed", 0, "Seed of the first round (overrides config)")
	rounds      = flag.Int("rounds", 0, "Number of headless rounds (overrides config)")
	tracePath   = flag.String("trace", "", "Trace file to replay in verify mode")
	feedAddr    = flag.String("feed", "", "Feed endpoint to follow in watch mode (default: configured feed address)")
	every       = flag.Int64("every", 1, "Watch mode: only show epochs divisible by this")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("critters %s (%s)\n", Version, GitCommit)
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "critters: %v\n", err)
		os.Exit(2)
	}

	opts := logging.DefaultOptions(logging.ProfileRuntime)
	opts.Level = cfg.Log.Level
	opts.NoColor = cfg.Log.NoColor
	logger := logging.New(opts)

	// Handle shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("interrupted")
			return
		}
		stop()
		logger.Fatal().Err(err).Str("mode", *mode).Msg("critters failed")
	}
}

// loadConfig reads the configuration file, if any, and applies the flags the
// user set on top of it.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "species-dir":
			cfg.SpeciesDir = *speciesDir
		case "species":
			cfg.Species = splitNames(*speciesList)
		case "seed":
			cfg.Seed = *seed
		case "rounds":
			cfg.Batch.Rounds = *rounds
		}
	})
	return cfg, cfg.Validate()
}

func splitNames(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	logger.Info().Str("version", Version).Str("mode", *mode).Msg("starting critters")

	if *mode == "watch" {
		return runWatch(ctx, cfg, logger)
	}

	roster, errs := species.LoadDir(cfg.SpeciesDir, logger)
	if len(errs) > 0 {
		logger.Warn().Int("failed", len(errs)).Str("dir", cfg.SpeciesDir).Msg("some species failed to load")
	}
	roster = roster.Filter(cfg.Species...)
	for _, name := range cfg.Species {
		if _, ok := roster.Lookup(name); !ok {
			return fmt.Errorf("species %q not found in %s", name, cfg.SpeciesDir)
		}
	}
	if len(roster) == 0 {
		return fmt.Errorf("no species loaded from %s", cfg.SpeciesDir)
	}
	logger.Info().Strs("species", roster.Names()).Str("roster", roster.Digest().String()).Msg("roster ready")

	switch *mode {
	case "headless":
		return runHeadless(ctx, cfg, roster, logger)
	case "serve":
		return runServe(ctx, cfg, roster, logger)
	case "verify":
		return runVerify(roster, logger)
	default:
		return fmt.Errorf("unknown mode %q", *mode)
	}
}

func openStandings(cfg config.Config, logger zerolog.Logger, existingOnly bool) (*standings.DB, error) {
	scfg := standings.DefaultConfig(cfg.Batch.StandingsPath)
	scfg.Logger = standings.NewLogger(logger)
	if existingOnly {
		if _, err := os.Stat(cfg.Batch.StandingsPath); err != nil {
			return nil, nil
		}
	}
	return standings.Open(scfg)
}

func runHeadless(ctx context.Context, cfg config.Config, roster species.Roster, logger zerolog.Logger) error {
	store, err := results.Open(results.DefaultConfig(cfg.Batch.ResultsPath))
	if err != nil {
		return fmt.Errorf("open results: %w", err)
	}
	defer store.Close()

	table, err := openStandings(cfg, logger, false)
	if err != nil {
		return fmt.Errorf("open standings: %w", err)
	}
	defer table.Close()

	bcfg := batch.DefaultConfig()
	bcfg.Rounds = cfg.Batch.Rounds
	bcfg.EpochCap = cfg.Batch.EpochCap
	bcfg.Seed = cfg.Seed
	bcfg.Width = cfg.Grid.Width
	bcfg.Height = cfg.Grid.Height
	bcfg.Critters = cfg.Grid.Critters
	bcfg.TraceDir = cfg.Batch.TraceDir
	bcfg.Logger = logger
	bcfg.OnRound = func(round *results.Round) {
		logger.Info().Int("round", round.Index).Str("census", formatCensus(round.Census)).Msg("round census")
	}

	summary, err := batch.New(roster, store, table, bcfg).Run(ctx)
	if err != nil {
		return err
	}

	for _, name := range summary.Ranking() {
		logger.Info().Str("species", name).Int("wins", summary.Wins[name]).Msg("run result")
	}
	logger.Info().
		Str("run", summary.RunID).
		Int("rounds", len(summary.Rounds)).
		Int("capped", summary.Capped).
		Int("extinct", summary.Extinct).
		Msg("run complete")

	all, err := table.All()
	if err != nil {
		return fmt.Errorf("read standings: %w", err)
	}
	for i, s := range all {
		logger.Info().
			Int("rank", i+1).
			Str("species", s.Species).
			Uint64("rounds", s.Rounds).
			Uint64("wins", s.Wins).
			Str("win_rate", fmt.Sprintf("%.1f%%", s.WinRate()*100)).
			Msg("standing")
	}
	return nil
}

func runServe(ctx context.Context, cfg config.Config, roster species.Roster, logger zerolog.Logger) error {
	// Standings are shown only when a headless run has created them.
	var table dashboard.Standings
	db, err := openStandings(cfg, logger, true)
	if err != nil {
		logger.Warn().Err(err).Msg("standings unavailable")
	} else if db != nil {
		defer db.Close()
		table = db
	}

	dcfg := dashboard.DefaultConfig()
	dcfg.BindAddress = cfg.Dashboard.Bind
	dcfg.Port = cfg.Dashboard.Port
	dcfg.FrameInterval = cfg.Dashboard.Frame
	dcfg.Logger = logger

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feedErr := make(chan error, 1)
	if cfg.Feed.Port != 0 {
		lis, err := net.Listen("tcp", cfg.Feed.Address())
		if err != nil {
			return fmt.Errorf("listen feed: %w", err)
		}
		hub := feed.NewHub()
		dcfg.OnFrame = hub.Publish
		srv := feed.NewServer(hub, logger)
		go func() {
			if err := srv.Serve(ctx, lis); err != nil {
				feedErr <- fmt.Errorf("feed: %w", err)
				cancel()
			}
		}()
	}

	dash, err := dashboard.New(dcfg, roster, cfg.WorldConfig(cfg.Seed, logger), table)
	if err != nil {
		return err
	}
	if err := dash.Start(ctx); err != nil {
		return err
	}

	select {
	case err := <-feedErr:
		return err
	default:
		return nil
	}
}

func runWatch(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	endpoint := *feedAddr
	if endpoint == "" {
		endpoint = cfg.Feed.Address()
	}

	fcfg := feed.DefaultConfig()
	fcfg.Endpoint = endpoint
	fcfg.Every = *every
	fcfg.OnDisconnect = func(err error) {
		logger.Warn().Err(err).Str("endpoint", endpoint).Msg("feed disconnected")
	}
	fcfg.OnReconnect = func(attempt int) {
		logger.Info().Int("attempt", attempt).Msg("feed reconnected")
	}

	client, err := feed.NewClient(fcfg)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return err
	}
	logger.Info().Str("endpoint", endpoint).Int64("every", fcfg.Every).Msg("watching feed")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-client.Frames():
			if !ok {
				if err := client.Health().LastError; err != nil {
					return err
				}
				return nil
			}
			logger.Info().
				Int64("epoch", f.Epoch).
				Int("alive", len(f.Cells)).
				Str("census", formatCensus(f.Census)).
				Str("digest", f.Digest.String()).
				Msg("frame")
			if f.Winner != "" {
				logger.Info().Str("winner", f.Winner).Int64("epoch", f.Epoch).Msg("round won")
				return nil
			}
		}
	}
}

func formatCensus(census []world.SpeciesCount) string {
	parts := make([]string, len(census))
	for i, c := range census {
		parts[i] = fmt.Sprintf("%s %d", c.Name, c.Alive)
	}
	return strings.Join(parts, " - ")
}

func runVerify(roster species.Roster, logger zerolog.Logger) error {
	if *tracePath == "" {
		return errors.New("verify mode needs -trace")
	}
	r, err := trace.Open(*tracePath)
	if err != nil {
		return err
	}
	defer r.Close()

	h := r.Header()
	logger.Info().Str("file", *tracePath).Uint64("seed", h.Seed).Strs("species", h.Species).Msg("replaying trace")

	n, err := trace.Verify(r, roster, logger)
	if err != nil {
		return fmt.Errorf("after %d epochs: %w", n, err)
	}
	logger.Info().Int("epochs", n).Msg("trace replayed identically")
	return nil
}
