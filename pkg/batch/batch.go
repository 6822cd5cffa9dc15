// Package batch runs headless tournaments: a fixed number of rounds, each a
// fresh environment advanced until one species remains or an epoch cap is
// reached.
//
// Round i of a run uses seed Seed+i, so any single round can be reproduced
// from the run's seed alone. Round outcomes are stored in a results store,
// folded into cumulative standings, and optionally traced to disk.
package batch

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"

	"github.com/fortiblox/critters/pkg/results"
	"github.com/fortiblox/critters/pkg/species"
	"github.com/fortiblox/critters/pkg/trace"
	"github.com/fortiblox/critters/pkg/world"
)

// Errors.
var (
	ErrNoRounds    = errors.New("rounds must be positive")
	ErrNoEpochCap  = errors.New("epoch cap must be positive")
	ErrEmptyRoster = errors.New("no species to run")
)

// Config holds batch configuration.
type Config struct {
	// Rounds is the number of rounds to play.
	Rounds int

	// EpochCap ends a round without a winner after this many epochs.
	EpochCap int64

	// Seed is the seed of round 0.
	Seed uint64

	// Width, Height and Critters shape every round's environment.
	Width    int
	Height   int
	Critters int

	// TraceDir, if set, receives one zstd trace per round.
	TraceDir string

	// Logger receives progress and fault reports.
	Logger zerolog.Logger

	// OnRound is called after each round is stored.
	OnRound func(round *results.Round)
}

// DefaultConfig returns the default batch configuration.
func DefaultConfig() Config {
	return Config{
		Rounds:   10,
		EpochCap: 3000,
		Seed:     1,
		Width:    world.DefaultWidth,
		Height:   world.DefaultHeight,
		Logger:   zerolog.Nop(),
	}
}

// Recorder folds finished rounds into cumulative standings.
type Recorder interface {
	Record(round *results.Round) error
}

// Summary aggregates a run.
type Summary struct {
	RunID   string
	Rounds  []*results.Round
	Wins    map[string]int
	Capped  int
	Extinct int
}

// Ranking returns species names by win count, most wins first. Species with
// no wins are omitted.
func (s *Summary) Ranking() []string {
	names := make([]string, 0, len(s.Wins))
	for name := range s.Wins {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.Wins[names[i]] != s.Wins[names[j]] {
			return s.Wins[names[i]] > s.Wins[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// Runner plays batch runs.
type Runner struct {
	roster    species.Roster
	store     results.Store
	standings Recorder
	config    Config
	log       zerolog.Logger
}

// New creates a runner. store and standings may be nil.
func New(roster species.Roster, store results.Store, standings Recorder, config Config) *Runner {
	return &Runner{
		roster:    roster,
		store:     store,
		standings: standings,
		config:    config,
		log:       config.Logger,
	}
}

// RunID derives a run identifier from the roster and the run parameters.
// Repeating a run with the same inputs yields the same ID.
func RunID(roster species.Roster, cfg Config) string {
	h := blake3.New()
	d := roster.Digest()
	h.Write(d[:])
	var buf [8]byte
	for _, v := range []uint64{cfg.Seed, uint64(cfg.Rounds), uint64(cfg.EpochCap),
		uint64(cfg.Width), uint64(cfg.Height), uint64(cfg.Critters)} {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	return base58.Encode(h.Sum(nil)[:16])
}

// Run plays every round. On cancellation it returns the rounds finished so
// far together with the context error.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	cfg := r.config
	switch {
	case cfg.Rounds <= 0:
		return nil, ErrNoRounds
	case cfg.EpochCap <= 0:
		return nil, ErrNoEpochCap
	case len(r.roster) == 0:
		return nil, ErrEmptyRoster
	}

	summary := &Summary{
		RunID: RunID(r.roster, cfg),
		Wins:  make(map[string]int),
	}
	log := r.log.With().Str("run", summary.RunID).Logger()

	if r.store != nil {
		run := &results.Run{
			ID:        summary.RunID,
			Seed:      cfg.Seed,
			Rounds:    cfg.Rounds,
			EpochCap:  cfg.EpochCap,
			Width:     cfg.Width,
			Height:    cfg.Height,
			Species:   r.roster.Names(),
			Roster:    r.roster.Digest(),
			StartedAt: time.Now().UTC(),
		}
		if err := r.store.PutRun(run); err != nil {
			return nil, fmt.Errorf("store run: %w", err)
		}
	}
	log.Info().Int("rounds", cfg.Rounds).Int64("epoch_cap", cfg.EpochCap).
		Strs("species", r.roster.Names()).Msg("batch started")

	for i := 0; i < cfg.Rounds; i++ {
		round, err := r.PlayRound(ctx, summary.RunID, i)
		if err != nil {
			return summary, fmt.Errorf("round %d: %w", i, err)
		}
		if err := r.record(round); err != nil {
			return summary, fmt.Errorf("round %d: %w", i, err)
		}

		summary.Rounds = append(summary.Rounds, round)
		switch {
		case round.Winner != "":
			summary.Wins[round.Winner]++
		case round.Capped:
			summary.Capped++
		default:
			summary.Extinct++
		}

		log.Info().Int("round", i).Uint64("seed", round.Seed).Int64("epochs", round.Epochs).
			Str("winner", round.Winner).Bool("capped", round.Capped).Msg("round finished")
		if cfg.OnRound != nil {
			cfg.OnRound(round)
		}
	}

	log.Info().Interface("wins", summary.Wins).Int("capped", summary.Capped).Msg("batch finished")
	return summary, nil
}

func (r *Runner) record(round *results.Round) error {
	if r.store != nil {
		if err := r.store.PutRound(round); err != nil {
			return fmt.Errorf("store round: %w", err)
		}
	}
	if r.standings != nil {
		if err := r.standings.Record(round); err != nil {
			return fmt.Errorf("record standings: %w", err)
		}
	}
	return nil
}

// PlayRound plays round index of run runID without storing it. The context is
// checked between epochs.
func (r *Runner) PlayRound(ctx context.Context, runID string, index int) (*results.Round, error) {
	cfg := r.config
	seed := cfg.Seed + uint64(index)
	log := r.log.With().Str("run", runID).Int("round", index).Logger()

	env, err := world.New(world.Config{
		Width:    cfg.Width,
		Height:   cfg.Height,
		Critters: cfg.Critters,
		Seed:     seed,
		Logger:   log,
	}, r.roster)
	if err != nil {
		return nil, fmt.Errorf("create environment: %w", err)
	}

	round := &results.Round{RunID: runID, Index: index, Seed: seed}

	var tw *trace.Writer
	if cfg.TraceDir != "" {
		if err := os.MkdirAll(cfg.TraceDir, 0755); err != nil {
			return nil, fmt.Errorf("create trace directory: %w", err)
		}
		round.Trace = filepath.Join(cfg.TraceDir, fmt.Sprintf("%s-%03d%s", runID, index, trace.FileExt))
		tw, err = trace.Create(round.Trace, trace.HeaderOf(env))
		if err != nil {
			return nil, err
		}
		defer func() {
			if tw != nil {
				tw.Close()
			}
		}()
	}

	for env.Epoch() < cfg.EpochCap {
		if _, ok := env.Winner(); ok || env.Alive() == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report := env.AdvanceEpoch()
		round.Faults += len(report.Faults)
		if tw != nil {
			if err := tw.Write(trace.RecordOf(env, report)); err != nil {
				return nil, err
			}
		}
	}

	round.Epochs = env.Epoch()
	round.Winner, _ = env.Winner()
	round.Capped = round.Winner == "" && env.Alive() > 0
	round.Census = env.Census()
	round.Digest = env.Digest()
	round.FinishedAt = time.Now().UTC()

	if tw != nil {
		err := tw.Close()
		tw = nil
		if err != nil {
			return nil, fmt.Errorf("close trace: %w", err)
		}
	}
	return round, nil
}
