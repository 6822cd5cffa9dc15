package batch

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fortiblox/critters/pkg/results"
	"github.com/fortiblox/critters/pkg/species"
	"github.com/fortiblox/critters/pkg/standings"
	"github.com/fortiblox/critters/pkg/trace"
)

func passiveRoster() species.Roster {
	return species.Roster{
		species.MustParse("Spinner\nleft\ngo 1"),
		species.MustParse("Counter\ninc r1\nright"),
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 8, 6
	// Enough critters that both species are always present.
	cfg.Critters = 40
	cfg.Rounds = 3
	cfg.EpochCap = 20
	cfg.Seed = 100
	return cfg
}

func openStores(t *testing.T) (*results.BoltStore, *standings.DB) {
	t.Helper()
	store, err := results.Open(results.DefaultConfig(filepath.Join(t.TempDir(), "results.db")))
	if err != nil {
		t.Fatalf("failed to open results: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	table, err := standings.Open(standings.Config{InMemory: true})
	if err != nil {
		t.Fatalf("failed to open standings: %v", err)
	}
	t.Cleanup(func() { table.Close() })
	return store, table
}

func TestRunSingleSpecies(t *testing.T) {
	store, table := openStores(t)
	roster := species.Roster{species.MustParse("Solo\nhop")}

	var seen []int
	cfg := testConfig()
	cfg.OnRound = func(r *results.Round) { seen = append(seen, r.Index) }

	summary, err := New(roster, store, table, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Wins["Solo"] != 3 || summary.Capped != 0 {
		t.Errorf("summary = %+v, want 3 wins for Solo", summary)
	}
	if len(seen) != 3 {
		t.Errorf("OnRound called for %v, want 3 rounds", seen)
	}
	for _, r := range summary.Rounds {
		if r.Epochs != 0 {
			t.Errorf("round %d played %d epochs, want 0", r.Index, r.Epochs)
		}
	}

	stored, err := store.Rounds(summary.RunID)
	if err != nil {
		t.Fatalf("Rounds failed: %v", err)
	}
	if len(stored) != 3 {
		t.Errorf("stored %d rounds, want 3", len(stored))
	}
	run, err := store.GetRun(summary.RunID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Seed != 100 || run.Roster != roster.Digest() {
		t.Errorf("stored run = %+v", run)
	}

	solo, err := table.Get("Solo")
	if err != nil {
		t.Fatalf("standings Get failed: %v", err)
	}
	if solo.Wins != 3 || solo.Rounds != 3 {
		t.Errorf("standing = %+v, want 3 wins in 3 rounds", solo)
	}
}

func TestRunCappedWithTraces(t *testing.T) {
	store, table := openStores(t)
	cfg := testConfig()
	cfg.Rounds = 2
	cfg.TraceDir = filepath.Join(t.TempDir(), "traces")

	summary, err := New(passiveRoster(), store, table, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Capped != 2 || len(summary.Wins) != 0 {
		t.Errorf("summary = %+v, want 2 capped rounds", summary)
	}

	for i, r := range summary.Rounds {
		if r.Seed != cfg.Seed+uint64(i) {
			t.Errorf("round %d Seed = %d, want %d", i, r.Seed, cfg.Seed+uint64(i))
		}
		if !r.Capped || r.Epochs != cfg.EpochCap {
			t.Errorf("round %d = %+v, want capped at %d", i, r, cfg.EpochCap)
		}

		tr, err := trace.Open(r.Trace)
		if err != nil {
			t.Fatalf("trace.Open(%s) failed: %v", r.Trace, err)
		}
		n, err := trace.Verify(tr, passiveRoster(), zerolog.Nop())
		tr.Close()
		if err != nil {
			t.Errorf("round %d trace does not replay: %v", i, err)
		}
		if n != int(cfg.EpochCap) {
			t.Errorf("round %d trace has %d epochs, want %d", i, n, cfg.EpochCap)
		}
	}

	if table.Rounds() != 2 {
		t.Errorf("standings Rounds() = %d, want 2", table.Rounds())
	}
}

func TestPlayRoundDeterministic(t *testing.T) {
	r := New(passiveRoster(), nil, nil, testConfig())
	a, err := r.PlayRound(context.Background(), "x", 4)
	if err != nil {
		t.Fatalf("PlayRound failed: %v", err)
	}
	b, err := r.PlayRound(context.Background(), "x", 4)
	if err != nil {
		t.Fatalf("PlayRound failed: %v", err)
	}
	if a.Digest != b.Digest {
		t.Error("same round produced different final states")
	}
	c, err := r.PlayRound(context.Background(), "x", 5)
	if err != nil {
		t.Fatalf("PlayRound failed: %v", err)
	}
	if c.Digest == a.Digest {
		t.Error("different rounds produced the same final state")
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := New(passiveRoster(), nil, nil, testConfig()).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want %v", err, context.Canceled)
	}
	if summary == nil || len(summary.Rounds) != 0 {
		t.Errorf("summary = %+v, want no finished rounds", summary)
	}
}

func TestRunConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		roster species.Roster
		want   error
	}{
		{"no rounds", func(c *Config) { c.Rounds = 0 }, passiveRoster(), ErrNoRounds},
		{"no cap", func(c *Config) { c.EpochCap = 0 }, passiveRoster(), ErrNoEpochCap},
		{"no species", func(c *Config) {}, nil, ErrEmptyRoster},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(&cfg)
			if _, err := New(tt.roster, nil, nil, cfg).Run(context.Background()); !errors.Is(err, tt.want) {
				t.Errorf("Run() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRunID(t *testing.T) {
	cfg := testConfig()
	a := RunID(passiveRoster(), cfg)
	if a == "" || a != RunID(passiveRoster(), cfg) {
		t.Errorf("RunID() not stable: %q", a)
	}
	cfg.Seed++
	if RunID(passiveRoster(), cfg) == a {
		t.Error("RunID() ignores the seed")
	}
}

func TestRanking(t *testing.T) {
	s := &Summary{Wins: map[string]int{"Hop": 2, "Rover": 5, "Food": 2}}
	got := s.Ranking()
	want := []string{"Rover", "Food", "Hop"}
	if len(got) != len(want) {
		t.Fatalf("Ranking() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Ranking() = %v, want %v", got, want)
			break
		}
	}
}
