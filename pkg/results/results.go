// Package results provides persistent storage for batch runs and their rounds.
package results

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fortiblox/critters/internal/types"
	"github.com/fortiblox/critters/pkg/world"
)

var (
	// ErrRunNotFound is returned when a run doesn't exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrRoundNotFound is returned when a round doesn't exist.
	ErrRoundNotFound = errors.New("round not found")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("results store closed")
)

// Bucket names for BoltDB.
var (
	// bucketRuns stores run headers keyed by run ID.
	bucketRuns = []byte("runs")

	// bucketRounds holds one sub-bucket per run ID, with rounds keyed by index.
	bucketRounds = []byte("rounds")

	// bucketMetadata stores store-wide counters.
	bucketMetadata = []byte("metadata")
)

// Metadata keys.
var keyRoundCount = []byte("round_count")

// Config holds results store configuration options.
type Config struct {
	// Path is the database file.
	Path string

	// NoSync disables fsync after each write (faster but less durable).
	NoSync bool

	// ReadOnly opens the database in read-only mode.
	ReadOnly bool

	// Timeout bounds how long Open waits for the file lock.
	Timeout time.Duration
}

// DefaultConfig returns the default configuration for a database at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:    path,
		Timeout: 5 * time.Second,
	}
}

// Run describes one batch invocation.
type Run struct {
	ID        string
	Seed      uint64
	Rounds    int
	EpochCap  int64
	Width     int
	Height    int
	Species   []string
	Roster    types.Hash
	StartedAt time.Time
}

// Round is the outcome of one simulation inside a run.
type Round struct {
	RunID  string
	Index  int
	Seed   uint64
	Epochs int64

	// Winner is empty when the round hit the epoch cap or ended in extinction.
	Winner string
	Capped bool

	Census []world.SpeciesCount
	Faults int
	Digest types.Hash

	// Trace is the path of the round's trace file, if one was written.
	Trace      string
	FinishedAt time.Time
}

// Stats contains store statistics.
type Stats struct {
	Runs         int
	Rounds       uint64
	DatabaseSize int64
}

// Store is the results store interface.
type Store interface {
	PutRun(run *Run) error
	GetRun(id string) (*Run, error)
	Runs() ([]*Run, error)

	PutRound(round *Round) error
	GetRound(runID string, index int) (*Round, error)
	Rounds(runID string) ([]*Round, error)

	GetStats() (*Stats, error)
	Sync() error
	Close() error
}

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db     *bolt.DB
	config Config

	mu         sync.RWMutex
	roundCount uint64
	closed     bool
}

// Open creates or opens a results store.
func Open(config Config) (*BoltStore, error) {
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	opts := &bolt.Options{
		Timeout:  config.Timeout,
		NoSync:   config.NoSync,
		ReadOnly: config.ReadOnly,
	}
	db, err := bolt.Open(config.Path, 0600, opts)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &BoltStore{db: db, config: config}

	if !config.ReadOnly {
		if err := store.initBuckets(); err != nil {
			db.Close()
			return nil, fmt.Errorf("init buckets: %w", err)
		}
	}
	if err := store.loadCachedValues(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load cached values: %w", err)
	}
	return store, nil
}

func (s *BoltStore) initBuckets() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketRuns, bucketRounds, bucketMetadata} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

func (s *BoltStore) loadCachedValues() error {
	return s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMetadata)
		if meta == nil {
			return nil
		}
		if v := meta.Get(keyRoundCount); v != nil {
			s.roundCount = binary.BigEndian.Uint64(v)
		}
		return nil
	})
}

func (s *BoltStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// PutRun stores a run header, replacing any previous one with the same ID.
func (s *BoltStore) PutRun(run *Run) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	data, err := encode(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).Put([]byte(run.ID), data)
	})
}

// GetRun retrieves a run header.
func (s *BoltStore) GetRun(id string) (*Run, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var run Run
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		if b == nil {
			return ErrRunNotFound
		}
		data := b.Get([]byte(id))
		if data == nil {
			return ErrRunNotFound
		}
		return decode(data, &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Runs returns every stored run, oldest first.
func (s *BoltStore) Runs() ([]*Run, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var runs []*Run
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var run Run
			if err := decode(v, &run); err != nil {
				return err
			}
			runs = append(runs, &run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
	return runs, nil
}

// PutRound stores a round under its run. The run itself need not exist yet.
func (s *BoltStore) PutRound(round *Round) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	data, err := encode(round)
	if err != nil {
		return fmt.Errorf("encode round: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(bucketRounds).CreateBucketIfNotExists([]byte(round.RunID))
		if err != nil {
			return fmt.Errorf("create run bucket: %w", err)
		}
		key := encodeIndex(round.Index)
		isNew := b.Get(key) == nil
		if err := b.Put(key, data); err != nil {
			return err
		}
		if !isNew {
			return nil
		}
		count := make([]byte, 8)
		binary.BigEndian.PutUint64(count, s.roundCount+1)
		if err := tx.Bucket(bucketMetadata).Put(keyRoundCount, count); err != nil {
			return err
		}
		s.roundCount++
		return nil
	})
}

// GetRound retrieves one round.
func (s *BoltStore) GetRound(runID string, index int) (*Round, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var round Round
	err := s.db.View(func(tx *bolt.Tx) error {
		b := runBucket(tx, runID)
		if b == nil {
			return ErrRoundNotFound
		}
		data := b.Get(encodeIndex(index))
		if data == nil {
			return ErrRoundNotFound
		}
		return decode(data, &round)
	})
	if err != nil {
		return nil, err
	}
	return &round, nil
}

// Rounds returns every round of a run in index order.
func (s *BoltStore) Rounds(runID string) ([]*Round, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var rounds []*Round
	err := s.db.View(func(tx *bolt.Tx) error {
		b := runBucket(tx, runID)
		if b == nil {
			return ErrRunNotFound
		}
		return b.ForEach(func(_, v []byte) error {
			var round Round
			if err := decode(v, &round); err != nil {
				return err
			}
			rounds = append(rounds, &round)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rounds, nil
}

// GetStats returns store statistics.
func (s *BoltStore) GetStats() (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	stats := &Stats{Rounds: s.roundCount}
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucketRuns); b != nil {
			stats.Runs = b.Stats().KeyN
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(s.config.Path); err == nil {
		stats.DatabaseSize = info.Size()
	}
	return stats, nil
}

// Sync forces a sync of the database to disk.
func (s *BoltStore) Sync() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.Sync()
}

// Close shuts down the store.
func (s *BoltStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.db.Close()
}

func runBucket(tx *bolt.Tx, runID string) *bolt.Bucket {
	rounds := tx.Bucket(bucketRounds)
	if rounds == nil {
		return nil
	}
	return rounds.Bucket([]byte(runID))
}

// encodeIndex makes big-endian keys so bolt iterates rounds in index order.
func encodeIndex(i int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(i))
	return key
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// Verify interface compliance.
var _ Store = (*BoltStore)(nil)
