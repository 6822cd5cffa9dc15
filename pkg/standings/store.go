package standings

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/fortiblox/critters/pkg/results"
)

// Key prefixes for BadgerDB storage.
var (
	// prefixStanding is the prefix for species standings.
	// Key format: prefixStanding + species name
	prefixStanding = []byte{0x01}

	// prefixMeta is the prefix for metadata.
	prefixMeta = []byte{0x02}

	// metaRounds is the key for the total number of recorded rounds.
	metaRounds = append(prefixMeta, []byte("rounds")...)
)

// Config contains configuration for the standings database.
type Config struct {
	// Path is the directory path for the database.
	Path string

	// InMemory runs the database in memory (for testing).
	InMemory bool

	// SyncWrites ensures writes are synced to disk.
	SyncWrites bool

	// Logger is an optional badger logger. Nil disables badger's own logging.
	Logger badger.Logger
}

// DefaultConfig returns the default configuration for a database in path.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
	}
}

// DB is a BadgerDB-backed standings table.
type DB struct {
	db *badger.DB

	// rounds is cached in memory.
	rounds atomic.Uint64

	// mu serializes read-modify-write updates.
	mu sync.Mutex

	closed atomic.Bool
}

// Open opens or creates a standings database.
func Open(cfg Config) (*DB, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(cfg.Logger)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	sdb := &DB{db: db}
	if err := sdb.loadMetadata(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	return sdb, nil
}

func (d *DB) loadMetadata() error {
	return d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaRounds)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) >= 8 {
				d.rounds.Store(binary.LittleEndian.Uint64(val))
			}
			return nil
		})
	})
}

func standingKey(name string) []byte {
	key := make([]byte, 1+len(name))
	key[0] = prefixStanding[0]
	copy(key[1:], name)
	return key
}

// Record folds one round into the standings of every species in its census.
// All updates are applied in one transaction.
func (d *DB) Record(round *results.Round) error {
	if d.closed.Load() {
		return ErrClosed
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	total := d.rounds.Load() + 1
	err := d.db.Update(func(txn *badger.Txn) error {
		for _, c := range round.Census {
			s, err := getStanding(txn, c.Name)
			if err == ErrSpeciesNotFound {
				s = &Standing{Species: c.Name}
			} else if err != nil {
				return err
			}

			s.Rounds++
			s.Alive += uint64(c.Alive)
			if c.Alive > 0 {
				s.Survived++
				if round.Capped {
					s.Capped++
				}
			}
			if round.Winner == c.Name {
				s.Wins++
			}
			if err := txn.Set(standingKey(c.Name), s.Serialize()); err != nil {
				return err
			}
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, total)
		return txn.Set(metaRounds, buf)
	})
	if err != nil {
		return fmt.Errorf("record round %d: %w", round.Index, err)
	}
	d.rounds.Store(total)
	return nil
}

func getStanding(txn *badger.Txn, name string) (*Standing, error) {
	item, err := txn.Get(standingKey(name))
	if err == badger.ErrKeyNotFound {
		return nil, ErrSpeciesNotFound
	}
	if err != nil {
		return nil, err
	}
	var s *Standing
	err = item.Value(func(val []byte) error {
		s, err = DeserializeStanding(name, val)
		return err
	})
	return s, err
}

// Get returns the standing of one species.
func (d *DB) Get(name string) (*Standing, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	var s *Standing
	err := d.db.View(func(txn *badger.Txn) error {
		var err error
		s, err = getStanding(txn, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// All returns every standing, ranked.
func (d *DB) All() ([]*Standing, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	var list []*Standing
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixStanding
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			name := string(item.Key()[1:])
			err := item.Value(func(val []byte) error {
				s, err := DeserializeStanding(name, val)
				if err != nil {
					return err
				}
				list = append(list, s)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	Rank(list)
	return list, nil
}

// Rounds returns the number of recorded rounds.
func (d *DB) Rounds() uint64 {
	return d.rounds.Load()
}

// Sync ensures all writes are persisted to disk.
func (d *DB) Sync() error {
	if d.closed.Load() {
		return ErrClosed
	}
	return d.db.Sync()
}

// Close closes the database.
func (d *DB) Close() error {
	if d.closed.Swap(true) {
		return ErrClosed
	}
	return d.db.Close()
}
