package world

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/fortiblox/critters/internal/types"
)

// Cell is one occupied grid cell in a Frame.
type Cell struct {
	X       int           `json:"x"`
	Y       int           `json:"y"`
	ID      ID            `json:"id"`
	Species string        `json:"species"`
	Color   types.Color   `json:"color"`
	Heading types.Heading `json:"heading"`
}

// Frame is a display snapshot of the environment.
type Frame struct {
	Epoch  int64          `json:"epoch"`
	Width  int            `json:"width"`
	Height int            `json:"height"`
	Cells  []Cell         `json:"cells"`
	Census []SpeciesCount `json:"census"`
	Winner string         `json:"winner,omitempty"`
	Digest types.Hash     `json:"digest"`
}

// Frame captures the occupied cells in row-major order along with the census
// and winner.
func (e *Environment) Frame() Frame {
	f := Frame{
		Epoch:  e.epoch,
		Width:  e.width,
		Height: e.height,
		Cells:  make([]Cell, 0, e.Alive()),
		Census: e.Census(),
		Digest: e.Digest(),
	}
	for i, id := range e.grid {
		if id == vacant {
			continue
		}
		c := e.critters[id]
		f.Cells = append(f.Cells, Cell{
			X:       i % e.width,
			Y:       i / e.width,
			ID:      c.ID,
			Species: c.Species.Name,
			Color:   c.Species.Color,
			Heading: c.Heading,
		})
	}
	f.Winner, _ = e.Winner()
	return f
}

// Digest hashes the full simulation state: epoch, grid shape and, for every
// critter in creation order, its species, liveness, position, heading,
// cursor, registers and last meal. Two runs with the same seed, roster and
// shape produce the same digest at every epoch.
func (e *Environment) Digest() types.Hash {
	h := sha3.New256()
	var buf [8]byte
	put := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}

	put(e.epoch)
	put(int64(e.width))
	put(int64(e.height))
	put(int64(len(e.critters)))
	for _, c := range e.critters {
		put(int64(len(c.Species.Name)))
		h.Write([]byte(c.Species.Name))
		if c.Dead {
			put(1)
		} else {
			put(0)
		}
		p, ok := c.Position()
		if !ok {
			p = types.Point{X: -1, Y: -1}
		}
		put(int64(p.X))
		put(int64(p.Y))
		put(int64(c.Heading))
		put(int64(c.Cursor))
		for _, r := range c.Registers {
			put(r)
		}
		put(c.LastFed)
	}

	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}
