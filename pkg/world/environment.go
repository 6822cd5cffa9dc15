// Package world owns the critter grid and drives epochs.
//
// An Environment holds the arena of critters, a grid of critter IDs, the epoch
// counter and the one seeded random stream. Everything that happens in a run
// is a function of the seed, the roster and the grid shape: no other source of
// entropy is consulted and critters are always visited in creation order.
package world

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/fortiblox/critters/internal/types"
	"github.com/fortiblox/critters/pkg/species"
)

// Default grid shape.
const (
	DefaultWidth  = 30
	DefaultHeight = 20
)

// vacant marks an empty grid cell.
const vacant = -1

// Errors.
var (
	ErrEmptyRoster      = errors.New("species roster is empty")
	ErrDuplicateSpecies = errors.New("duplicate species name")
	ErrInvalidShape     = errors.New("invalid grid shape")
	ErrGridFull         = errors.New("more critters than grid cells")
	ErrOutOfBounds      = errors.New("position outside grid")
	ErrOccupied         = errors.New("cell already occupied")
	ErrUnknownCritter   = errors.New("unknown critter")
	ErrDeadCritter      = errors.New("critter is dead")
)

// Config describes a new environment.
type Config struct {
	// Width and Height of the grid. Zero selects the defaults.
	Width  int
	Height int

	// Critters is the number of critters to place. Zero selects
	// DefaultCritterCount for the grid.
	Critters int

	// Seed initializes the shared random stream.
	Seed uint64

	// Logger receives execution fault reports. The zero value discards them.
	Logger zerolog.Logger
}

// DefaultCritterCount returns max(2, round(width*height/12)), rounding
// halves to even.
func DefaultCritterCount(width, height int) int {
	n := int(math.RoundToEven(float64(width*height) / 12))
	if n < 2 {
		n = 2
	}
	return n
}

// Environment is the simulation state. It is not safe for concurrent use.
type Environment struct {
	width, height int
	grid          []int
	critters      []*Critter
	roster        species.Roster
	epoch         int64
	rng           *Random
	seed          uint64
	log           zerolog.Logger
}

// New builds an environment and places its critters. Placement draws
// Critters distinct cells from the shared stream first, then a species and a
// heading for each selected cell in turn.
func New(cfg Config, roster species.Roster) (*Environment, error) {
	if cfg.Width == 0 && cfg.Height == 0 {
		cfg.Width, cfg.Height = DefaultWidth, DefaultHeight
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidShape, cfg.Width, cfg.Height)
	}
	if len(roster) == 0 {
		return nil, ErrEmptyRoster
	}
	seen := make(map[string]struct{}, len(roster))
	for _, s := range roster {
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSpecies, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	if cfg.Critters == 0 {
		cfg.Critters = DefaultCritterCount(cfg.Width, cfg.Height)
	}
	cells := cfg.Width * cfg.Height
	if cfg.Critters < 0 || cfg.Critters > cells {
		return nil, fmt.Errorf("%w: %d critters, %d cells", ErrGridFull, cfg.Critters, cells)
	}

	e := &Environment{
		width:  cfg.Width,
		height: cfg.Height,
		grid:   make([]int, cells),
		roster: roster,
		rng:    NewRandom(cfg.Seed),
		seed:   cfg.Seed,
		log:    cfg.Logger,
	}
	for i := range e.grid {
		e.grid[i] = vacant
	}

	for _, p := range e.sampleEmptyCells(cfg.Critters) {
		c := &Critter{
			ID:      ID(len(e.critters)),
			Species: roster[e.rng.IntN(len(roster))],
			Heading: types.Headings[e.rng.IntN(len(types.Headings))],
			LastFed: NeverFed,
		}
		e.critters = append(e.critters, c)
		e.move(c.ID, p, true)
	}
	return e, nil
}

// sampleEmptyCells picks n distinct empty cells uniformly without replacement
// using a partial Fisher-Yates shuffle over the row-major list of empty cells.
func (e *Environment) sampleEmptyCells(n int) []types.Point {
	empty := make([]types.Point, 0, len(e.grid))
	for y := 0; y < e.height; y++ {
		for x := 0; x < e.width; x++ {
			if e.grid[e.index(types.Point{X: x, Y: y})] == vacant {
				empty = append(empty, types.Point{X: x, Y: y})
			}
		}
	}
	for i := 0; i < n; i++ {
		j := i + e.rng.IntN(len(empty)-i)
		empty[i], empty[j] = empty[j], empty[i]
	}
	return empty[:n]
}

func (e *Environment) index(p types.Point) int {
	return p.Y*e.width + p.X
}

// at returns the critter occupying p, or nil. p must be on the grid.
func (e *Environment) at(p types.Point) *Critter {
	id := e.grid[e.index(p)]
	if id == vacant {
		return nil
	}
	return e.critters[id]
}

// move relocates critter id. With placed false it removes the critter from
// the grid. The old cell is cleared and the new one filled before returning,
// so the grid and the critter never disagree between calls.
func (e *Environment) move(id ID, p types.Point, placed bool) {
	c := e.critters[id]
	if c.placed {
		e.grid[e.index(c.pos)] = vacant
	}
	c.pos, c.placed = p, placed
	if placed {
		e.grid[e.index(p)] = int(id)
	}
}

// Place puts a living critter on an empty cell, removing it from its old one.
func (e *Environment) Place(id ID, p types.Point) error {
	if id < 0 || int(id) >= len(e.critters) {
		return fmt.Errorf("%w: %d", ErrUnknownCritter, id)
	}
	if e.critters[id].Dead {
		return fmt.Errorf("%w: %d", ErrDeadCritter, id)
	}
	if !p.In(e.width, e.height) {
		return fmt.Errorf("%w: %v", ErrOutOfBounds, p)
	}
	if other := e.at(p); other != nil && other.ID != id {
		return fmt.Errorf("%w: %v", ErrOccupied, p)
	}
	e.move(id, p, true)
	return nil
}

// Width returns the grid width.
func (e *Environment) Width() int { return e.width }

// Height returns the grid height.
func (e *Environment) Height() int { return e.height }

// Epoch returns the number of completed epochs.
func (e *Environment) Epoch() int64 { return e.epoch }

// Seed returns the seed the environment was built with.
func (e *Environment) Seed() uint64 { return e.seed }

// Roster returns the species the environment was built with.
func (e *Environment) Roster() species.Roster { return e.roster }

// Critter returns the critter with the given ID, or nil.
func (e *Environment) Critter(id ID) *Critter {
	if id < 0 || int(id) >= len(e.critters) {
		return nil
	}
	return e.critters[id]
}

// Critters returns every critter in creation order, dead ones included.
func (e *Environment) Critters() []*Critter {
	return e.critters
}

// Cell returns the critter at p. ok is false for empty or off-grid cells.
func (e *Environment) Cell(p types.Point) (c *Critter, ok bool) {
	if !p.In(e.width, e.height) {
		return nil, false
	}
	c = e.at(p)
	return c, c != nil
}
