package world

import (
	"math"

	"github.com/fortiblox/critters/internal/types"
	"github.com/fortiblox/critters/pkg/species"
	"github.com/fortiblox/critters/pkg/vm"
)

// WellFedEpochs is how many epochs after a meal a critter earns a bonus turn.
const WellFedEpochs = 30

// NeverFed is the initial last-feeding epoch. It is far enough in the past
// that the well-fed window can never include a real epoch.
const NeverFed = math.MinInt64 / 2

// ID addresses a critter in its environment's arena.
type ID int

// Critter is the runtime record of one agent. Critters live in their
// environment's arena and are addressed by ID; the grid stores IDs, never
// pointers.
type Critter struct {
	ID      ID
	Species *species.Species
	vm.State
	Heading types.Heading
	// LastFed is the epoch of the most recent successful eat.
	LastFed int64
	Dead    bool

	pos    types.Point
	placed bool
}

// Position returns the critter's cell. ok is false for critters not on the grid.
func (c *Critter) Position() (p types.Point, ok bool) {
	return c.pos, c.placed
}

// IsWellFed reports whether the critter fed within the WellFedEpochs epochs
// before epoch.
func (c *Critter) IsWellFed(epoch int64) bool {
	return c.LastFed < epoch && epoch <= c.LastFed+WellFedEpochs
}

// ahead returns the cell at bearing b from the critter's heading.
func (c *Critter) ahead(b types.Bearing) types.Point {
	return c.pos.Add(c.Heading.Turn(b).Offset())
}

// TurnLeft rotates critter id 45 degrees counter-clockwise.
func (e *Environment) TurnLeft(id ID) {
	c := e.critters[id]
	c.Heading = c.Heading.Turn(-45)
}

// TurnRight rotates critter id 45 degrees clockwise.
func (e *Environment) TurnRight(id ID) {
	c := e.critters[id]
	c.Heading = c.Heading.Turn(45)
}

// Hop moves critter id one cell forward if that cell is empty.
func (e *Environment) Hop(id ID) {
	if e.Sense(id, 0) != types.Empty {
		return
	}
	c := e.critters[id]
	e.move(id, c.ahead(0), true)
}

// Eat kills the enemy ahead of critter id, if there is one, and records the
// current epoch as the eater's last meal.
func (e *Environment) Eat(id ID) {
	if e.Sense(id, 0) != types.Enemy {
		return
	}
	c := e.critters[id]
	prey := e.at(c.ahead(0))
	prey.Dead = true
	e.move(prey.ID, types.Point{}, false)
	c.LastFed = e.epoch
}

// Infect converts the enemy ahead of critter id to id's species and sets its
// cursor to line.
func (e *Environment) Infect(id ID, line int) {
	if e.Sense(id, 0) != types.Enemy {
		return
	}
	c := e.critters[id]
	victim := e.at(c.ahead(0))
	victim.Species = c.Species
	victim.Cursor = line
}

// Sense reports what critter id sees at bearing b. Cells off the grid are
// walls. Allies share the critter's species.
func (e *Environment) Sense(id ID, b types.Bearing) types.Content {
	c := e.critters[id]
	p := c.ahead(b)
	if !p.In(e.width, e.height) {
		return types.Wall
	}
	other := e.at(p)
	switch {
	case other == nil:
		return types.Empty
	case other.Species == c.Species:
		return types.Ally
	default:
		return types.Enemy
	}
}

// RollRandom draws a fair coin from the shared stream.
func (e *Environment) RollRandom() bool {
	return e.rng.Bool()
}

// host binds a critter to its environment for the interpreter.
type host struct {
	env *Environment
	id  ID
}

func (h host) Hop()                                { h.env.Hop(h.id) }
func (h host) TurnLeft()                           { h.env.TurnLeft(h.id) }
func (h host) TurnRight()                          { h.env.TurnRight(h.id) }
func (h host) Eat()                                { h.env.Eat(h.id) }
func (h host) Infect(line int)                     { h.env.Infect(h.id, line) }
func (h host) Sense(b types.Bearing) types.Content { return h.env.Sense(h.id, b) }
func (h host) RollRandom() bool                    { return h.env.RollRandom() }
