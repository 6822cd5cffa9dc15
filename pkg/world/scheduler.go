package world

import (
	"github.com/fortiblox/critters/pkg/vm"
)

// TurnFault records an execution fault for one critter turn. Faults never
// stop an epoch.
type TurnFault struct {
	ID      ID
	Species string
	Line    int
	Epoch   int64
	Err     error
}

// EpochReport summarizes one call to AdvanceEpoch.
type EpochReport struct {
	// Epoch is the epoch that was executed, before the counter advanced.
	Epoch int64

	// Turns counts every turn run, bonus turns included.
	Turns int

	// BonusTurns counts the well-fed bonus turns.
	BonusTurns int

	// Faults lists the turns that ended in an execution fault.
	Faults []TurnFault
}

// SpeciesCount is one row of a census.
type SpeciesCount struct {
	Name  string `json:"name"`
	Alive int    `json:"alive"`
}

// AdvanceEpoch runs every living critter once, in creation order, plus a
// bonus turn for critters that were well fed when their first turn began.
// The epoch counter increases by one after the last critter.
func (e *Environment) AdvanceEpoch() EpochReport {
	report := EpochReport{Epoch: e.epoch}

	for _, c := range e.critters {
		if c.Dead {
			continue
		}
		wellFed := c.IsWellFed(e.epoch)

		e.turn(c, &report)
		if wellFed && !c.Dead {
			e.turn(c, &report)
			report.BonusTurns++
		}
	}

	e.epoch++
	return report
}

// turn runs one interpreter pass for c. The program is read at the start of
// the turn, so an infection landing mid-epoch takes effect on the next turn.
func (e *Environment) turn(c *Critter, report *EpochReport) {
	report.Turns++
	res, err := vm.Execute(c.Species.Program, &c.State, host{env: e, id: c.ID})
	if err == nil {
		return
	}

	report.Faults = append(report.Faults, TurnFault{
		ID:      c.ID,
		Species: c.Species.Name,
		Line:    res.Line,
		Epoch:   e.epoch,
		Err:     err,
	})
	e.log.Warn().
		Str("species", c.Species.Name).
		Int("critter", int(c.ID)).
		Int("line", res.Line).
		Int64("epoch", e.epoch).
		Err(err).
		Msg("critter turn faulted")
}

// Winner returns the species name shared by every living critter. There is
// no winner while two or more species survive, or once none do.
func (e *Environment) Winner() (string, bool) {
	var (
		name  string
		found bool
	)
	for _, c := range e.critters {
		if c.Dead {
			continue
		}
		switch {
		case !found:
			name, found = c.Species.Name, true
		case c.Species.Name != name:
			return "", false
		}
	}
	return name, found
}

// Census counts living critters per species in roster order. Species with no
// survivors are listed with zero.
func (e *Environment) Census() []SpeciesCount {
	index := make(map[string]int, len(e.roster))
	out := make([]SpeciesCount, len(e.roster))
	for i, s := range e.roster {
		index[s.Name] = i
		out[i].Name = s.Name
	}
	for _, c := range e.critters {
		if c.Dead {
			continue
		}
		if i, ok := index[c.Species.Name]; ok {
			out[i].Alive++
		}
	}
	return out
}

// Alive returns the number of living critters.
func (e *Environment) Alive() int {
	n := 0
	for _, c := range e.critters {
		if !c.Dead {
			n++
		}
	}
	return n
}
