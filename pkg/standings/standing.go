// Package standings keeps cumulative per-species results across batch runs.
package standings

import (
	"encoding/binary"
	"errors"
	"sort"
)

// Errors.
var (
	ErrSpeciesNotFound = errors.New("species not found")
	ErrInvalidData     = errors.New("invalid standing data")
	ErrClosed          = errors.New("standings closed")
)

// standingSize is the serialized size of a Standing's counters.
const standingSize = 5 * 8

// Standing is the cumulative record of one species.
type Standing struct {
	Species string `json:"species"`

	// Rounds counts rounds the species took part in.
	Rounds uint64 `json:"rounds"`

	// Wins counts rounds the species ended as the only survivor.
	Wins uint64 `json:"wins"`

	// Survived counts rounds in which at least one critter of the species
	// was alive at the end.
	Survived uint64 `json:"survived"`

	// Capped counts rounds that hit the epoch cap with the species alive.
	Capped uint64 `json:"capped"`

	// Alive sums the end-of-round living counts.
	Alive uint64 `json:"alive"`
}

// WinRate returns Wins/Rounds, or zero before the first round.
func (s *Standing) WinRate() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Rounds)
}

// Serialize encodes the counters. The species name lives in the key.
func (s *Standing) Serialize() []byte {
	buf := make([]byte, standingSize)
	binary.LittleEndian.PutUint64(buf[0:], s.Rounds)
	binary.LittleEndian.PutUint64(buf[8:], s.Wins)
	binary.LittleEndian.PutUint64(buf[16:], s.Survived)
	binary.LittleEndian.PutUint64(buf[24:], s.Capped)
	binary.LittleEndian.PutUint64(buf[32:], s.Alive)
	return buf
}

// DeserializeStanding decodes counters written by Serialize.
func DeserializeStanding(name string, data []byte) (*Standing, error) {
	if len(data) != standingSize {
		return nil, ErrInvalidData
	}
	return &Standing{
		Species:  name,
		Rounds:   binary.LittleEndian.Uint64(data[0:]),
		Wins:     binary.LittleEndian.Uint64(data[8:]),
		Survived: binary.LittleEndian.Uint64(data[16:]),
		Capped:   binary.LittleEndian.Uint64(data[24:]),
		Alive:    binary.LittleEndian.Uint64(data[32:]),
	}, nil
}

// Rank orders standings by win rate, then survivals, then name.
func Rank(list []*Standing) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if ra, rb := a.WinRate(), b.WinRate(); ra != rb {
			return ra > rb
		}
		if a.Survived != b.Survived {
			return a.Survived > b.Survived
		}
		return a.Species < b.Species
	})
}
