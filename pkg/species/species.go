// Package species implements the critter program model.
//
// A species is a name plus an immutable program of typed instructions. Source
// text is validated once at load time so the interpreter never has to re-parse
// operands. The display color is derived from the name with BLAKE3 so a given
// name always renders the same way.
package species

import (
	"github.com/zeebo/blake3"

	"github.com/fortiblox/critters/internal/types"
)

// Species is a named program. Critters reference a species and never copy it.
type Species struct {
	Name    string
	Program Program
	Color   types.Color
}

// New builds a species and derives its color.
func New(name string, program Program) *Species {
	return &Species{
		Name:    name,
		Program: program,
		Color:   ColorOf(name),
	}
}

// ColorOf returns the first three bytes of BLAKE3(name) as an RGB color.
func ColorOf(name string) types.Color {
	sum := blake3.Sum256([]byte(name))
	return types.Color{R: sum[0], G: sum[1], B: sum[2]}
}

// Digest hashes the name and canonical program text. Two species with the
// same digest behave identically.
func (s *Species) Digest() types.Hash {
	h := blake3.New()
	h.Write([]byte(s.Name))
	h.Write([]byte{'\n'})
	for _, ins := range s.Program {
		h.Write([]byte(ins.String()))
		h.Write([]byte{'\n'})
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Source renders the species back into loadable source text.
func (s *Species) Source() string {
	out := s.Name + "\n"
	for _, ins := range s.Program {
		out += ins.String() + "\n"
	}
	return out
}

// Roster is an ordered set of species. Order matters: random species draws
// index into it.
type Roster []*Species

// Lookup finds a species by name.
func (r Roster) Lookup(name string) (*Species, bool) {
	for _, s := range r {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Names returns species names in roster order.
func (r Roster) Names() []string {
	names := make([]string, len(r))
	for i, s := range r {
		names[i] = s.Name
	}
	return names
}

// Filter keeps the named species, preserving roster order. An empty filter
// returns the roster unchanged.
func (r Roster) Filter(names ...string) Roster {
	if len(names) == 0 {
		return r
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	var out Roster
	for _, s := range r {
		if _, ok := want[s.Name]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Digest hashes every species digest in roster order.
func (r Roster) Digest() types.Hash {
	h := blake3.New()
	for _, s := range r {
		d := s.Digest()
		h.Write(d[:])
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}
