package world

import "math/rand/v2"

// Random is the single pseudo-random stream of an environment. Every draw in
// a simulation goes through it, so the order of calls is part of the
// reproducibility contract.
type Random struct {
	r *rand.Rand
}

// NewRandom seeds a PCG stream.
func NewRandom(seed uint64) *Random {
	return &Random{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// IntN returns a uniform value in [0, n).
func (r *Random) IntN(n int) int {
	return r.r.IntN(n)
}

// Bool returns true with probability exactly 1/2.
func (r *Random) Bool() bool {
	return r.r.Uint64()&1 == 1
}
