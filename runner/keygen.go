package runner

import (
	"math"
	"math/rand"
)

const paretoShape = 1.5

// valueRange returns the current upper bound of the valid key space.
// With a fixed random range the bound is static; otherwise it grows
// with acknowledged inserts, staying a little behind the newest keys so
// readers do not chase inserts still in flight across the insert
// threads. Clamped to at least 1 so a key can always be drawn.
func (r *Runner) valueRange() uint64 {
	if r.cfg.RandomRange != 0 {
		return r.cfg.InitialCount + r.cfg.RandomRange
	}
	v := int64(r.cfg.InitialCount) + int64(r.state.insertKey.Load()) - int64(r.cfg.InsertThreads+1)
	if v < 1 {
		return 1
	}
	return uint64(v)
}

// randomKey draws a key in [1, valueRange], uniformly or, in Pareto
// mode, skewed so that roughly 80% of draws land on 20% of the key
// space.
func (r *Runner) randomKey(rng *rand.Rand) uint64 {
	vr := r.valueRange()
	rval := uint64(rng.Uint32())

	if r.cfg.Pareto {
		s1 := -1 / paretoShape
		s2 := float64(vr) * 0.2 * (paretoShape - 1)
		u := 1 - float64(rval)/float64(math.MaxUint32)
		// The transform lands out of range a few percent of the time,
		// which makes the last key in the table hot.
		if v := (math.Pow(u, s1) - 1) * s2; v > float64(vr) {
			rval = vr
		} else {
			rval = uint64(v)
		}
	}

	// Never zero.
	return rval%vr + 1
}
