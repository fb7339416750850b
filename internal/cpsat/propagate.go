package cpsat

// state is the per-variable domain during search: -1 free, 0 or 1 fixed.
type state []int8

const (
	free int8 = -1
)

func newState(n int, fixed map[VarID]int) state {
	s := make(state, n)
	for i := range s {
		s[i] = free
	}
	for v, val := range fixed {
		s[v] = int8(val)
	}
	return s
}

func (s state) clone() state {
	out := make(state, len(s))
	copy(out, s)
	return out
}

// minContrib/maxContrib bound coeff*x for x in {0,1} given its sign.
func minContrib(coeff int) int {
	if coeff > 0 {
		return 0
	}
	return coeff
}

func maxContrib(coeff int) int {
	if coeff > 0 {
		return coeff
	}
	return 0
}

// contribAt returns coeff*val.
func contribAt(coeff, val int) int { return coeff * val }

// propagateResult is the outcome of running bound-consistency propagation
// to a fixpoint over every posted constraint.
type propagateResult struct {
	conflict bool
}

// propagate runs bound-consistency propagation (spec §4.3/§4.4's linear
// hard constraints reduced to sum (in)equalities) to a fixpoint, forcing
// any variable whose only remaining feasible value is determined by the
// current bounds of its constraints. It mutates s in place.
func propagate(constraints []Constraint, s state) propagateResult {
	changed := true
	for changed {
		changed = false
		for _, c := range constraints {
			res := propagateOne(c, s)
			if res.conflict {
				return propagateResult{conflict: true}
			}
			if res.forced {
				changed = true
			}
		}
	}
	return propagateResult{}
}

type oneResult struct {
	conflict bool
	forced   bool
}

func propagateOne(c Constraint, s state) oneResult {
	switch c.Sense {
	case LE:
		return propagateLE(c.Terms, c.RHS, s)
	case GE:
		return propagateGE(c.Terms, c.RHS, s)
	case EQ:
		r1 := propagateLE(c.Terms, c.RHS, s)
		if r1.conflict {
			return r1
		}
		r2 := propagateGE(c.Terms, c.RHS, s)
		if r2.conflict {
			return r2
		}
		return oneResult{forced: r1.forced || r2.forced}
	}
	return oneResult{}
}

// propagateLE enforces sum(terms) <= rhs.
func propagateLE(terms []Term, rhs int, s state) oneResult {
	minPossible := 0
	for _, t := range terms {
		v := s[t.Var]
		if v == free {
			minPossible += minContrib(t.Coeff)
		} else {
			minPossible += contribAt(t.Coeff, int(v))
		}
	}
	if minPossible > rhs {
		return oneResult{conflict: true}
	}
	forced := false
	for _, t := range terms {
		if s[t.Var] != free {
			continue
		}
		altMax := minPossible - minContrib(t.Coeff) + maxContrib(t.Coeff)
		if altMax > rhs {
			// Forcing the var to the value giving minContrib is the only
			// way to keep the sum within bound.
			if t.Coeff > 0 {
				s[t.Var] = 0
			} else {
				s[t.Var] = 1
			}
			minPossible = minPossible - minContrib(t.Coeff) + contribAt(t.Coeff, int(s[t.Var]))
			forced = true
		}
	}
	return oneResult{forced: forced}
}

// propagateGE enforces sum(terms) >= rhs.
func propagateGE(terms []Term, rhs int, s state) oneResult {
	maxPossible := 0
	for _, t := range terms {
		v := s[t.Var]
		if v == free {
			maxPossible += maxContrib(t.Coeff)
		} else {
			maxPossible += contribAt(t.Coeff, int(v))
		}
	}
	if maxPossible < rhs {
		return oneResult{conflict: true}
	}
	forced := false
	for _, t := range terms {
		if s[t.Var] != free {
			continue
		}
		altMin := maxPossible - maxContrib(t.Coeff) + minContrib(t.Coeff)
		if altMin < rhs {
			if t.Coeff > 0 {
				s[t.Var] = 1
			} else {
				s[t.Var] = 0
			}
			maxPossible = maxPossible - maxContrib(t.Coeff) + contribAt(t.Coeff, int(s[t.Var]))
			forced = true
		}
	}
	return oneResult{forced: forced}
}

// objectiveBounds returns [lower, upper] bounds for the linear objective
// given the current domain state, used for branch-and-bound pruning.
func objectiveBounds(objective []Term, s state) (lo, hi int) {
	for _, t := range objective {
		v := s[t.Var]
		if v == free {
			lo += minContrib(t.Coeff)
			hi += maxContrib(t.Coeff)
		} else {
			c := contribAt(t.Coeff, int(v))
			lo += c
			hi += c
		}
	}
	return lo, hi
}
