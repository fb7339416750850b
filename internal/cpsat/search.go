package cpsat

import (
	"sync"
	"time"
)

// bestTracker is the shared incumbent several parallel workers race
// against (spec §9 "Coroutines/callbacks": parallelism is internal to the
// back-end, driven by num_workers).
type bestTracker struct {
	mu           sync.Mutex
	hasObjective bool
	found        bool
	bestObj      int
	bestState    state
	solutions    int
}

func newBestTracker(hasObjective bool) *bestTracker {
	return &bestTracker{hasObjective: hasObjective}
}

// consider reports a candidate solution; returns true if it improved (or
// established) the incumbent.
func (b *bestTracker) consider(obj int, s state, onSolution func(int)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.solutions++
	if !b.found || obj < b.bestObj {
		b.found = true
		b.bestObj = obj
		b.bestState = s.clone()
		if onSolution != nil {
			onSolution(obj)
		}
		return true
	}
	return false
}

func (b *bestTracker) snapshot() (int, state, bool, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bestObj, b.bestState, b.found, b.solutions
}

func (b *bestTracker) currentBound() (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bestObj, b.found
}

// worker runs one deterministic (given its seed) DFS branch-and-bound
// search over the full problem, pruning against the shared incumbent.
// It returns true if it exhausted its entire search tree without being
// cut short by the deadline or cancellation — the condition required to
// certify OPTIMAL/INFEASIBLE rather than report FEASIBLE/UNKNOWN.
type worker struct {
	model       *Model
	constraints []Constraint
	degree      []int
	objective   []Term
	seed        int64
	deadline    time.Time
	cancel      <-chan struct{}
	best        *bestTracker
	onProgress  func(ProgressStats)
	start       time.Time
}

func (w *worker) run() (exhausted bool) {
	s0 := newState(w.model.NumVars(), w.model.fixed)
	if propagate(w.constraints, s0).conflict {
		return true // exhausted: the fixed/pinned prefix alone is infeasible
	}
	return w.dfs(s0)
}

func (w *worker) timedOut() bool {
	if !w.deadline.IsZero() && time.Now().After(w.deadline) {
		return true
	}
	select {
	case <-w.cancel:
		return true
	default:
		return false
	}
}

// dfs explores s, returns whether this subtree was fully exhausted.
func (w *worker) dfs(s state) bool {
	if w.timedOut() {
		return false
	}

	s = s.clone()
	if propagate(w.constraints, s).conflict {
		return true
	}

	v, ok := w.pickFreeVar(s)
	if !ok {
		// Every variable is assigned: a feasible leaf.
		lo, _ := objectiveBounds(w.objective, s)
		w.best.consider(lo, s, func(obj int) {
			if w.onProgress != nil {
				w.onProgress(ProgressStats{
					WallTime:       time.Since(w.start),
					BestObjective:  float64(obj),
					SolutionsFound: 1,
				})
			}
		})
		return true
	}

	if bound, has := w.best.currentBound(); has && w.model.HasObjective() {
		lo, _ := objectiveBounds(w.objective, s)
		if lo >= bound {
			return true // pruned: cannot possibly improve the incumbent
		}
	}

	order := branchOrder(w.seed, v)
	full := true
	for _, val := range order {
		child := s.clone()
		child[v] = int8(val)
		if !w.dfs(child) {
			full = false
		}
		if w.timedOut() {
			return false
		}
		// A pure feasibility problem is solved by its first leaf: once the
		// incumbent exists, no sibling branch can improve on "feasible".
		if !w.model.HasObjective() {
			if _, _, found, _ := w.best.snapshot(); found {
				break
			}
		}
	}
	return full
}

// pickFreeVar selects the most-constrained free variable (highest
// constraint degree, ties broken by ascending VarID — the deterministic
// order spec §5 requires).
func (w *worker) pickFreeVar(s state) (VarID, bool) {
	best := -1
	bestDeg := -1
	for i, val := range s {
		if val != free {
			continue
		}
		d := w.degree[i]
		if d > bestDeg {
			bestDeg = d
			best = i
		}
	}
	if best < 0 {
		return 0, false
	}
	return VarID(best), true
}

// branchOrder returns the {0,1} try-order for variable v, deterministic
// given seed so reproducibility holds under a fixed seed (spec §5).
func branchOrder(seed int64, v VarID) [2]int {
	h := splitmix64(uint64(seed) ^ uint64(v)*0x9E3779B97F4A7C15)
	if h&1 == 0 {
		return [2]int{0, 1}
	}
	return [2]int{1, 0}
}

func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}

func computeDegree(n int, constraints []Constraint) []int {
	degree := make([]int, n)
	for _, c := range constraints {
		for _, t := range c.Terms {
			degree[t.Var]++
		}
	}
	return degree
}
