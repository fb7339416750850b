package cpsat

import (
	"runtime"
	"sync"
	"time"
)

// Status mirrors the CP-SAT-class status vocabulary of spec §4.6/§5.
type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusFeasible
	StatusInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusFeasible:
		return "FEASIBLE"
	case StatusInfeasible:
		return "INFEASIBLE"
	default:
		return "UNKNOWN"
	}
}

// ProgressStats is delivered through SolveParams.OnProgress as the search
// makes progress (spec §5 "Suspension points").
type ProgressStats struct {
	WallTime       time.Duration
	BestObjective  float64
	SolutionsFound int
}

// SolveParams configures one Solve call.
type SolveParams struct {
	TimeLimit  time.Duration
	NumWorkers int // 0 = detect logical cores
	Seed       int64
	OnProgress func(ProgressStats)
	Cancel     <-chan struct{} // caller-supplied cancellation signal
}

// Solution is the decoded outcome of a Solve call.
type Solution struct {
	Status         Status
	Values         []int // per VarID, valid when Status is OPTIMAL/FEASIBLE
	ObjectiveValue float64
	NumVariables   int
	NumConstraints int
	WallTime       time.Duration
}

// Value returns the boolean value assigned to v in a successful solution.
func (s *Solution) Value(v VarID) bool {
	if s == nil || v < 0 || int(v) >= len(s.Values) {
		return false
	}
	return s.Values[v] == 1
}

// Solve runs a branch-and-bound search over m's variables and constraints,
// racing params.NumWorkers goroutines against a shared incumbent under
// params.TimeLimit, honouring cooperative cancellation (spec §5).
func Solve(m *Model, params SolveParams) *Solution {
	start := time.Now()
	numWorkers := params.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	var deadline time.Time
	if params.TimeLimit > 0 {
		deadline = start.Add(params.TimeLimit)
	}

	degree := computeDegree(m.NumVars(), m.constraints)
	best := newBestTracker(m.HasObjective())

	var wg sync.WaitGroup
	exhaustedFlags := make([]bool, numWorkers)
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := &worker{
				model:       m,
				constraints: m.constraints,
				degree:      degree,
				objective:   m.objective,
				seed:        params.Seed + int64(i)*0x2545F4914F6CDD1D,
				deadline:    deadline,
				cancel:      params.Cancel,
				best:        best,
				onProgress:  params.OnProgress,
				start:       start,
			}
			exhaustedFlags[i] = w.run()
		}(i)
	}
	wg.Wait()

	anyExhausted := false
	for _, e := range exhaustedFlags {
		if e {
			anyExhausted = true
			break
		}
	}

	bestObj, bestState, found, _ := best.snapshot()
	wallTime := time.Since(start)

	sol := &Solution{
		NumVariables:   m.NumVars(),
		NumConstraints: m.NumConstraints(),
		WallTime:       wallTime,
	}

	switch {
	case found && anyExhausted:
		sol.Status = StatusOptimal
		sol.ObjectiveValue = float64(bestObj)
		sol.Values = toIntSlice(bestState)
	case found && !anyExhausted:
		sol.Status = StatusFeasible
		sol.ObjectiveValue = float64(bestObj)
		sol.Values = toIntSlice(bestState)
	case !found && anyExhausted:
		sol.Status = StatusInfeasible
	default:
		sol.Status = StatusUnknown
	}

	return sol
}

func toIntSlice(s state) []int {
	out := make([]int, len(s))
	for i, v := range s {
		if v == free {
			out[i] = 0
		} else {
			out[i] = int(v)
		}
	}
	return out
}
