// Package solve is the solve driver (spec §4.6): it decides whether to run
// a single pass or the adaptive two-pass assignment-then-scheduling split,
// drives internal/cpsat.Solve under a wall-clock budget, and exposes an
// incremental re-solve entry point that reuses a prior solution's fixed
// variables.
package solve

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sek-scheduler/internal/cpsat"
	"github.com/noah-isme/sek-scheduler/internal/decode"
	"github.com/noah-isme/sek-scheduler/internal/domain"
	"github.com/noah-isme/sek-scheduler/internal/model"
	"github.com/noah-isme/sek-scheduler/internal/objective"
	"github.com/noah-isme/sek-scheduler/internal/slotindex"
	"github.com/noah-isme/sek-scheduler/pkg/schedulerrors"
)

// Params configures one Solve or ResolveIncremental call, sourced from CLI
// flags and config defaults (spec §6).
type Params struct {
	TimeLimit        time.Duration
	NumWorkers       int
	Seed             int64
	TwoPassThreshold int    // class count at/above which two-pass auto-enables
	TwoPassForce     string // "", "on", "off"
	NoSoft           bool
	RelaxTimeLimit   time.Duration // budget for incremental re-solve attempts
	OnProgress       func(cpsat.ProgressStats)
}

// Outcome is what one Solve call produces.
type Outcome struct {
	Status      cpsat.Status
	Result      *model.Result
	Solution    *cpsat.Solution
	UsedTwoPass bool
	WallTime    time.Duration
}

// Driver runs the solve pipeline for one domain model.
type Driver struct {
	dm  *domain.DomainModel
	idx *slotindex.Index
	log *zap.Logger
}

// New returns a Driver for dm, reusing a pre-built slot index.
func New(dm *domain.DomainModel, idx *slotindex.Index, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{dm: dm, idx: idx, log: log}
}

// Solve runs the full pipeline: decide single vs two-pass, build, compose
// the objective unless NoSoft, and solve within ctx's deadline.
func (d *Driver) Solve(ctx context.Context, params Params) (*Outcome, error) {
	start := time.Now()
	cancel := ctxDoneChan(ctx)

	useTwoPass := d.shouldUseTwoPass(params)

	var fixed map[model.AssignKey]bool
	if useTwoPass {
		d.log.Info("two-pass enabled", zap.Int("classes", len(d.dm.ClassIDs())))
		pass1, err := d.runPass1(params, cancel)
		if err != nil {
			return nil, err
		}
		if pass1.Status == cpsat.StatusInfeasible {
			return &Outcome{Status: cpsat.StatusInfeasible, UsedTwoPass: true, WallTime: time.Since(start)},
				schedulerrors.New(schedulerrors.KindInfeasibleSolve, "pass 1 (assignment) is infeasible")
		}
		fixed = extractFixedAssignments(pass1.builderResult, pass1.solution)
	}

	builder := model.New(d.dm, d.idx, d.log, model.Options{FixedAssignments: fixed})
	res := builder.Build()
	if !params.NoSoft {
		objective.Compose(res, d.dm)
	}

	sol := cpsat.Solve(res.CP, cpsat.SolveParams{
		TimeLimit:  remainingTime(start, params.TimeLimit),
		NumWorkers: params.NumWorkers,
		Seed:       params.Seed,
		OnProgress: params.OnProgress,
		Cancel:     cancel,
	})

	out := &Outcome{Status: sol.Status, Result: res, Solution: sol, UsedTwoPass: useTwoPass, WallTime: time.Since(start)}
	return out, statusError(sol.Status)
}

// ResolveIncremental re-solves after a domain model change by fixing every
// x variable: to 1 where its key matches a direct (non-coupling) lesson in
// prevEntries, to 0 otherwise. prevEntries is the flat, persistence-friendly
// decoding a prior Solve call produced and the cache.SolutionCache
// round-trips through Redis. It falls back to a cold Solve if the fixed
// problem turns out infeasible
// (spec §4.6 "Incremental re-solve"). prevEntries rather than the raw
// model.Result/cpsat.Solution pair is the carry-over boundary because only
// the decoded entries survive a cache read after process restart; the
// cpsat.Model a prior Result wraps is only ever valid within the build that
// produced it.
func (d *Driver) ResolveIncremental(ctx context.Context, prevEntries []decode.ScheduleEntry, params Params) (*Outcome, error) {
	start := time.Now()
	cancel := ctxDoneChan(ctx)

	builder := model.New(d.dm, d.idx, d.log, model.Options{})
	res := builder.Build()
	if !params.NoSoft {
		objective.Compose(res, d.dm)
	}

	prevDirect := make(map[model.SlotAssignKey]bool, len(prevEntries))
	for _, e := range prevEntries {
		if e.Coupling != "" {
			continue
		}
		prevDirect[model.SlotAssignKey{Teacher: e.Teacher, Class: e.Class, Subject: e.Subject, Day: e.Day, Period: e.Period}] = true
	}

	carryOver := 0
	for key, v := range res.X {
		wasTrue := prevDirect[key]
		res.CP.Fix(v, boolToInt(wasTrue))
		if wasTrue {
			carryOver++
		}
	}
	d.log.Info("incremental re-solve: carried over slot fixes", zap.Int("count", carryOver))

	budget := params.RelaxTimeLimit
	if budget <= 0 {
		budget = params.TimeLimit
	}
	sol := cpsat.Solve(res.CP, cpsat.SolveParams{
		TimeLimit:  remainingTime(start, budget),
		NumWorkers: params.NumWorkers,
		Seed:       params.Seed,
		OnProgress: params.OnProgress,
		Cancel:     cancel,
	})

	if sol.Status == cpsat.StatusInfeasible {
		d.log.Warn("incremental fixed re-solve infeasible, falling back to a cold solve")
		return d.Solve(ctx, params)
	}

	out := &Outcome{Status: sol.Status, Result: res, Solution: sol, WallTime: time.Since(start)}
	return out, statusError(sol.Status)
}

type pass1Outcome struct {
	builderResult *model.Result
	solution      *cpsat.Solution
	Status        cpsat.Status
}

func (d *Driver) runPass1(params Params, cancel <-chan struct{}) (*pass1Outcome, error) {
	builder := model.New(d.dm, d.idx, d.log, model.Options{AssignOnly: true})
	res := builder.Build()

	budget := params.TimeLimit / 2
	if budget <= 0 {
		budget = params.TimeLimit
	}
	sol := cpsat.Solve(res.CP, cpsat.SolveParams{
		TimeLimit:  budget,
		NumWorkers: params.NumWorkers,
		Seed:       params.Seed,
		Cancel:     cancel,
	})
	return &pass1Outcome{builderResult: res, solution: sol, Status: sol.Status}, nil
}

// shouldUseTwoPass implements spec §4.6's auto-enable rule: forced on/off
// by the CLI flag, else enabled once the class count reaches the
// configured threshold.
func (d *Driver) shouldUseTwoPass(params Params) bool {
	switch params.TwoPassForce {
	case "on":
		return true
	case "off":
		return false
	default:
		threshold := params.TwoPassThreshold
		if threshold <= 0 {
			threshold = 20
		}
		return len(d.dm.ClassIDs()) >= threshold
	}
}

func extractFixedAssignments(res *model.Result, sol *cpsat.Solution) map[model.AssignKey]bool {
	fixed := make(map[model.AssignKey]bool, len(res.A))
	for key, v := range res.A {
		fixed[key] = sol.Value(v)
	}
	return fixed
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func remainingTime(start time.Time, limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	elapsed := time.Since(start)
	if elapsed >= limit {
		return time.Millisecond
	}
	return limit - elapsed
}

func ctxDoneChan(ctx context.Context) <-chan struct{} {
	if ctx == nil {
		return nil
	}
	return ctx.Done()
}

func statusError(status cpsat.Status) error {
	switch status {
	case cpsat.StatusOptimal, cpsat.StatusFeasible:
		return nil
	case cpsat.StatusInfeasible:
		return schedulerrors.New(schedulerrors.KindInfeasibleSolve, "no feasible timetable found")
	default:
		return schedulerrors.New(schedulerrors.KindTimeout, "solve did not converge within the time limit")
	}
}
