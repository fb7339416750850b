// Package relax is the diagnostic constraint relaxer (spec §4.8): when a
// solve comes back infeasible, it disables constraint families in a fixed
// order, rebuilding and re-solving with a short time limit after each
// step, and reports the first family whose removal restores feasibility.
// Each relaxation attempt runs through a pkg/jobs.Queue worker (one worker,
// deterministic mode, so a failed attempt is not retried), so a relax run
// gets the queue's structured start/stop logging and a bounded worker count
// instead of an ad-hoc goroutine loop.
package relax

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sek-scheduler/internal/cpsat"
	"github.com/noah-isme/sek-scheduler/internal/domain"
	"github.com/noah-isme/sek-scheduler/internal/model"
	"github.com/noah-isme/sek-scheduler/internal/objective"
	"github.com/noah-isme/sek-scheduler/internal/slotindex"
	"github.com/noah-isme/sek-scheduler/pkg/jobs"
)

// Step names one relaxation attempt in the fixed diagnostic order of
// spec §4.8: doubles, then rooms, then couplings, then a widened deputat
// band, then compactness.
type Step struct {
	Name string
	Opts model.Options
}

// DefaultSteps is the fixed relaxation order spec §4.8 specifies.
func DefaultSteps() []Step {
	return []Step{
		{Name: "disable_doubles", Opts: model.Options{DisableDoubles: true}},
		{Name: "disable_rooms", Opts: model.Options{DisableRooms: true}},
		{Name: "disable_couplings", Opts: model.Options{DisableCouplings: true}},
		{Name: "widen_deputat_20pct", Opts: model.Options{WidenDeputatPercent: 0.2}},
		{Name: "disable_compactness", Opts: model.Options{DisableCompactness: true}},
	}
}

// Report is the outcome of a diagnostic run.
type Report struct {
	Offender string // name of the Step that restored feasibility, "" if none did
	Attempts []AttemptResult
}

// AttemptResult records one relaxation step's outcome.
type AttemptResult struct {
	Step     string
	Status   cpsat.Status
	WallTime time.Duration
}

// Diagnose tries each step in order under timeLimit per attempt, stopping
// at the first one that yields a feasible or optimal solve.
func Diagnose(ctx context.Context, dm *domain.DomainModel, idx *slotindex.Index, log *zap.Logger, timeLimit time.Duration, numWorkers int, seed int64) *Report {
	if log == nil {
		log = zap.NewNop()
	}
	report := &Report{}
	resultCh := make(chan AttemptResult, 1)

	queue := jobs.NewQueue("relax", func(jobCtx context.Context, j jobs.Job) error {
		step := j.Payload.(Step)
		start := time.Now()

		builder := model.New(dm, idx, log, step.Opts)
		res := builder.Build()
		objective.Compose(res, dm)

		sol := cpsat.Solve(res.CP, cpsat.SolveParams{
			TimeLimit:  timeLimit,
			NumWorkers: numWorkers,
			Seed:       seed,
			Cancel:     jobCtx.Done(),
		})
		resultCh <- AttemptResult{Step: step.Name, Status: sol.Status, WallTime: time.Since(start)}
		return nil
	}, jobs.QueueConfig{Workers: 1, Deterministic: true, Logger: log})

	queue.Start(ctx)
	defer queue.Stop()

	// Single worker, one step enqueued at a time: attempts run in the
	// deterministic order spec §4.8 requires, and the loop stops as soon
	// as a step restores feasibility.
	for _, step := range DefaultSteps() {
		if err := queue.Enqueue(jobs.Job{ID: step.Name, Type: "relax_attempt", Payload: step}); err != nil {
			log.Warn("relax: failed to enqueue step", zap.String("step", step.Name), zap.Error(err))
			continue
		}
		result := <-resultCh
		report.Attempts = append(report.Attempts, result)
		if result.Status == cpsat.StatusFeasible || result.Status == cpsat.StatusOptimal {
			report.Offender = step.Name
			break
		}
	}

	log.Info("diagnostic relax complete", zap.String("offender", report.Offender), zap.Int("attempts", len(report.Attempts)))
	return report
}

func (r *Report) String() string {
	if r.Offender == "" {
		return fmt.Sprintf("no single relaxation restored feasibility across %d attempts", len(r.Attempts))
	}
	return fmt.Sprintf("relaxing %q restores feasibility", r.Offender)
}
