// Command scheduler is the thin CLI wrapping the scheduling core (spec
// §6): it loads a domain model from a JSON file, runs the solve pipeline,
// and writes the result, honouring only the flags spec §6 gives semantic
// meaning to.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sek-scheduler/internal/audit"
	"github.com/noah-isme/sek-scheduler/internal/cache"
	"github.com/noah-isme/sek-scheduler/internal/cpsat"
	"github.com/noah-isme/sek-scheduler/internal/decode"
	"github.com/noah-isme/sek-scheduler/internal/domain"
	"github.com/noah-isme/sek-scheduler/internal/metrics"
	"github.com/noah-isme/sek-scheduler/internal/relax"
	"github.com/noah-isme/sek-scheduler/internal/slotindex"
	"github.com/noah-isme/sek-scheduler/internal/solve"
	"github.com/noah-isme/sek-scheduler/internal/store"
	"github.com/noah-isme/sek-scheduler/internal/validate"
	redisclient "github.com/noah-isme/sek-scheduler/pkg/cache"
	"github.com/noah-isme/sek-scheduler/pkg/config"
	"github.com/noah-isme/sek-scheduler/pkg/database"
	"github.com/noah-isme/sek-scheduler/pkg/logger"
	"github.com/noah-isme/sek-scheduler/pkg/schedulerrors"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return schedulerrors.KindInternal.ExitCode()
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		return schedulerrors.KindInternal.ExitCode()
	}
	defer log.Sync() //nolint:errcheck

	flags := parseFlags(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	raw, err := os.ReadFile(flags.inputPath)
	if err != nil {
		log.Error("read input file", zap.Error(err))
		return schedulerrors.KindInvalidInput.ExitCode()
	}
	input, err := domain.ParseInput(raw)
	if err != nil {
		log.Error("parse input file", zap.Error(err))
		return schedulerrors.KindInvalidInput.ExitCode()
	}
	dm := input.ToDomainModel()
	applyWeightOverrides(dm, flags.weights)

	if err := dm.Validate(); err != nil {
		log.Error("domain model failed validation", zap.Error(err))
		return schedulerrors.KindOf(err).ExitCode()
	}

	report := audit.Run(dm)
	for _, w := range report.Warnings {
		log.Warn("feasibility audit warning", zap.String("detail", w))
	}
	if !report.Feasible {
		for _, e := range report.Errors {
			log.Error("feasibility audit error", zap.String("detail", e))
		}
		return schedulerrors.KindInfeasibleStatic.ExitCode()
	}

	idx := slotindex.Build(&dm.TimeGrid)
	mtr := metrics.New()

	solverCfg := cfg.Solver
	params := solve.Params{
		TimeLimit:        pickDuration(flags.timeLimit, solverCfg.TimeLimit),
		NumWorkers:       solverCfg.NumWorkers,
		Seed:             solverCfg.Seed,
		TwoPassThreshold: solverCfg.TwoPassThreshold,
		TwoPassForce:     pickTwoPassForce(flags.twoPass, solverCfg.TwoPassForce),
		NoSoft:           flags.noSoft || solverCfg.NoSoft,
		RelaxTimeLimit:   solverCfg.RelaxTimeLimit,
		OnProgress: func(p cpsat.ProgressStats) {
			log.Debug("solve progress", zap.Duration("wall_time", p.WallTime),
				zap.Float64("best_objective", p.BestObjective), zap.Int("solutions_found", p.SolutionsFound))
		},
	}

	driver := solve.New(dm, idx, log)

	var solutionCache *cache.SolutionCache
	if cfg.Redis.Enabled {
		client, err := redisclient.NewRedis(cfg.Redis)
		if err != nil {
			log.Warn("solution cache disabled: redis unavailable", zap.Error(err))
			solutionCache = cache.New(nil, 0, log, false)
		} else {
			solutionCache = cache.New(client, 24*time.Hour, log, true)
		}
	} else {
		solutionCache = cache.New(nil, 0, log, false)
	}

	scenarioKey := flags.scenarioKey
	var outcome *solve.Outcome
	var prevEntry cache.Entry
	var haveIncremental bool
	if flags.incremental {
		if prev, ok := solutionCache.Get(ctx, scenarioKey); ok {
			log.Info("incremental re-solve: found cached prior solution", zap.String("scenario_key", scenarioKey))
			prevEntry, haveIncremental = prev, true
		}
	}
	if haveIncremental {
		outcome, err = driver.ResolveIncremental(ctx, prevEntry.Entries, params)
	} else {
		outcome, err = driver.Solve(ctx, params)
	}
	if err != nil && schedulerrors.KindOf(err) == schedulerrors.KindInfeasibleSolve && flags.diagnose {
		log.Warn("solve infeasible, running diagnostic relax")
		diag := relax.Diagnose(ctx, dm, idx, log, solverCfg.RelaxTimeLimit, solverCfg.NumWorkers, solverCfg.Seed)
		log.Info("diagnostic result", zap.String("summary", diag.String()))
		return schedulerrors.KindInfeasibleSolve.ExitCode()
	}
	if err != nil {
		log.Error("solve failed", zap.Error(err))
		return schedulerrors.KindOf(err).ExitCode()
	}

	for _, w := range outcome.Result.Warnings {
		log.Warn("model builder warning", zap.String("detail", w))
	}

	mtr.ObserveModelSize(outcome.Result.CP.NumVars(), outcome.Result.CP.NumConstraints())
	solutionsFound := 0
	if outcome.Status == cpsat.StatusOptimal || outcome.Status == cpsat.StatusFeasible {
		solutionsFound = 1
	}
	mtr.ObserveSolve(outcome.Status.String(), outcome.WallTime.Seconds(), solutionsFound, outcome.Solution.ObjectiveValue)

	entries := decode.Decode(outcome.Result, outcome.Solution)

	validation := validate.Run(dm, entries)
	if !validation.Feasible() {
		for _, e := range validation.SortedErrors() {
			log.Error("post-solve validation error", zap.String("detail", e))
		}
		return schedulerrors.KindInternal.ExitCode()
	}

	solutionCache.Set(ctx, scenarioKey, cache.Entry{
		ScenarioKey: scenarioKey,
		Status:      outcome.Status.String(),
		Objective:   outcome.Solution.ObjectiveValue,
		Entries:     entries,
	})

	snap := store.Snapshot{
		ScenarioKey: scenarioKey,
		Status:      outcome.Status.String(),
		Objective:   outcome.Solution.ObjectiveValue,
		Entries:     entries,
	}
	path, err := store.WriteJSON(solverCfg.ScenarioStorePath, snap)
	if err != nil {
		log.Error("write snapshot", zap.Error(err))
		return schedulerrors.KindInternal.ExitCode()
	}

	archiveVersion := 0
	if cfg.Database.Enabled {
		if db, dbErr := database.NewPostgres(cfg.Database); dbErr != nil {
			log.Warn("scenario archive disabled: postgres unavailable", zap.Error(dbErr))
		} else {
			row, archErr := store.NewScenarioArchive(db).CreateVersioned(ctx, scenarioKey, snap)
			if archErr != nil {
				log.Error("scenario archive write failed", zap.Error(archErr))
			} else {
				archiveVersion = row.Version
			}
			_ = db.Close()
		}
	}

	log.Info("solve complete",
		zap.String("status", outcome.Status.String()),
		zap.Bool("two_pass", outcome.UsedTwoPass),
		zap.Int("entries", len(entries)),
		zap.String("snapshot", path),
		zap.Int("archive_version", archiveVersion),
	)

	return 0
}

type cliFlags struct {
	inputPath   string
	scenarioKey string
	timeLimit   time.Duration
	noSoft      bool
	twoPass     string // "", "on", "off"
	incremental bool
	diagnose    bool
	weights     map[string]float64
}

func parseFlags(cfg *config.Config) cliFlags {
	var f cliFlags
	var weightsRaw string
	var twoPassOn, twoPassOff bool

	flag.StringVar(&f.inputPath, "input", "scenario.json", "path to the JSON domain model input")
	flag.StringVar(&f.scenarioKey, "scenario-key", "default", "scenario key used for caching and scenario archiving")
	flag.DurationVar(&f.timeLimit, "time-limit", 0, "override the solver time limit, e.g. 90s")
	flag.BoolVar(&f.noSoft, "no-soft", false, "set all soft-constraint weights to zero")
	flag.BoolVar(&twoPassOn, "two-pass", false, "force the adaptive two-pass solve on")
	flag.BoolVar(&twoPassOff, "no-two-pass", false, "force the adaptive two-pass solve off")
	flag.BoolVar(&f.incremental, "incremental", cfg.Solver.Incremental, "enable incremental re-solve from a cached prior solution")
	flag.StringVar(&weightsRaw, "weights", "", "per-weight override, e.g. gaps=8,workload=1")
	flag.BoolVar(&f.diagnose, "diagnose", cfg.Solver.Diagnose, "run the diagnostic relaxer on infeasibility")
	flag.Parse()

	if twoPassOn {
		f.twoPass = "on"
	} else if twoPassOff {
		f.twoPass = "off"
	}
	f.weights = parseWeights(weightsRaw)
	return f
}

var weightValidator = validator.New()

func parseWeights(raw string) map[string]float64 {
	out := map[string]float64{}
	if raw == "" {
		return out
	}
	for _, pair := range strings.Split(raw, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			continue
		}
		// Weights are non-negative objective coefficients (spec §4.5); a
		// negative CLI override would silently flip a penalty into a
		// reward, so reject it the same way a malformed float is rejected.
		if err := weightValidator.Var(v, "min=0"); err != nil {
			continue
		}
		out[strings.TrimSpace(kv[0])] = v
	}
	return out
}

func applyWeightOverrides(dm *domain.DomainModel, overrides map[string]float64) {
	w := &dm.Weights
	if v, ok := overrides["gaps"]; ok {
		w.Gaps = v
	}
	if v, ok := overrides["workload"]; ok {
		w.Workload = v
	}
	if v, ok := overrides["day_wishes"]; ok {
		w.DayWishes = v
	}
	if v, ok := overrides["compact"]; ok {
		w.Compact = v
	}
	if v, ok := overrides["double_lessons"]; ok {
		w.DoubleLessons = v
	}
	if v, ok := overrides["subject_spread"]; ok {
		w.SubjectSpread = v
	}
	if v, ok := overrides["deputat_dev"]; ok {
		w.DeputatDev = v
	}
}

func pickDuration(flagVal, cfgVal time.Duration) time.Duration {
	if flagVal > 0 {
		return flagVal
	}
	return cfgVal
}

func pickTwoPassForce(flagVal, cfgVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return cfgVal
}
