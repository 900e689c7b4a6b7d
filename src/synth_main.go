package synth

/*------------------------------------------------------------------
 *
 * Purpose:	Main program for the repair synthesizer.
 *
 *		Loads the design and the testbench, runs the concrete
 *		simulation once, and if a bug shows up hands over to the
 *		selected repair strategy.  The verdict is a single JSON
 *		object on stdout behind the "== RESULT ==" needle.
 *
 * Usage:	synth --design adder.btor --testbench adder_tb.csv \
 *			--solver yices2 --init zero --incremental
 *
 *------------------------------------------------------------------*/

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/spf13/pflag"
)

type synthArgs struct {
	design                string
	testbench             string
	verbose               bool
	traceSim              bool
	incremental           bool
	windowing             bool
	solver                string
	init                  string
	pastKStepSize         uint64
	maxRepairWindowSize   uint64
	maxIncorrectPerWindow int
	smtDump               string
}

func SynthMain() {
	if err := synth_main(os.Args[1:]); err != nil {
		logger.Fatal(err)
	}
}

func parse_synth_args(argv []string) (*synthArgs, error) {
	var args synthArgs
	var flags = pflag.NewFlagSet("synth", pflag.ExitOnError)
	flags.StringVar(&args.design, "design", "", "The design to be repaired with the template instantiated in btor format.")
	flags.StringVar(&args.testbench, "testbench", "", "The testbench in CSV format.")
	flags.BoolVar(&args.verbose, "verbose", false, "Output debug messages.")
	flags.BoolVar(&args.traceSim, "trace-sim", false, "Trace signals during simulation.")
	flags.BoolVar(&args.incremental, "incremental", false, "Use the incremental instead of the basic synthesizer.")
	flags.BoolVar(&args.windowing, "windowing", false, "Run an exhaustive exploration of window sizes.")
	flags.StringVar(&args.solver, "solver", "bitwuzla", "The SMT solver to use.")
	flags.StringVar(&args.init, "init", "zero", "Initialization strategy: zero, random or any.")
	// the flag spelling is kept for compatibility with existing run scripts
	flags.Uint64Var(&args.pastKStepSize, "pask_k_step_size", 2, "Step size for past-k in the incremental solver.")
	flags.Uint64Var(&args.maxRepairWindowSize, "max_repair_window_size", 32, "The maximum repair window size before the incremental solver gives up.")
	flags.IntVar(&args.maxIncorrectPerWindow, "max_incorrect_solutions_per_window_size", 0, "The maximum number of incorrect solutions to try before enlarging the repair window.")
	flags.StringVar(&args.smtDump, "smt-dump", "", "File to write all SMT commands to.")
	if err := flags.Parse(argv); err != nil {
		return nil, err
	}
	if args.design == "" || args.testbench == "" {
		return nil, fmt.Errorf("--design and --testbench are required")
	}
	if args.incremental && args.windowing {
		return nil, fmt.Errorf("cannot do incremental repair + windowing exploration at the same time")
	}
	return &args, nil
}

func synth_main(argv []string) error {
	var args, err = parse_synth_args(argv)
	if err != nil {
		return err
	}
	set_verbose(args.verbose)

	// load system
	var ctx = new_context()
	sys, err := parse_btor2_file(ctx, args.design)
	if err != nil {
		return fmt.Errorf("failed to load btor2 file %q: %w", args.design, err)
	}

	// simplify system
	replace_anonymous_inputs_with_zero(ctx, sys)
	simplify_expressions(ctx, sys)

	// analyze system
	var synthVars = repair_vars_from_sys(ctx, sys)
	logger.Debugf("number of change vars: %d", len(synthVars.change))
	logger.Debugf("number of free vars:   %d", len(synthVars.free))

	// add a change count to the system
	var changeCountRef = add_change_count(ctx, sys, synthVars.change)

	if args.verbose {
		logger.Debugf("loaded: %s", sys.name)
		fmt.Fprint(os.Stderr, sys.serialize_to_str(ctx))
	}

	var sim = new_interpreter(ctx, sys)

	// load testbench
	tb, err := load_testbench(ctx, sys, args.testbench, args.traceSim)
	if err != nil {
		return fmt.Errorf("failed to load testbench: %w", err)
	}
	if !tb.has_output_checks() {
		logger.Warn("the testbench checks no output of the design, there is no way to verify a repair")
		print_cannot_repair()
		return nil
	}

	// init free variables
	switch args.init {
	case "zero":
		sim.init(init_zero())
		tb.define_inputs(init_zero())
	case "random":
		sim.init(init_random(0))
		tb.define_inputs(init_random(1))
	case "any":
		logger.Warn("any init is not actually supported! Random init will be performed instead!")
		sim.init(init_random(0))
		tb.define_inputs(init_random(1))
	default:
		return fmt.Errorf("unknown init strategy %q", args.init)
	}

	// set all synthesis variables to zero
	synthVars.clear_in_sim(sim)

	// remember the starting state
	var startState = sim.take_snapshot()

	// run testbench once to see if we can detect a bug
	var startFirstTest = time.Now()
	var res = tb.run(sim, &RunConfig{start: 0, stop: stop_at_first_fail()})
	if args.verbose {
		var steps = tb.step_count()
		if res.firstFailAt != nil {
			steps = *res.firstFailAt
		}
		logger.Debugf("executed %d steps in %s", steps, time.Since(startFirstTest))
	}

	// early exit in case we do not see any bug (there could still be a
	// bug in the original design that was masked by the template)
	if res.is_success() {
		logger.Debug("design seems to work")
		print_no_repair()
		return nil
	}

	// early exit if there is a bug, but no synthesis variables to
	// change the design
	if len(synthVars.change) == 0 {
		logger.Debug("no changes possible")
		print_cannot_repair()
		return nil
	}

	var failAt = *res.firstFailAt

	var errorSnapshot SnapshotId
	var haveErrorSnapshot = false
	if args.incremental || args.windowing {
		errorSnapshot = sim.take_snapshot()
		haveErrorSnapshot = true
	}

	// reset the simulator state
	sim.restore_snapshot(startState)

	// start solver
	solverCmd, err := solver_by_name(args.solver)
	if err != nil {
		return err
	}
	smt, err := create_smt_ctx(solverCmd, args.smtDump)
	if err != nil {
		return fmt.Errorf("failed to start SMT solver: %w", err)
	}

	var rctx = &RepairContext{
		ctx:            ctx,
		sys:            sys,
		sim:            sim,
		synthVars:      synthVars,
		tb:             tb,
		changeCountRef: changeCountRef,
		smt:            smt,
		conf: RepairConfig{
			solver:   solverCmd,
			dumpFile: args.smtDump,
			verbose:  args.verbose,
		},
	}
	// the windowing study swaps sessions, close whichever is current
	defer func() { rctx.smt.close() }()

	// quick conservative filter check before going to the real
	// synthesizer
	maybe, err := can_be_repaired_from_arbitrary_state(rctx, failAt)
	if err != nil {
		return fmt.Errorf("failed to run filter: %w", err)
	}
	if !maybe {
		logger.Debug("cannot be repaired, even when we start from an arbitrary state")
		print_cannot_repair()
		return nil
	}

	// call to the synthesizer
	var startSynth = time.Now()
	var result *RepairResult
	switch {
	case args.incremental:
		var conf = &IncrementalConf{
			failAt:              failAt,
			pastKStepSize:       StepInt(args.pastKStepSize),
			maxRepairWindowSize: StepInt(args.maxRepairWindowSize),
			maxSolutions:        1,
			maxIncorrectPerSize: args.maxIncorrectPerWindow,
		}
		var snapshots = map[StepInt]SnapshotId{0: startState}
		if haveErrorSnapshot {
			snapshots[failAt] = errorSnapshot
		}
		result, err = new_incremental_repair(rctx, conf, snapshots).run()
	case args.windowing:
		var conf = &WindowingConf{
			cmd:                 solverCmd,
			dumpSmt:             args.smtDump,
			failAt:              failAt,
			maxRepairWindowSize: StepInt(args.maxRepairWindowSize),
		}
		var snapshots = map[StepInt]SnapshotId{0: startState}
		if haveErrorSnapshot {
			snapshots[failAt] = errorSnapshot
		}
		result, err = new_windowing(rctx, conf, snapshots).run()
	default:
		result, err = basic_repair(rctx)
	}
	if err != nil {
		return err
	}
	logger.Debugf("synthesizer took %s", time.Since(startSynth))

	print_result(result, synthVars, ctx)
	return nil
}

/*------------------------------------------------------------------
 *
 * Function:	print_result
 *
 * Purpose:	Emit the verdict JSON behind a parseable needle.
 *
 *------------------------------------------------------------------*/

type solutionJSON struct {
	Assignment map[string]*big.Int `json:"assignment"`
}

type resultJSON struct {
	Status     string         `json:"status"`
	SolverTime uint64         `json:"solver-time"`
	PastK      StepInt        `json:"past-k"`
	FutureK    StepInt        `json:"future-k"`
	Solutions  []solutionJSON `json:"solutions"`
}

func print_result(result *RepairResult, synthVars *RepairVars, ctx *Context) {
	var solutions = make([]solutionJSON, 0, len(result.solutions))
	for _, aa := range result.solutions {
		solutions = append(solutions, solutionJSON{Assignment: synthVars.to_json(ctx, aa)})
	}
	var res = resultJSON{
		Status:     result.status.String(),
		SolverTime: result.stats.solverTime,
		PastK:      result.stats.finalPastK,
		FutureK:    result.stats.finalFutureK,
		Solutions:  solutions,
	}
	var j, err = json.Marshal(res)
	if err != nil {
		panic(err)
	}
	fmt.Println("== RESULT ==") // needle to find the JSON output
	fmt.Println(string(j))
}

func print_cannot_repair() {
	print_result(&RepairResult{status: RepairCannotRepair, solutions: nil}, &RepairVars{}, nil)
}

func print_no_repair() {
	print_result(&RepairResult{status: RepairNoRepair, solutions: nil}, &RepairVars{}, nil)
}
