package synth

/*------------------------------------------------------------------
 *
 * Purpose:	Exhaustive exploration of repair window sizes.
 *
 * Description:	This is not a production synthesizer.  We sweep every
 *		(past_k, future_k) pair within the size cap and record
 *		how long the minimal candidate and the first correct
 *		repair take, one JSON line per window on stdout.  Every
 *		window gets a fresh solver process so the timings do
 *		not contaminate each other.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/json"
	"fmt"
	"time"
)

type WindowingConf struct {
	cmd                 SmtSolverCmd
	dumpSmt             string
	failAt              StepInt
	maxRepairWindowSize StepInt
}

type windowStats struct {
	WindowSize StepInt `json:"window_size"`
	PastK      StepInt `json:"past_k"`
	FutureK    StepInt `json:"future_k"`
	// how long it took to find the minimal repair candidate
	MinimalRepairCandidateNs int64 `json:"minimal_repair_candidate_ns"`
	// how many candidates were tried before the first correct repair
	CorrectRepairTries int `json:"correct_repair_tries"`
	// time until the first correct repair, null if none was found
	CorrectRepairNs *int64 `json:"correct_repair_ns"`
}

type Windowing struct {
	rctx  *RepairContext
	conf  *WindowingConf
	cache *snapshotCache
}

func new_windowing(rctx *RepairContext, conf *WindowingConf, snapshots map[StepInt]SnapshotId) *Windowing {
	return &Windowing{
		rctx:  rctx,
		conf:  conf,
		cache: new_snapshot_cache(rctx.sim, rctx.tb, snapshots),
	}
}

func (w *Windowing) run() (*RepairResult, error) {
	var rctx = w.rctx
	var result = &RepairResult{status: RepairNoRepair}
	var solverTime uint64

	for windowSize := StepInt(1); windowSize <= w.conf.maxRepairWindowSize; windowSize++ {
		for offset := StepInt(0); offset < windowSize; offset++ {
			var pastK = windowSize - 1 - offset
			var futureK = windowSize - 1 - pastK

			// skip windows that do not fit the trace
			if pastK > w.conf.failAt {
				continue
			}
			if w.conf.failAt+futureK > rctx.tb.step_count()-1 {
				continue
			}

			var stats, solutions, err = w.run_window(pastK, futureK)
			if err != nil {
				return nil, err
			}
			solverTime += uint64(rctx.smt.solverTime.Nanoseconds())

			var line, jsonErr = json.Marshal(stats)
			if jsonErr != nil {
				return nil, jsonErr
			}
			fmt.Println(string(line))

			if len(solutions) > 0 && result.status != RepairSuccess {
				result.status = RepairSuccess
				result.solutions = solutions
				result.stats.finalPastK = pastK
				result.stats.finalFutureK = futureK
			}
		}
	}
	result.stats.solverTime = solverTime
	return result, nil
}

/*------------------------------------------------------------------
 *
 * Function:	run_window
 *
 * Purpose:	Measure one window: fresh solver session, minimal
 *		candidate, then the same validate/block enumeration the
 *		incremental strategy uses.
 *
 *------------------------------------------------------------------*/

func (w *Windowing) run_window(pastK, futureK StepInt) (*windowStats, []*RepairAssignment, error) {
	var rctx = w.rctx
	var failAt = w.conf.failAt
	var start = failAt - min(pastK, failAt)
	var end = failAt + futureK

	var stats = &windowStats{
		WindowSize: pastK + futureK + 1,
		PastK:      pastK,
		FutureK:    futureK,
	}

	// start a new solver to isolate the timings
	if rctx.smt != nil {
		rctx.smt.close()
	}
	var smt, err = create_smt_ctx(w.conf.cmd, w.conf.dumpSmt)
	if err != nil {
		return nil, nil, err
	}
	rctx.smt = smt

	w.cache.update_sim_state_to_step(start)
	rctx.synthVars.clear_in_sim(rctx.sim)

	var windowStart = time.Now()
	repair, numChanges, enc, err := generate_minimal_repair(rctx, start, &end)
	stats.MinimalRepairCandidateNs = time.Since(windowStart).Nanoseconds()
	if err != nil {
		return nil, nil, err
	}
	if repair == nil {
		return stats, nil, nil
	}

	// freeze the change count and enumerate
	ccTerm, err := enc.get_at(rctx.smt, rctx.changeCountRef, start)
	if err != nil {
		return nil, nil, err
	}
	var ccLit = bv_from_u64(uint64(numChanges), changeCountWidth).to_smt_bin()
	if err := rctx.smt.assert(fmt.Sprintf("(= %s %s)", ccTerm, ccLit)); err != nil {
		return nil, nil, err
	}

	var candidate = repair
	for {
		stats.CorrectRepairTries++
		w.cache.update_sim_state_to_step(0)
		rctx.synthVars.apply_to_sim(rctx.sim, candidate)
		var res = rctx.tb.run(rctx.sim, &RunConfig{start: 0, stop: stop_at_first_fail()})
		if res.is_success() {
			var ns = time.Since(windowStart).Nanoseconds()
			stats.CorrectRepairNs = &ns
			return stats, []*RepairAssignment{candidate}, nil
		}

		if err := rctx.synthVars.block_assignment(rctx.smt, enc, candidate, start); err != nil {
			return nil, nil, err
		}
		var resp, checkErr = rctx.smt.check_sat()
		if checkErr != nil {
			return nil, nil, checkErr
		}
		if resp != respSat {
			// no further candidates in this window
			return stats, nil, nil
		}
		candidate, err = rctx.synthVars.read_assignment(rctx.smt, enc, start)
		if err != nil {
			return nil, nil, err
		}
	}
}
