package synth

/*------------------------------------------------------------------
 *
 * Purpose:	Incremental repair: grow a window of cycles around the
 *		first failure, enumerate minimal repair candidates
 *		inside the window and validate each one by resimulating
 *		the full testbench.
 *
 * Description:	The window is (past_k, future_k) over the cycle range
 *		[fail_at - min(past_k, fail_at), fail_at + future_k].
 *		Candidates that fix the window but break a later cycle
 *		tell us how far the future side has to grow.  Every
 *		iteration either finds a correct solution, moves past_k
 *		toward fail_at, or moves future_k strictly outward, so
 *		the loop terminates.
 *
 *------------------------------------------------------------------*/

import "fmt"

type IncrementalConf struct {
	failAt StepInt
	// verbatim CLI spelling is pask_k_step_size, see the flag setup
	pastKStepSize       StepInt
	maxRepairWindowSize StepInt
	maxSolutions        int
	maxIncorrectPerSize int // 0 means unlimited
}

type IncrementalRepair struct {
	rctx  *RepairContext
	conf  *IncrementalConf
	cache *snapshotCache
}

func new_incremental_repair(rctx *RepairContext, conf *IncrementalConf, snapshots map[StepInt]SnapshotId) *IncrementalRepair {
	return &IncrementalRepair{
		rctx:  rctx,
		conf:  conf,
		cache: new_snapshot_cache(rctx.sim, rctx.tb, snapshots),
	}
}

// snapshotCache maps cycle index to a simulator snapshot so any
// intermediate state can be reconstructed on demand.  Its lifetime
// spans one repair run.
type snapshotCache struct {
	sim       *Interpreter
	tb        *Testbench
	snapshots map[StepInt]SnapshotId
}

func new_snapshot_cache(sim *Interpreter, tb *Testbench, snapshots map[StepInt]SnapshotId) *snapshotCache {
	if _, ok := snapshots[0]; !ok {
		panic("snapshot for cycle 0 is missing")
	}
	return &snapshotCache{sim: sim, tb: tb, snapshots: snapshots}
}

/*------------------------------------------------------------------
 *
 * Function:	update_sim_state_to_step
 *
 * Purpose:	Bring the simulator to the given cycle: restore the
 *		nearest earlier snapshot and step the testbench forward
 *		without checking outputs, then cache a snapshot of the
 *		reached cycle.
 *
 *------------------------------------------------------------------*/

func (c *snapshotCache) update_sim_state_to_step(step StepInt) {
	if id, ok := c.snapshots[step]; ok {
		c.sim.restore_snapshot(id)
		return
	}

	// find the latest snapshot before the requested cycle; cycle 0 is
	// always present
	var bestStep StepInt
	var best SnapshotId
	var found = false
	for s, id := range c.snapshots {
		if s < step && (!found || s > bestStep) {
			bestStep, best, found = s, id, true
		}
	}
	if !found {
		panic(fmt.Sprintf("no snapshot before cycle %d", step))
	}
	c.sim.restore_snapshot(best)

	// run the testbench in step-only mode: no output checks, no early
	// exit, stop just before the requested cycle
	var conf = RunConfig{start: bestStep, stop: stop_at_step(step - 1)}
	c.tb.run(c.sim, &conf)

	c.snapshots[step] = c.sim.take_snapshot()
}

func (r *IncrementalRepair) run() (*RepairResult, error) {
	var rctx = r.rctx
	var failAt = r.conf.failAt
	var pastK, futureK StepInt = 0, 0
	var correct []*RepairAssignment

	for pastK+futureK <= r.conf.maxRepairWindowSize {
		var start = failAt - min(pastK, failAt)
		var end = failAt + futureK
		if end > rctx.tb.step_count()-1 {
			end = rctx.tb.step_count() - 1
		}
		logger.Debugf("repair window: past_k=%d future_k=%d -> cycles [%d, %d]", pastK, futureK, start, end)

		// bring the simulator to the window start and make sure the
		// failure still reproduces from there
		r.cache.update_sim_state_to_step(start)
		rctx.synthVars.clear_in_sim(rctx.sim)
		var preState = rctx.sim.take_snapshot()
		var check = rctx.tb.run(rctx.sim, &RunConfig{start: start, stop: stop_at_first_fail()})
		if check.firstFailAt == nil || *check.firstFailAt != failAt {
			panic(fmt.Sprintf("failure no longer reproduces at cycle %d from cycle %d", failAt, start))
		}
		rctx.sim.restore_snapshot(preState)

		if err := rctx.smt.push(1); err != nil {
			return nil, err
		}

		var windowEnd = end
		var repair, numChanges, enc, err = generate_minimal_repair(rctx, start, &windowEnd)
		if err != nil {
			return nil, err
		}

		var failures []StepInt
		if repair != nil {
			// freeze the change count for this scope so every further
			// solution is also minimal
			var ccTerm string
			ccTerm, err = enc.get_at(rctx.smt, rctx.changeCountRef, start)
			if err != nil {
				return nil, err
			}
			var ccLit = bv_from_u64(uint64(numChanges), changeCountWidth).to_smt_bin()
			if err = rctx.smt.assert(fmt.Sprintf("(= %s %s)", ccTerm, ccLit)); err != nil {
				return nil, err
			}

			correct, failures, err = r.enumerate(enc, start, repair)
			if err != nil {
				return nil, err
			}
		}

		if err := rctx.smt.pop(1); err != nil {
			return nil, err
		}

		if len(correct) > 0 {
			return &RepairResult{
				status:    RepairSuccess,
				solutions: correct,
				stats: Stats{
					finalPastK:   pastK,
					finalFutureK: futureK,
					solverTime:   uint64(rctx.smt.solverTime.Nanoseconds()),
				},
			}, nil
		}

		var oldPastK, oldFutureK = pastK, futureK
		pastK, futureK = grow_window(pastK, futureK, failAt, r.conf.pastKStepSize, failures)
		if pastK == oldPastK && futureK == oldFutureK {
			logger.Debugf("window cannot grow any further")
			break
		}
	}

	return &RepairResult{
		status: RepairNoRepair,
		stats: Stats{
			finalPastK:   pastK,
			finalFutureK: futureK,
			solverTime:   uint64(rctx.smt.solverTime.Nanoseconds()),
		},
	}, nil
}

/*------------------------------------------------------------------
 *
 * Function:	enumerate
 *
 * Purpose:	Walk all minimal candidates in the current window:
 *		validate each by resimulation from cycle 0, block its
 *		change-vector and ask the solver for another one.
 *
 *------------------------------------------------------------------*/

func (r *IncrementalRepair) enumerate(enc *UnrollSmtEncoding, start StepInt, first *RepairAssignment) ([]*RepairAssignment, []StepInt, error) {
	var rctx = r.rctx
	var correct []*RepairAssignment
	var failures []StepInt
	var candidate = first

	for {
		// try out the candidate on the full testbench
		r.cache.update_sim_state_to_step(0)
		rctx.synthVars.apply_to_sim(rctx.sim, candidate)
		var res = rctx.tb.run(rctx.sim, &RunConfig{start: 0, stop: stop_at_first_fail()})
		if res.is_success() {
			correct = append(correct, candidate)
			logger.Debugf("found a correct repair (%d so far)", len(correct))
			if len(correct) >= r.conf.maxSolutions {
				return correct, failures, nil
			}
		} else {
			failures = append(failures, *res.firstFailAt)
			logger.Debugf("candidate repairs the window but fails at cycle %d", *res.firstFailAt)
			if r.conf.maxIncorrectPerSize > 0 && len(failures) >= r.conf.maxIncorrectPerSize {
				return correct, failures, nil
			}
		}

		if err := rctx.synthVars.block_assignment(rctx.smt, enc, candidate, start); err != nil {
			return nil, nil, err
		}
		var resp, err = rctx.smt.check_sat()
		if err != nil {
			return nil, nil, err
		}
		if resp != respSat {
			// unknown terminates enumeration like unsat
			return correct, failures, nil
		}
		candidate, err = rctx.synthVars.read_assignment(rctx.smt, enc, start)
		if err != nil {
			return nil, nil, err
		}
	}
}

/*------------------------------------------------------------------
 *
 * Function:	grow_window
 *
 * Purpose:	Decide the next window.  Failures past the window tell
 *		us how far the future side must reach; otherwise the
 *		past side grows toward the failing cycle.
 *
 *------------------------------------------------------------------*/

func grow_window(pastK, futureK, failAt, stepSize StepInt, failures []StepInt) (StepInt, StepInt) {
	if len(failures) == 0 {
		return min(failAt, pastK+stepSize), futureK
	}
	var maxFuture StepInt
	var found = false
	for _, f := range failures {
		if f > failAt+futureK && (!found || f > maxFuture) {
			maxFuture, found = f, true
		}
	}
	if found {
		return pastK, maxFuture - failAt
	}
	return min(failAt, pastK+stepSize), futureK
}
