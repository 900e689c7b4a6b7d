package synth

/*------------------------------------------------------------------
 *
 * Purpose:	Single-shot repair: unroll over the whole trace,
 *		assert every testbench constraint, minimize the number
 *		of changes.
 *
 *------------------------------------------------------------------*/

import "time"

func basic_repair(rctx *RepairContext) (*RepairResult, error) {
	var repair, _, _, err = generate_minimal_repair(rctx, 0, nil)
	if err != nil {
		return nil, err
	}
	var result = &RepairResult{status: RepairNoRepair}
	if repair != nil {
		result.status = RepairSuccess
		result.solutions = []*RepairAssignment{repair}
	}
	result.stats.solverTime = uint64(rctx.smt.solverTime.Nanoseconds())
	return result, nil
}

/*------------------------------------------------------------------
 *
 * Function:	generate_minimal_repair
 *
 * Purpose:	The inner routine shared by all strategies: encode the
 *		cycle range [start, end], constrain the starting state
 *		to the simulator, check for any repair and minimize the
 *		change count.  Returns nil when no repair exists in the
 *		window.
 *
 *		On success the minimizing assumption has already been
 *		retracted; the caller re-asserts the change count when
 *		it wants to enumerate more solutions.
 *
 *------------------------------------------------------------------*/

func generate_minimal_repair(rctx *RepairContext, startStep StepInt, endStepOption *StepInt) (*RepairAssignment, uint32, *UnrollSmtEncoding, error) {
	var endStep = rctx.tb.step_count() - 1
	if endStepOption != nil {
		endStep = *endStepOption
	}

	// start encoding
	var enc = new_unroll_smt_encoding(rctx.ctx, rctx.sys)
	if err := enc.define_header(rctx.smt); err != nil {
		return nil, 0, nil, err
	}
	if err := enc.init_at(rctx.smt, startStep); err != nil {
		return nil, 0, nil, err
	}

	// constrain starting state to that from the simulator
	if err := constrain_starting_state(rctx, enc, startStep); err != nil {
		return nil, 0, nil, err
	}

	var startUnroll = time.Now()
	for step := startStep; step < endStep; step++ {
		if err := enc.unroll(rctx.smt); err != nil {
			return nil, 0, nil, err
		}
	}
	logger.Debugf("took %s to unroll", time.Since(startUnroll))

	var startApply = time.Now()
	if err := rctx.tb.apply_constraints(rctx.smt, enc, startStep, endStep); err != nil {
		return nil, 0, nil, err
	}
	logger.Debugf("took %s to apply constraints", time.Since(startApply))

	// check to see if a solution exists
	var startCheck = time.Now()
	var r, err = rctx.smt.check_sat()
	if err != nil {
		return nil, 0, nil, err
	}
	logger.Debugf("check-sat took %s", time.Since(startCheck))
	if r != respSat {
		// cannot find a repair
		return nil, 0, nil, nil
	}

	// find a minimal repair
	minNumChanges, err := minimize_changes(rctx.smt, enc, rctx.changeCountRef, startStep, len(rctx.synthVars.change))
	if err != nil {
		return nil, 0, nil, err
	}
	logger.Debugf("found a minimal solution with %d changes", minNumChanges)

	solution, err := rctx.synthVars.read_assignment(rctx.smt, enc, startStep)
	if err != nil {
		return nil, 0, nil, err
	}
	if err := rctx.smt.check_assuming_end(); err != nil {
		return nil, 0, nil, err
	}
	return solution, minNumChanges, enc, nil
}
