package synth

/*------------------------------------------------------------------
 *
 * Purpose:	Quick check with no unrolling which can tell if there
 *		is no way to repair the design with the provided repair
 *		variables.
 *
 * Description:	The failing cycle is encoded in isolation: if no
 *		state and repair assignment at all satisfies the
 *		expected outputs of that single cycle, no amount of
 *		unrolling will either.  `unsat` is therefore a
 *		definitive cannot-repair; `sat` and `unknown` mean
 *		maybe, proceed to the real synthesizer.
 *
 *------------------------------------------------------------------*/

func can_be_repaired_from_arbitrary_state(rctx *RepairContext, failAt StepInt) (bool, error) {
	// fresh scope so everything is reverted afterwards
	if err := rctx.smt.push(1); err != nil {
		return false, err
	}

	var enc = new_unroll_smt_encoding(rctx.ctx, rctx.sys)
	if err := enc.define_header(rctx.smt); err != nil {
		return false, err
	}
	if err := enc.init_at(rctx.smt, failAt); err != nil {
		return false, err
	}
	if err := rctx.tb.apply_constraints(rctx.smt, enc, failAt, failAt); err != nil {
		return false, err
	}

	var r, err = rctx.smt.check_sat()
	if err != nil {
		return false, err
	}
	if err := rctx.smt.pop(1); err != nil {
		return false, err
	}

	// conservative: only a definitive unsat rules out a repair
	return r != respUnsat, nil
}
