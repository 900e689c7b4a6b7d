package synth

/*------------------------------------------------------------------
 *
 * Purpose:	Repair-variable registry and change-count instrument.
 *
 * Description:	Synthesis variables are recognized purely by naming
 *		convention, synchronized with the template frontend:
 *		`__synth_change_` marks a one-bit change toggle,
 *		`__synth_` (without `change_`) marks a free variable.
 *		The prefixes overlap, so the change check must come
 *		first.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"math/big"
	"strings"
)

const synthVarPrefix = "__synth_"
const synthChangePrefix = "__synth_change_"

type freeVar struct {
	ref   ExprRef
	width uint32
}

// RepairVars is built once from the system and read-only thereafter.
type RepairVars struct {
	change []ExprRef // phi
	free   []freeVar // alpha
	member map[ExprRef]bool
}

// last_name_segment strips the module instance path: classification
// looks at the part after the last dot.
func last_name_segment(name string) string {
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func repair_vars_from_sys(ctx *Context, sys *TransitionSystem) *RepairVars {
	var out = &RepairVars{member: make(map[ExprRef]bool)}
	for ii := range sys.states {
		var sym = sys.states[ii].symbol
		var name = last_name_segment(ctx.symbol_name(sym))
		switch {
		case strings.HasPrefix(name, synthChangePrefix):
			if ctx.width(sym) != 1 {
				panic(fmt.Sprintf("change variable %q must be 1-bit, got %d bits",
					ctx.symbol_name(sym), ctx.width(sym)))
			}
			out.change = append(out.change, sym)
			out.member[sym] = true
		case strings.HasPrefix(name, synthVarPrefix):
			out.free = append(out.free, freeVar{ref: sym, width: ctx.width(sym)})
			out.member[sym] = true
		}
	}
	return out
}

func (rv *RepairVars) is_repair_var(r ExprRef) bool {
	return rv.member[r]
}

// RepairAssignment pairs concrete values with the registry, aligned
// index-wise with change and free.
type RepairAssignment struct {
	change []bool
	free   []*big.Int
}

func (rv *RepairVars) apply_to_sim(sim *Interpreter, a *RepairAssignment) {
	for ii, sym := range rv.change {
		var v uint64 = 0
		if a.change[ii] {
			v = 1
		}
		sim.set(sym, bv_from_u64(v, 1))
	}
	for ii, fv := range rv.free {
		sim.set(fv.ref, bv_from_big(a.free[ii], fv.width))
	}
}

// clear_in_sim establishes the "no change" baseline.
func (rv *RepairVars) clear_in_sim(sim *Interpreter) {
	for _, sym := range rv.change {
		sim.set(sym, bv_zero(1))
	}
	for _, fv := range rv.free {
		sim.set(fv.ref, bv_zero(fv.width))
	}
}

/*------------------------------------------------------------------
 *
 * Function:	read_assignment
 *
 * Purpose:	Read the value of every registered variable from the
 *		solver model.  Repair variables are state-invariant, so
 *		any cycle of the encoding works.
 *
 *------------------------------------------------------------------*/

func (rv *RepairVars) read_assignment(smt *smtSession, enc *UnrollSmtEncoding, step StepInt) (*RepairAssignment, error) {
	var out = &RepairAssignment{}
	for _, sym := range rv.change {
		var value, err = rv.read_scalar(smt, enc, sym, step)
		if err != nil {
			return nil, err
		}
		out.change = append(out.change, value.Sign() != 0)
	}
	for _, fv := range rv.free {
		var value, err = rv.read_scalar(smt, enc, fv.ref, step)
		if err != nil {
			return nil, err
		}
		out.free = append(out.free, value)
	}
	return out, nil
}

func (rv *RepairVars) read_scalar(smt *smtSession, enc *UnrollSmtEncoding, sym ExprRef, step StepInt) (*big.Int, error) {
	if enc.ctx.is_array(sym) {
		panic(fmt.Sprintf("array-valued repair variable %q is not supported", enc.ctx.symbol_name(sym)))
	}
	var term, err = enc.get_at(smt, sym, step)
	if err != nil {
		return nil, err
	}
	raw, err := smt.get_value(term)
	if err != nil {
		return nil, err
	}
	value, err := parse_smt_value(raw)
	if err != nil {
		return nil, err
	}
	return value.to_big(), nil
}

/*------------------------------------------------------------------
 *
 * Function:	block_assignment
 *
 * Purpose:	Forbid one change-vector so that enumeration makes
 *		progress.  Only change variables are blocked; free
 *		variables may take any value consistent with further
 *		solutions.
 *
 *------------------------------------------------------------------*/

func (rv *RepairVars) block_assignment(smt *smtSession, enc *UnrollSmtEncoding, a *RepairAssignment, step StepInt) error {
	var lits = make([]string, 0, len(rv.change))
	for ii, sym := range rv.change {
		var term, err = enc.get_at(smt, sym, step)
		if err != nil {
			return err
		}
		var value = "false"
		if a.change[ii] {
			value = "true"
		}
		lits = append(lits, fmt.Sprintf("(= %s %s)", term, value))
	}
	if len(lits) == 0 {
		return nil
	}
	var conj = lits[0]
	if len(lits) > 1 {
		conj = fmt.Sprintf("(and %s)", strings.Join(lits, " "))
	}
	return smt.assert(fmt.Sprintf("(not %s)", conj))
}

// to_json flattens an assignment for the verdict output.  Booleans
// become 0/1, free values stay arbitrary precision.
func (rv *RepairVars) to_json(ctx *Context, a *RepairAssignment) map[string]*big.Int {
	var out = make(map[string]*big.Int, len(rv.change)+len(rv.free))
	for ii, sym := range rv.change {
		var v = big.NewInt(0)
		if a.change[ii] {
			v = big.NewInt(1)
		}
		out[ctx.symbol_name(sym)] = v
	}
	for ii, fv := range rv.free {
		out[ctx.symbol_name(fv.ref)] = a.free[ii]
	}
	return out
}

/*------------------------------------------------------------------
 *
 * Function:	add_change_count
 *
 * Purpose:	Attach the __change_count output: the 16-bit sum of
 *		the zero-extended change toggles.  Minimization asks
 *		the solver for solutions with exactly n changes.
 *
 *------------------------------------------------------------------*/

const changeCountWidth = 16
const changeCountName = "__change_count"

func add_change_count(ctx *Context, sys *TransitionSystem, change []ExprRef) ExprRef {
	if len(change) > 65535 {
		panic(fmt.Sprintf("template has %d change sites, the change count only supports 65535", len(change)))
	}
	var sum ExprRef
	if len(change) == 0 {
		sum = ctx.zero(changeCountWidth)
	} else {
		sum = ctx.zext(change[0], changeCountWidth-1)
		for _, c := range change[1:] {
			sum = ctx.add(sum, ctx.zext(c, changeCountWidth-1))
		}
	}
	sys.add_output(changeCountName, sum)
	return sum
}

/*------------------------------------------------------------------
 *
 * Function:	minimize_changes
 *
 * Purpose:	Find the smallest number of asserted change bits that
 *		still satisfies the constraint set.  Assumes the
 *		current constraints are satisfiable.  On return the
 *		winning assumption is still active so the model can be
 *		read; the caller ends it with check_assuming_end.
 *
 *------------------------------------------------------------------*/

func minimize_changes(smt *smtSession, enc *UnrollSmtEncoding, changeCountRef ExprRef, step StepInt, numChange int) (uint32, error) {
	for n := uint32(1); ; n++ {
		var term, err = enc.get_at(smt, changeCountRef, step)
		if err != nil {
			return 0, err
		}
		var lit = fmt.Sprintf("(= %s %s)", term, bv_from_u64(uint64(n), changeCountWidth).to_smt_bin())
		resp, err := smt.check_sat_assuming(lit)
		if err != nil {
			return 0, err
		}
		switch resp {
		case respSat:
			return n, nil
		case respUnknown:
			// the constraints were sat without the assumption, an
			// unknown here leaves minimization meaningless
			panic("solver returned unknown during change count minimization")
		case respUnsat:
			if err := smt.check_assuming_end(); err != nil {
				return 0, err
			}
		}
		if int(n) > numChange {
			panic("change count minimization did not converge")
		}
	}
}

/*
 * Shared types of the repair strategies.
 */

type RepairStatus int

const (
	RepairCannotRepair RepairStatus = iota
	RepairNoRepair
	RepairSuccess
)

func (s RepairStatus) String() string {
	switch s {
	case RepairCannotRepair:
		return "cannot-repair"
	case RepairNoRepair:
		return "no-repair"
	default:
		return "success"
	}
}

type Stats struct {
	finalPastK   StepInt
	finalFutureK StepInt
	solverTime   uint64 // ns
}

type RepairResult struct {
	status    RepairStatus
	stats     Stats
	solutions []*RepairAssignment
}

type RepairConfig struct {
	solver   SmtSolverCmd
	dumpFile string
	verbose  bool
}

// RepairContext bundles everything a repair strategy needs.  The
// simulator and the solver session are exclusively owned by the
// running strategy.
type RepairContext struct {
	ctx            *Context
	sys            *TransitionSystem
	sim            *Interpreter
	synthVars      *RepairVars
	tb             *Testbench
	changeCountRef ExprRef
	smt            *smtSession
	conf           RepairConfig
}

/*------------------------------------------------------------------
 *
 * Function:	constrain_starting_state
 *
 * Purpose:	Pin environment state at the window start to the
 *		concrete simulator: every state with no init expression
 *		that is not a repair variable gets the simulator value.
 *		Repair variables stay free for the solver to choose.
 *
 *------------------------------------------------------------------*/

func constrain_starting_state(rctx *RepairContext, enc *UnrollSmtEncoding, step StepInt) error {
	for ii := range rctx.sys.states {
		var st = &rctx.sys.states[ii]
		if st.init.is_valid() || rctx.synthVars.is_repair_var(st.symbol) {
			continue
		}
		if rctx.ctx.is_array(st.symbol) {
			logger.Warnf("cannot pin array state %q to the simulator value",
				rctx.ctx.symbol_name(st.symbol))
			continue
		}
		var term, err = enc.get_at(rctx.smt, st.symbol, step)
		if err != nil {
			return err
		}
		var value = rctx.sim.get(st.symbol)
		if err := rctx.smt.assert(fmt.Sprintf("(= %s %s)", term, smt_literal(value))); err != nil {
			return err
		}
	}
	return nil
}
