package synth

/*------------------------------------------------------------------
 *
 * Purpose:	Bit-blasted SMT encoding of a transition system
 *		unrolled over cycles.
 *
 * Description:	Every state and input gets one SMT constant per cycle,
 *		named |signal@cycle|.  Compound expressions become
 *		define-const nodes so the DAG sharing survives into the
 *		solver.  One-bit values live in the Bool sort, wider
 *		values are bit-vectors, which mirrors how the solvers
 *		prefer their inputs.
 *
 *------------------------------------------------------------------*/

import "fmt"

// StepInt counts testbench cycles.
type StepInt uint64

type encKey struct {
	r    ExprRef
	step StepInt
}

type UnrollSmtEncoding struct {
	ctx *Context
	sys *TransitionSystem

	currentStep StepInt
	started     bool

	// (expr, step) -> name of the define-const carrying the term
	defined map[encKey]string
}

func new_unroll_smt_encoding(ctx *Context, sys *TransitionSystem) *UnrollSmtEncoding {
	return &UnrollSmtEncoding{ctx: ctx, sys: sys, defined: make(map[encKey]string)}
}

// define_header declares sorts and helpers shared by all cycles.  The
// pure bit-vector encoding needs none, the hook stays so sessions are
// set up uniformly.
func (e *UnrollSmtEncoding) define_header(smt *smtSession) error {
	_ = smt
	return nil
}

func (e *UnrollSmtEncoding) smt_sort(r ExprRef) string {
	var ctx = e.ctx
	if ctx.is_array(r) {
		var n = ctx.get(r)
		return fmt.Sprintf("(Array (_ BitVec %d) (_ BitVec %d))", n.index, n.width)
	}
	if ctx.width(r) == 1 {
		return "Bool"
	}
	return fmt.Sprintf("(_ BitVec %d)", ctx.width(r))
}

func symbol_at(name string, step StepInt) string {
	return fmt.Sprintf("|%s@%d|", name, step)
}

/*------------------------------------------------------------------
 *
 * Function:	init_at
 *
 * Purpose:	Create the symbolic state and input variables for the
 *		given cycle and assert the initial-state predicate.
 *
 *------------------------------------------------------------------*/

func (e *UnrollSmtEncoding) init_at(smt *smtSession, step StepInt) error {
	if err := e.declare_signals(smt, step); err != nil {
		return err
	}
	for ii := range e.sys.states {
		var st = &e.sys.states[ii]
		if !st.init.is_valid() {
			continue
		}
		var init, err = e.expr_at(smt, st.init, step)
		if err != nil {
			return err
		}
		var sym = symbol_at(e.ctx.symbol_name(st.symbol), step)
		if err := smt.assert(fmt.Sprintf("(= %s %s)", sym, init)); err != nil {
			return err
		}
	}
	e.currentStep = step
	e.started = true
	return nil
}

func (e *UnrollSmtEncoding) declare_signals(smt *smtSession, step StepInt) error {
	for _, in := range e.sys.inputs {
		var err = smt.declare_const(symbol_at(e.ctx.symbol_name(in), step), e.smt_sort(in))
		if err != nil {
			return err
		}
	}
	for ii := range e.sys.states {
		var sym = e.sys.states[ii].symbol
		var err = smt.declare_const(symbol_at(e.ctx.symbol_name(sym), step), e.smt_sort(sym))
		if err != nil {
			return err
		}
	}
	return nil
}

/*------------------------------------------------------------------
 *
 * Function:	unroll
 *
 * Purpose:	Add one more cycle: fresh input variables, next-state
 *		relation connecting cycle N to N+1.  States without a
 *		next expression hold their value (synthesis variables
 *		are state-invariant).
 *
 *------------------------------------------------------------------*/

func (e *UnrollSmtEncoding) unroll(smt *smtSession) error {
	if !e.started {
		panic("unroll before init_at")
	}
	var prev = e.currentStep
	var next = prev + 1
	for _, in := range e.sys.inputs {
		var err = smt.declare_const(symbol_at(e.ctx.symbol_name(in), next), e.smt_sort(in))
		if err != nil {
			return err
		}
	}
	for ii := range e.sys.states {
		var st = &e.sys.states[ii]
		var name = e.ctx.symbol_name(st.symbol)
		var body string
		if st.next.is_valid() {
			var b, err = e.expr_at(smt, st.next, prev)
			if err != nil {
				return err
			}
			body = b
		} else {
			body = symbol_at(name, prev)
		}
		if err := smt.define_const(symbol_at(name, next), e.smt_sort(st.symbol), body); err != nil {
			return err
		}
	}
	e.currentStep = next
	return nil
}

// get_at returns the SMT term for an expression evaluated at a cycle.
// This is the sole query other components use.
func (e *UnrollSmtEncoding) get_at(smt *smtSession, r ExprRef, step StepInt) (string, error) {
	return e.expr_at(smt, r, step)
}

/*------------------------------------------------------------------
 *
 * Function:	expr_at
 *
 * Purpose:	Encode one expression for one cycle.  Compound nodes
 *		become define-const terms, memoized per (node, cycle).
 *
 *------------------------------------------------------------------*/

func (e *UnrollSmtEncoding) expr_at(smt *smtSession, r ExprRef, step StepInt) (string, error) {
	var n = e.ctx.get(r)
	switch n.op {
	case opBVSymbol, opArraySymbol:
		return symbol_at(e.ctx.symbols[n.sym], step), nil
	case opBVLiteral:
		var v = e.ctx.literals[n.lit]
		if v.width == 1 {
			if v.is_true() {
				return "true", nil
			}
			return "false", nil
		}
		return v.to_smt_bin(), nil
	}

	var key = encKey{r: r, step: step}
	if name, ok := e.defined[key]; ok {
		return name, nil
	}
	var body, err = e.encode_op(smt, n, step)
	if err != nil {
		return "", err
	}
	var name = fmt.Sprintf("|__e%d@%d|", r, step)
	if err := smt.define_const(name, e.smt_sort(r), body); err != nil {
		return "", err
	}
	e.defined[key] = name
	return name, nil
}

// bv_at returns a bit-vector sorted term even for 1-bit expressions.
func (e *UnrollSmtEncoding) bv_at(smt *smtSession, r ExprRef, step StepInt) (string, error) {
	var term, err = e.expr_at(smt, r, step)
	if err != nil {
		return "", err
	}
	if e.ctx.width(r) == 1 && !e.ctx.is_array(r) {
		return fmt.Sprintf("(ite %s #b1 #b0)", term), nil
	}
	return term, nil
}

// to_result converts a bit-vector term back into the result sort.
func (e *UnrollSmtEncoding) to_result(term string, width uint32) string {
	if width == 1 {
		return fmt.Sprintf("(= %s #b1)", term)
	}
	return term
}

func (e *UnrollSmtEncoding) encode_op(smt *smtSession, n *exprNode, step StepInt) (string, error) {
	var ctx = e.ctx

	var arg = func(ii int) (string, error) { return e.expr_at(smt, n.args[ii], step) }
	var bvArg = func(ii int) (string, error) { return e.bv_at(smt, n.args[ii], step) }

	var boolOp = n.width == 1 && n.op != opConcat

	switch n.op {
	case opNot:
		var a, err = arg(0)
		if err != nil {
			return "", err
		}
		if boolOp {
			return fmt.Sprintf("(not %s)", a), nil
		}
		return fmt.Sprintf("(bvnot %s)", a), nil

	case opNeg:
		if boolOp {
			// two's complement negation of one bit is the identity
			return arg(0)
		}
		var a, err = arg(0)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(bvneg %s)", a), nil

	case opAnd, opOr, opXor:
		var a, err = arg(0)
		if err != nil {
			return "", err
		}
		b, err := arg(1)
		if err != nil {
			return "", err
		}
		var names = map[exprOp][2]string{
			opAnd: {"and", "bvand"},
			opOr:  {"or", "bvor"},
			opXor: {"xor", "bvxor"},
		}[n.op]
		if boolOp {
			return fmt.Sprintf("(%s %s %s)", names[0], a, b), nil
		}
		return fmt.Sprintf("(%s %s %s)", names[1], a, b), nil

	case opAdd, opSub, opMul, opUDiv, opURem, opSDiv, opSRem,
		opShiftLeft, opShiftRight, opArithShiftRight:
		var a, err = bvArg(0)
		if err != nil {
			return "", err
		}
		b, err := bvArg(1)
		if err != nil {
			return "", err
		}
		var name = map[exprOp]string{
			opAdd: "bvadd", opSub: "bvsub", opMul: "bvmul",
			opUDiv: "bvudiv", opURem: "bvurem", opSDiv: "bvsdiv", opSRem: "bvsrem",
			opShiftLeft: "bvshl", opShiftRight: "bvlshr", opArithShiftRight: "bvashr",
		}[n.op]
		return e.to_result(fmt.Sprintf("(%s %s %s)", name, a, b), n.width), nil

	case opEqual:
		// equality works on both sorts as long as they agree
		var a, err = arg(0)
		if err != nil {
			return "", err
		}
		b, err := arg(1)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(= %s %s)", a, b), nil

	case opGreater, opGreaterEqual, opGreaterSigned, opGreaterEqualSigned:
		var a, err = bvArg(0)
		if err != nil {
			return "", err
		}
		b, err := bvArg(1)
		if err != nil {
			return "", err
		}
		var name = map[exprOp]string{
			opGreater: "bvugt", opGreaterEqual: "bvuge",
			opGreaterSigned: "bvsgt", opGreaterEqualSigned: "bvsge",
		}[n.op]
		return fmt.Sprintf("(%s %s %s)", name, a, b), nil

	case opImplies:
		var a, err = arg(0)
		if err != nil {
			return "", err
		}
		b, err := arg(1)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(=> %s %s)", a, b), nil

	case opRedAnd:
		var a, err = bvArg(0)
		if err != nil {
			return "", err
		}
		var ones = bv_zero(ctx.width(n.args[0]))
		ones.set_all_ones()
		return fmt.Sprintf("(= %s %s)", a, ones.to_smt_bin()), nil

	case opRedOr:
		var a, err = bvArg(0)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(not (= %s %s))", a, bv_zero(ctx.width(n.args[0])).to_smt_bin()), nil

	case opRedXor:
		var a, err = bvArg(0)
		if err != nil {
			return "", err
		}
		var w = ctx.width(n.args[0])
		var term = fmt.Sprintf("((_ extract 0 0) %s)", a)
		for ii := uint32(1); ii < w; ii++ {
			term = fmt.Sprintf("(bvxor %s ((_ extract %d %d) %s))", term, ii, ii, a)
		}
		return fmt.Sprintf("(= %s #b1)", term), nil

	case opZeroExt:
		var a, err = bvArg(0)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("((_ zero_extend %d) %s)", n.index, a), nil

	case opSignExt:
		var a, err = bvArg(0)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("((_ sign_extend %d) %s)", n.index, a), nil

	case opSlice:
		var a, err = bvArg(0)
		if err != nil {
			return "", err
		}
		return e.to_result(fmt.Sprintf("((_ extract %d %d) %s)", n.index, n.lo, a), n.width), nil

	case opConcat:
		var a, err = bvArg(0)
		if err != nil {
			return "", err
		}
		b, err := bvArg(1)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(concat %s %s)", a, b), nil

	case opArrayRead:
		var a, err = arg(0)
		if err != nil {
			return "", err
		}
		idx, err := bvArg(1)
		if err != nil {
			return "", err
		}
		return e.to_result(fmt.Sprintf("(select %s %s)", a, idx), n.width), nil

	case opArrayStore:
		var a, err = arg(0)
		if err != nil {
			return "", err
		}
		idx, err := bvArg(1)
		if err != nil {
			return "", err
		}
		data, err := bvArg(2)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(store %s %s %s)", a, idx, data), nil

	case opIte:
		var c, err = arg(0)
		if err != nil {
			return "", err
		}
		t, err := arg(1)
		if err != nil {
			return "", err
		}
		f, err := arg(2)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(ite %s %s %s)", c, t, f), nil

	default:
		panic(fmt.Sprintf("cannot encode op %d", n.op))
	}
}

// smt_literal renders a concrete value in the sort used for a signal
// of that width, for the testbench equality constraints.
func smt_literal(v bitVal) string {
	if v.width == 1 {
		if v.is_true() {
			return "true"
		}
		return "false"
	}
	return v.to_smt_bin()
}
