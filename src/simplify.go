package synth

/*------------------------------------------------------------------
 *
 * Purpose:	Expression simplification passes run once after parsing.
 *
 *		replace_anonymous_inputs_with_zero removes unnamed
 *		inputs (synthesis tooling leaves them behind) and
 *		simplify_expressions folds constants so the encoder and
 *		the simulator see a smaller graph.
 *
 *------------------------------------------------------------------*/

import "strings"

type exprRewriter struct {
	ctx   *Context
	subst map[ExprRef]ExprRef
	memo  map[ExprRef]ExprRef
}

func new_rewriter(ctx *Context, subst map[ExprRef]ExprRef) *exprRewriter {
	return &exprRewriter{ctx: ctx, subst: subst, memo: make(map[ExprRef]ExprRef)}
}

func (rw *exprRewriter) rewrite(r ExprRef) ExprRef {
	if !r.is_valid() {
		return r
	}
	if out, ok := rw.memo[r]; ok {
		return out
	}
	var out = r
	if repl, ok := rw.subst[r]; ok {
		out = repl
	} else {
		var n = *rw.ctx.get(r)
		var changed = false
		for ii := 0; ii < n.num_children(); ii++ {
			var c = rw.rewrite(n.args[ii])
			if c != n.args[ii] {
				n.args[ii] = c
				changed = true
			}
		}
		if changed {
			out = rw.ctx.intern(n)
		}
		out = fold_constants(rw.ctx, out)
	}
	rw.memo[r] = out
	return out
}

func rewrite_system(ctx *Context, sys *TransitionSystem, subst map[ExprRef]ExprRef) {
	var rw = new_rewriter(ctx, subst)
	for ii := range sys.states {
		// state symbols stay, only init/next expressions are rewritten
		sys.states[ii].init = rw.rewrite(sys.states[ii].init)
		sys.states[ii].next = rw.rewrite(sys.states[ii].next)
	}
	for ii := range sys.outputs {
		sys.outputs[ii].expr = rw.rewrite(sys.outputs[ii].expr)
	}
}

// replace_anonymous_inputs_with_zero substitutes a zero literal for
// every input the design did not name and drops it from the input list.
func replace_anonymous_inputs_with_zero(ctx *Context, sys *TransitionSystem) {
	var subst = make(map[ExprRef]ExprRef)
	var kept []ExprRef
	for _, in := range sys.inputs {
		if strings.HasPrefix(ctx.symbol_name(in), anonPrefix) {
			subst[in] = ctx.zero(ctx.width(in))
		} else {
			kept = append(kept, in)
		}
	}
	if len(subst) == 0 {
		return
	}
	sys.inputs = kept
	rewrite_system(ctx, sys, subst)
}

func simplify_expressions(ctx *Context, sys *TransitionSystem) {
	rewrite_system(ctx, sys, map[ExprRef]ExprRef{})
}

// fold_constants rewrites one node whose children are already folded.
func fold_constants(ctx *Context, r ExprRef) ExprRef {
	var n = ctx.get(r)
	var lit = func(ii int) (bitVal, bool) {
		var c = ctx.get(n.args[ii])
		if c.op == opBVLiteral {
			return ctx.literals[c.lit], true
		}
		return bitVal{}, false
	}

	switch n.op {
	case opNot:
		if a, ok := lit(0); ok {
			return ctx.bv_lit(bv_not(a))
		}
	case opNeg:
		if a, ok := lit(0); ok {
			return ctx.bv_lit(bv_neg(a))
		}
	case opZeroExt:
		if a, ok := lit(0); ok {
			return ctx.bv_lit(bv_zext(a, n.index))
		}
	case opSignExt:
		if a, ok := lit(0); ok {
			return ctx.bv_lit(bv_sext(a, n.index))
		}
	case opSlice:
		if a, ok := lit(0); ok {
			return ctx.bv_lit(bv_slice(a, n.index, n.lo))
		}
	case opRedAnd:
		if a, ok := lit(0); ok {
			return ctx.bv_lit(bv_redand(a))
		}
	case opRedOr:
		if a, ok := lit(0); ok {
			return ctx.bv_lit(bv_redor(a))
		}
	case opRedXor:
		if a, ok := lit(0); ok {
			return ctx.bv_lit(bv_redxor(a))
		}
	case opAnd:
		var a, aok = lit(0)
		var b, bok = lit(1)
		switch {
		case aok && bok:
			return ctx.bv_lit(bv_and(a, b))
		case aok && a.is_zero():
			return n.args[0]
		case bok && b.is_zero():
			return n.args[1]
		}
	case opOr:
		var a, aok = lit(0)
		var b, bok = lit(1)
		switch {
		case aok && bok:
			return ctx.bv_lit(bv_or(a, b))
		case aok && a.is_zero():
			return n.args[1]
		case bok && b.is_zero():
			return n.args[0]
		}
	case opXor:
		var a, aok = lit(0)
		var b, bok = lit(1)
		switch {
		case aok && bok:
			return ctx.bv_lit(bv_xor(a, b))
		case aok && a.is_zero():
			return n.args[1]
		case bok && b.is_zero():
			return n.args[0]
		}
	case opAdd:
		var a, aok = lit(0)
		var b, bok = lit(1)
		switch {
		case aok && bok:
			return ctx.bv_lit(bv_add(a, b))
		case aok && a.is_zero():
			return n.args[1]
		case bok && b.is_zero():
			return n.args[0]
		}
	case opSub:
		var a, aok = lit(0)
		var b, bok = lit(1)
		switch {
		case aok && bok:
			return ctx.bv_lit(bv_sub(a, b))
		case bok && b.is_zero():
			return n.args[0]
		}
	case opMul:
		if a, aok := lit(0); aok {
			if b, bok := lit(1); bok {
				return ctx.bv_lit(bv_mul(a, b))
			}
		}
	case opEqual:
		if a, aok := lit(0); aok {
			if b, bok := lit(1); bok {
				return ctx.bv_lit(bv_bool(a.equal(b)))
			}
		}
		if n.args[0] == n.args[1] {
			return ctx.one(1)
		}
	case opConcat:
		if a, aok := lit(0); aok {
			if b, bok := lit(1); bok {
				return ctx.bv_lit(bv_concat(a, b))
			}
		}
	case opIte:
		if c, ok := lit(0); ok {
			if c.is_true() {
				return n.args[1]
			}
			return n.args[2]
		}
		if n.args[1] == n.args[2] {
			return n.args[1]
		}
	}
	return r
}
