package synth

/*------------------------------------------------------------------
 *
 * Purpose:	Cycle-accurate concrete interpreter for a transition
 *		system.
 *
 * Description:	The interpreter owns one value per state and input.
 *		`update` settles combinational logic for the current
 *		cycle, `step` commits the next-state values.  Snapshots
 *		capture the full state (including synthesis variables)
 *		and are addressed by small opaque ids.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"math/rand"
)

type InitKind struct {
	random bool
	seed   int64
}

func init_zero() InitKind             { return InitKind{} }
func init_random(seed int64) InitKind { return InitKind{random: true, seed: seed} }

// arrayVal is a sparse array value with a default element.
type arrayVal struct {
	indexWidth uint32
	dataWidth  uint32
	def        bitVal
	elems      map[uint64]bitVal
}

func (a arrayVal) clone() arrayVal {
	var out = arrayVal{indexWidth: a.indexWidth, dataWidth: a.dataWidth, def: a.def.clone()}
	out.elems = make(map[uint64]bitVal, len(a.elems))
	for k, v := range a.elems {
		out.elems[k] = v.clone()
	}
	return out
}

func (a arrayVal) read(index bitVal) bitVal {
	if v, ok := a.elems[index.to_u64()]; ok {
		return v
	}
	return a.def
}

// simValue is either a bit-vector or an array.
type simValue struct {
	bv    bitVal
	array *arrayVal
}

type SnapshotId int

type Interpreter struct {
	ctx   *Context
	sys   *TransitionSystem
	state map[ExprRef]simValue // states and inputs
	cache map[ExprRef]simValue // combinational values, cleared on writes
	snaps []map[ExprRef]simValue
}

func new_interpreter(ctx *Context, sys *TransitionSystem) *Interpreter {
	var sim = &Interpreter{
		ctx:   ctx,
		sys:   sys,
		state: make(map[ExprRef]simValue),
		cache: make(map[ExprRef]simValue),
	}
	for _, in := range sys.inputs {
		sim.state[in] = simValue{bv: bv_zero(ctx.width(in))}
	}
	for ii := range sys.states {
		sim.state[sys.states[ii].symbol] = sim.default_value(sys.states[ii].symbol)
	}
	return sim
}

func (sim *Interpreter) default_value(r ExprRef) simValue {
	if sim.ctx.is_array(r) {
		var n = sim.ctx.get(r)
		return simValue{array: &arrayVal{
			indexWidth: n.index,
			dataWidth:  n.width,
			def:        bv_zero(n.width),
			elems:      make(map[uint64]bitVal),
		}}
	}
	return simValue{bv: bv_zero(sim.ctx.width(r))}
}

/*------------------------------------------------------------------
 *
 * Function:	init
 *
 * Purpose:	Reset every state to its init expression.  States and
 *		inputs without init are zeroed or filled from a PRNG
 *		with the caller supplied seed.
 *
 *------------------------------------------------------------------*/

func (sim *Interpreter) init(kind InitKind) {
	var rng *rand.Rand
	if kind.random {
		rng = rand.New(rand.NewSource(kind.seed))
	}
	var fill = func(width uint32) bitVal {
		if rng == nil {
			return bv_zero(width)
		}
		var v = bv_zero(width)
		for ii := range v.words {
			v.words[ii] = rng.Uint64()
		}
		v.mask()
		return v
	}
	for _, in := range sim.sys.inputs {
		sim.state[in] = simValue{bv: fill(sim.ctx.width(in))}
	}
	// first pass: states without init, so that init expressions that
	// reference other states see deterministic values
	for ii := range sim.sys.states {
		var st = &sim.sys.states[ii]
		if !st.init.is_valid() {
			if sim.ctx.is_array(st.symbol) {
				var v = sim.default_value(st.symbol)
				v.array.def = fill(v.array.dataWidth)
				sim.state[st.symbol] = v
			} else {
				sim.state[st.symbol] = simValue{bv: fill(sim.ctx.width(st.symbol))}
			}
		}
	}
	for ii := range sim.sys.states {
		var st = &sim.sys.states[ii]
		if st.init.is_valid() {
			sim.invalidate()
			sim.state[st.symbol] = sim.eval(st.init)
		}
	}
	sim.invalidate()
}

func (sim *Interpreter) invalidate() {
	clear(sim.cache)
}

// set writes a value to a state or input.
func (sim *Interpreter) set(r ExprRef, value bitVal) {
	if _, ok := sim.state[r]; !ok {
		panic(fmt.Sprintf("set on non-state symbol %q", sim.ctx.symbol_name(r)))
	}
	if value.width != sim.ctx.width(r) {
		panic(fmt.Sprintf("width mismatch writing %q: %d != %d",
			sim.ctx.symbol_name(r), value.width, sim.ctx.width(r)))
	}
	sim.state[r] = simValue{bv: value.clone()}
	sim.invalidate()
}

// update settles combinational logic.  get may only be called for
// post-combinational values after update.
func (sim *Interpreter) update() {
	sim.invalidate()
	for _, o := range sim.sys.outputs {
		sim.eval(o.expr)
	}
}

// get returns the current value of any bit-vector expression.
func (sim *Interpreter) get(r ExprRef) bitVal {
	var v = sim.eval(r)
	if v.array != nil {
		panic(fmt.Sprintf("get on array expression %q", sim.ctx.symbol_name(r)))
	}
	return v.bv
}

// step commits one cycle: every state with a next expression takes its
// next value, everything else holds.
func (sim *Interpreter) step() {
	var nextValues = make([]simValue, len(sim.sys.states))
	for ii := range sim.sys.states {
		var st = &sim.sys.states[ii]
		if st.next.is_valid() {
			nextValues[ii] = sim.eval(st.next)
		} else {
			nextValues[ii] = sim.state[st.symbol]
		}
	}
	for ii := range sim.sys.states {
		sim.state[sim.sys.states[ii].symbol] = nextValues[ii]
	}
	sim.invalidate()
}

func (sim *Interpreter) take_snapshot() SnapshotId {
	var snap = make(map[ExprRef]simValue, len(sim.state))
	for k, v := range sim.state {
		if v.array != nil {
			var a = v.array.clone()
			snap[k] = simValue{array: &a}
		} else {
			snap[k] = simValue{bv: v.bv.clone()}
		}
	}
	sim.snaps = append(sim.snaps, snap)
	return SnapshotId(len(sim.snaps) - 1)
}

func (sim *Interpreter) restore_snapshot(id SnapshotId) {
	if int(id) < 0 || int(id) >= len(sim.snaps) {
		panic(fmt.Sprintf("invalid snapshot id %d", id))
	}
	var snap = sim.snaps[id]
	for k, v := range snap {
		if v.array != nil {
			var a = v.array.clone()
			sim.state[k] = simValue{array: &a}
		} else {
			sim.state[k] = simValue{bv: v.bv.clone()}
		}
	}
	sim.invalidate()
}

/*------------------------------------------------------------------
 *
 * Function:	eval
 *
 * Purpose:	Evaluate one expression in the current cycle with
 *		memoization over the DAG.
 *
 *------------------------------------------------------------------*/

func (sim *Interpreter) eval(r ExprRef) simValue {
	if v, ok := sim.cache[r]; ok {
		return v
	}
	var n = sim.ctx.get(r)
	var out simValue
	switch n.op {
	case opBVSymbol, opArraySymbol:
		var v, ok = sim.state[r]
		if !ok {
			panic(fmt.Sprintf("no value for symbol %q", sim.ctx.symbol_name(r)))
		}
		out = v
	case opBVLiteral:
		out = simValue{bv: sim.ctx.literals[n.lit]}
	case opNot:
		out = simValue{bv: bv_not(sim.get_arg(n, 0))}
	case opNeg:
		out = simValue{bv: bv_neg(sim.get_arg(n, 0))}
	case opRedAnd:
		out = simValue{bv: bv_redand(sim.get_arg(n, 0))}
	case opRedOr:
		out = simValue{bv: bv_redor(sim.get_arg(n, 0))}
	case opRedXor:
		out = simValue{bv: bv_redxor(sim.get_arg(n, 0))}
	case opZeroExt:
		out = simValue{bv: bv_zext(sim.get_arg(n, 0), n.index)}
	case opSignExt:
		out = simValue{bv: bv_sext(sim.get_arg(n, 0), n.index)}
	case opSlice:
		out = simValue{bv: bv_slice(sim.get_arg(n, 0), n.index, n.lo)}
	case opAnd:
		out = simValue{bv: bv_and(sim.get_arg(n, 0), sim.get_arg(n, 1))}
	case opOr:
		out = simValue{bv: bv_or(sim.get_arg(n, 0), sim.get_arg(n, 1))}
	case opXor:
		out = simValue{bv: bv_xor(sim.get_arg(n, 0), sim.get_arg(n, 1))}
	case opAdd:
		out = simValue{bv: bv_add(sim.get_arg(n, 0), sim.get_arg(n, 1))}
	case opSub:
		out = simValue{bv: bv_sub(sim.get_arg(n, 0), sim.get_arg(n, 1))}
	case opMul:
		out = simValue{bv: bv_mul(sim.get_arg(n, 0), sim.get_arg(n, 1))}
	case opUDiv:
		out = simValue{bv: bv_udiv(sim.get_arg(n, 0), sim.get_arg(n, 1))}
	case opURem:
		out = simValue{bv: bv_urem(sim.get_arg(n, 0), sim.get_arg(n, 1))}
	case opSDiv:
		out = simValue{bv: bv_sdiv(sim.get_arg(n, 0), sim.get_arg(n, 1))}
	case opSRem:
		out = simValue{bv: bv_srem(sim.get_arg(n, 0), sim.get_arg(n, 1))}
	case opShiftLeft:
		out = simValue{bv: bv_shift_left(sim.get_arg(n, 0), sim.get_arg(n, 1))}
	case opShiftRight:
		out = simValue{bv: bv_shift_right(sim.get_arg(n, 0), sim.get_arg(n, 1))}
	case opArithShiftRight:
		out = simValue{bv: bv_arith_shift_right(sim.get_arg(n, 0), sim.get_arg(n, 1))}
	case opEqual:
		var a = sim.eval(n.args[0])
		var b = sim.eval(n.args[1])
		if a.array != nil || b.array != nil {
			panic("array equality is not supported by the interpreter")
		}
		out = simValue{bv: bv_bool(a.bv.equal(b.bv))}
	case opGreater:
		out = simValue{bv: bv_bool(bv_ucmp(sim.get_arg(n, 0), sim.get_arg(n, 1)) > 0)}
	case opGreaterEqual:
		out = simValue{bv: bv_bool(bv_ucmp(sim.get_arg(n, 0), sim.get_arg(n, 1)) >= 0)}
	case opGreaterSigned:
		out = simValue{bv: bv_bool(bv_scmp(sim.get_arg(n, 0), sim.get_arg(n, 1)) > 0)}
	case opGreaterEqualSigned:
		out = simValue{bv: bv_bool(bv_scmp(sim.get_arg(n, 0), sim.get_arg(n, 1)) >= 0)}
	case opImplies:
		var a = sim.get_arg(n, 0)
		var b = sim.get_arg(n, 1)
		out = simValue{bv: bv_bool(!a.is_true() || b.is_true())}
	case opConcat:
		out = simValue{bv: bv_concat(sim.get_arg(n, 0), sim.get_arg(n, 1))}
	case opArrayRead:
		var a = sim.eval(n.args[0])
		out = simValue{bv: a.array.read(sim.get_arg(n, 1)).clone()}
	case opArrayStore:
		var a = sim.eval(n.args[0]).array.clone()
		a.elems[sim.get_arg(n, 1).to_u64()] = sim.get_arg(n, 2).clone()
		out = simValue{array: &a}
	case opIte:
		if sim.get_arg(n, 0).is_true() {
			out = sim.eval(n.args[1])
		} else {
			out = sim.eval(n.args[2])
		}
	default:
		panic(fmt.Sprintf("cannot evaluate op %d", n.op))
	}
	sim.cache[r] = out
	return out
}

func (sim *Interpreter) get_arg(n *exprNode, ii int) bitVal {
	var v = sim.eval(n.args[ii])
	if v.array != nil {
		panic("expected bit-vector operand, got array")
	}
	return v.bv
}
