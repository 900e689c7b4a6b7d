package synth

/*------------------------------------------------------------------
 *
 * Purpose:	Transition system over the shared expression graph.
 *
 *		A system consists of states (optional init expression,
 *		optional next-state expression), inputs and named
 *		outputs.  It is built once by the btor2 parser, rewritten
 *		by the simplification passes, and then mutated once more
 *		when the orchestrator attaches the __change_count output.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"strings"
)

// State holds one register (or one synthesis variable, which is a
// state with neither init nor next expression).
type State struct {
	symbol ExprRef
	init   ExprRef // InvalidRef if none
	next   ExprRef // InvalidRef if none
}

type Output struct {
	name string
	expr ExprRef
}

type SignalKind int

const (
	SignalOther SignalKind = iota
	SignalInput
	SignalOutput
)

type TransitionSystem struct {
	name    string
	states  []State
	inputs  []ExprRef
	outputs []Output
}

func (sys *TransitionSystem) add_state(s State) {
	sys.states = append(sys.states, s)
}

func (sys *TransitionSystem) add_input(e ExprRef) {
	sys.inputs = append(sys.inputs, e)
}

func (sys *TransitionSystem) add_output(name string, e ExprRef) {
	sys.outputs = append(sys.outputs, Output{name: name, expr: e})
}

func (sys *TransitionSystem) state_of(r ExprRef) *State {
	for ii := range sys.states {
		if sys.states[ii].symbol == r {
			return &sys.states[ii]
		}
	}
	return nil
}

// generate_name_to_ref builds the lookup used by the testbench header
// matcher.  Output names refer to the output expression, everything
// else to the symbol itself.
func (sys *TransitionSystem) generate_name_to_ref(ctx *Context) map[string]ExprRef {
	var out = make(map[string]ExprRef)
	for _, in := range sys.inputs {
		out[ctx.symbol_name(in)] = in
	}
	for ii := range sys.states {
		out[ctx.symbol_name(sys.states[ii].symbol)] = sys.states[ii].symbol
	}
	for _, o := range sys.outputs {
		out[o.name] = o.expr
	}
	return out
}

// signal_kind classifies a name for the testbench header matcher.  A
// name can legitimately appear as both input and output in broken
// designs; the caller must reject that case.
func (sys *TransitionSystem) signal_kind(ctx *Context, name string) (SignalKind, bool, bool) {
	var isInput, isOutput bool
	for _, in := range sys.inputs {
		if ctx.symbol_name(in) == name {
			isInput = true
		}
	}
	for _, o := range sys.outputs {
		if o.name == name {
			isOutput = true
		}
	}
	switch {
	case isInput && isOutput:
		return SignalOther, isInput, isOutput
	case isInput:
		return SignalInput, isInput, isOutput
	case isOutput:
		return SignalOutput, isInput, isOutput
	default:
		return SignalOther, false, false
	}
}

/*------------------------------------------------------------------
 *
 * Function:	serialize_to_str
 *
 * Purpose:	Human readable dump of the system for --verbose.
 *
 *------------------------------------------------------------------*/

func (sys *TransitionSystem) serialize_to_str(ctx *Context) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", sys.name)
	for _, in := range sys.inputs {
		fmt.Fprintf(&sb, "input %s : bv<%d>\n", ctx.symbol_name(in), ctx.width(in))
	}
	for ii := range sys.states {
		var st = &sys.states[ii]
		fmt.Fprintf(&sb, "state %s : bv<%d>\n", ctx.symbol_name(st.symbol), ctx.width(st.symbol))
		if st.init.is_valid() {
			fmt.Fprintf(&sb, "  [init] %s\n", ctx.serialize_expr(st.init))
		}
		if st.next.is_valid() {
			fmt.Fprintf(&sb, "  [next] %s\n", ctx.serialize_expr(st.next))
		}
	}
	for _, o := range sys.outputs {
		fmt.Fprintf(&sb, "output %s = %s\n", o.name, ctx.serialize_expr(o.expr))
	}
	return sb.String()
}
