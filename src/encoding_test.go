package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test_encoding_init_at declares one constant per signal and asserts
// the init predicates.
func Test_encoding_init_at(t *testing.T) {
	var ctx, sys = build_counter_system()
	var s, buf = test_session(t, "", true)
	var enc = new_unroll_smt_encoding(ctx, sys)

	require.NoError(t, enc.define_header(s))
	require.NoError(t, enc.init_at(s, 0))

	var out = buf.String()
	assert.Contains(t, out, "(declare-const |en@0| Bool)")
	assert.Contains(t, out, "(declare-const |count@0| (_ BitVec 8))")
	assert.Contains(t, out, "(assert (= |count@0| #b00000000))")
}

func Test_encoding_unroll(t *testing.T) {
	var ctx, sys = build_counter_system()
	var s, buf = test_session(t, "", true)
	var enc = new_unroll_smt_encoding(ctx, sys)

	require.NoError(t, enc.init_at(s, 0))
	require.NoError(t, enc.unroll(s))

	var out = buf.String()
	assert.Contains(t, out, "(declare-const |en@1| Bool)")
	// the next state is a define-const in terms of cycle 0
	assert.Contains(t, out, "(define-const |count@1| (_ BitVec 8)")
	assert.Contains(t, out, "|en@0|")
}

// Test_encoding_hold_state checks that states without a next
// expression keep their value across cycles.
func Test_encoding_hold_state(t *testing.T) {
	var ctx = new_context()
	var sys = &TransitionSystem{}
	var v = ctx.bv_symbol("stick", 8)
	sys.add_state(State{symbol: v})

	var s, buf = test_session(t, "", true)
	var enc = new_unroll_smt_encoding(ctx, sys)
	require.NoError(t, enc.init_at(s, 0))
	require.NoError(t, enc.unroll(s))

	assert.Contains(t, buf.String(), "(define-const |stick@1| (_ BitVec 8) |stick@0|)")
}

func Test_encoding_get_at_symbols(t *testing.T) {
	var ctx, sys = build_counter_system()
	var s, _ = test_session(t, "", true)
	var enc = new_unroll_smt_encoding(ctx, sys)
	require.NoError(t, enc.init_at(s, 0))

	var term, err = enc.get_at(s, sys.states[0].symbol, 0)
	require.NoError(t, err)
	assert.Equal(t, "|count@0|", term)

	term, err = enc.get_at(s, sys.inputs[0], 0)
	require.NoError(t, err)
	assert.Equal(t, "|en@0|", term)
}

func Test_encoding_defines_compound_terms_once(t *testing.T) {
	var ctx, sys = build_counter_system()
	var s, buf = test_session(t, "", true)
	var enc = new_unroll_smt_encoding(ctx, sys)
	require.NoError(t, enc.init_at(s, 0))

	var sum = ctx.add(sys.states[0].symbol, ctx.one(8))
	var t1, err = enc.get_at(s, sum, 0)
	require.NoError(t, err)
	var before = buf.Len()
	t2, err := enc.get_at(s, sum, 0)
	require.NoError(t, err)

	assert.Equal(t, t1, t2)
	assert.Equal(t, before, buf.Len(), "second lookup must not emit anything")
	assert.Contains(t, buf.String(), "(bvadd |count@0| #b00000001)")
}

// Test_encoding_bool_sorts checks the single-bit special cases: Bool
// sort, boolean literals, ite based widening.
func Test_encoding_bool_sorts(t *testing.T) {
	var ctx = new_context()
	var sys = &TransitionSystem{}
	var flag = ctx.bv_symbol("flag", 1)
	sys.add_input(flag)

	var s, buf = test_session(t, "", true)
	var enc = new_unroll_smt_encoding(ctx, sys)
	require.NoError(t, enc.init_at(s, 0))

	// zero extending a boolean goes through an ite
	var wide = ctx.zext(flag, 15)
	var _, err = enc.get_at(s, wide, 0)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "(ite |flag@0| #b1 #b0)")

	// a one-bit literal is a boolean constant
	term, err := enc.get_at(s, ctx.one(1), 0)
	require.NoError(t, err)
	assert.Equal(t, "true", term)
}

func Test_encoding_array_sort(t *testing.T) {
	var ctx = new_context()
	var sys = &TransitionSystem{}
	var mem = ctx.array_symbol("mem", 4, 8)
	sys.add_state(State{symbol: mem})

	var s, buf = test_session(t, "", true)
	var enc = new_unroll_smt_encoding(ctx, sys)
	require.NoError(t, enc.init_at(s, 0))
	assert.Contains(t, buf.String(), "(declare-const |mem@0| (Array (_ BitVec 4) (_ BitVec 8)))")
}

func Test_smt_literal(t *testing.T) {
	assert.Equal(t, "true", smt_literal(bv_from_u64(1, 1)))
	assert.Equal(t, "false", smt_literal(bv_zero(1)))
	assert.Equal(t, "#b101", smt_literal(bv_from_u64(5, 3)))
}

// Test_encoding_redor builds the comparison against zero.
func Test_encoding_redor(t *testing.T) {
	var ctx = new_context()
	var sys = &TransitionSystem{}
	var a = ctx.bv_symbol("a", 4)
	sys.add_input(a)

	var s, buf = test_session(t, "", true)
	var enc = new_unroll_smt_encoding(ctx, sys)
	require.NoError(t, enc.init_at(s, 0))

	var _, err = enc.get_at(s, ctx.redor(a), 0)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "(not (= |a@0| #b0000))")
}
