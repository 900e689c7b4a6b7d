package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// build_counter_system returns a system with an 8-bit counter that
// increments while `en` is high, plus the context it lives in.
func build_counter_system() (*Context, *TransitionSystem) {
	var ctx = new_context()
	var sys = &TransitionSystem{name: "counter"}
	var en = ctx.bv_symbol("en", 1)
	var count = ctx.bv_symbol("count", 8)
	sys.add_input(en)
	sys.add_state(State{
		symbol: count,
		init:   ctx.zero(8),
		next:   ctx.ite(en, ctx.add(count, ctx.one(8)), count),
	})
	sys.add_output("count_out", count)
	return ctx, sys
}

func Test_interpreter_counter(t *testing.T) {
	var ctx, sys = build_counter_system()
	var sim = new_interpreter(ctx, sys)
	sim.init(init_zero())

	var en = sys.inputs[0]
	var out = sys.outputs[0].expr

	sim.set(en, bv_from_u64(1, 1))
	for cycle := uint64(0); cycle < 5; cycle++ {
		sim.update()
		assert.Equal(t, cycle, sim.get(out).to_u64())
		sim.step()
	}

	// disable counting, the value holds
	sim.set(en, bv_zero(1))
	sim.update()
	assert.Equal(t, uint64(5), sim.get(out).to_u64())
	sim.step()
	sim.update()
	assert.Equal(t, uint64(5), sim.get(out).to_u64())
}

func Test_interpreter_snapshots(t *testing.T) {
	var ctx, sys = build_counter_system()
	var sim = new_interpreter(ctx, sys)
	sim.init(init_zero())

	var en = sys.inputs[0]
	var count = sys.states[0].symbol

	sim.set(en, bv_from_u64(1, 1))
	for ii := 0; ii < 3; ii++ {
		sim.update()
		sim.step()
	}
	var snap = sim.take_snapshot()
	require.Equal(t, uint64(3), sim.get(count).to_u64())

	for ii := 0; ii < 4; ii++ {
		sim.update()
		sim.step()
	}
	require.Equal(t, uint64(7), sim.get(count).to_u64())

	sim.restore_snapshot(snap)
	assert.Equal(t, uint64(3), sim.get(count).to_u64())
	// the snapshot captured the input too
	assert.Equal(t, uint64(1), sim.get(en).to_u64())
}

// Test_interpreter_random_init_deterministic checks that the same seed
// produces the same state.
func Test_interpreter_random_init_deterministic(t *testing.T) {
	var ctx = new_context()
	var sys = &TransitionSystem{name: "regs"}
	var a = ctx.bv_symbol("a", 64)
	var b = ctx.bv_symbol("b", 13)
	sys.add_state(State{symbol: a})
	sys.add_state(State{symbol: b})

	var sim1 = new_interpreter(ctx, sys)
	var sim2 = new_interpreter(ctx, sys)
	sim1.init(init_random(42))
	sim2.init(init_random(42))
	assert.True(t, sim1.get(a).equal(sim2.get(a)))
	assert.True(t, sim1.get(b).equal(sim2.get(b)))

	var sim3 = new_interpreter(ctx, sys)
	sim3.init(init_random(43))
	var same = sim1.get(a).equal(sim3.get(a)) && sim1.get(b).equal(sim3.get(b))
	assert.False(t, same, "different seeds should give different state")
}

func Test_interpreter_init_expression(t *testing.T) {
	var ctx = new_context()
	var sys = &TransitionSystem{}
	var s = ctx.bv_symbol("s", 8)
	sys.add_state(State{symbol: s, init: ctx.bv_lit_u64(0x42, 8)})

	var sim = new_interpreter(ctx, sys)
	sim.init(init_random(7))
	assert.Equal(t, uint64(0x42), sim.get(s).to_u64(), "init expression wins over random fill")
}

func Test_interpreter_array_memory(t *testing.T) {
	var ctx = new_context()
	var sys = &TransitionSystem{}
	var mem = ctx.array_symbol("mem", 4, 8)
	var waddr = ctx.bv_symbol("waddr", 4)
	var wdata = ctx.bv_symbol("wdata", 8)
	var raddr = ctx.bv_symbol("raddr", 4)
	sys.add_input(waddr)
	sys.add_input(wdata)
	sys.add_input(raddr)
	sys.add_state(State{symbol: mem, next: ctx.array_store(mem, waddr, wdata)})
	sys.add_output("rdata", ctx.array_read(mem, raddr))

	var sim = new_interpreter(ctx, sys)
	sim.init(init_zero())
	var rdata = sys.outputs[0].expr

	sim.set(waddr, bv_from_u64(3, 4))
	sim.set(wdata, bv_from_u64(0xab, 8))
	sim.set(raddr, bv_from_u64(3, 4))
	sim.update()
	assert.Equal(t, uint64(0), sim.get(rdata).to_u64(), "write lands after the step")
	sim.step()
	sim.update()
	assert.Equal(t, uint64(0xab), sim.get(rdata).to_u64())
}

func Test_interpreter_set_checks_width(t *testing.T) {
	var ctx, sys = build_counter_system()
	var sim = new_interpreter(ctx, sys)
	assert.Panics(t, func() { sim.set(sys.inputs[0], bv_from_u64(1, 8)) })
}
