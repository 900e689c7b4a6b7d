package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test_context_interning checks that structurally identical
// expressions share one handle.
func Test_context_interning(t *testing.T) {
	var ctx = new_context()

	var a = ctx.bv_symbol("a", 8)
	var a2 = ctx.bv_symbol("a", 8)
	assert.Equal(t, a, a2, "same symbol must intern to the same handle")

	var b = ctx.bv_symbol("b", 8)
	assert.NotEqual(t, a, b)

	var sum = ctx.add(a, b)
	var sum2 = ctx.add(a, b)
	assert.Equal(t, sum, sum2)
	assert.NotEqual(t, sum, ctx.add(b, a), "operand order matters")

	var five = ctx.bv_lit_u64(5, 8)
	var five2 = ctx.bv_lit_u64(5, 8)
	assert.Equal(t, five, five2)
	assert.NotEqual(t, five, ctx.bv_lit_u64(5, 16), "width is part of the identity")
}

func Test_context_widths(t *testing.T) {
	var ctx = new_context()
	var a = ctx.bv_symbol("a", 8)
	var b = ctx.bv_symbol("b", 3)

	assert.Equal(t, uint32(8), ctx.width(ctx.add(a, a)))
	assert.Equal(t, uint32(1), ctx.width(ctx.equal(a, a)))
	assert.Equal(t, uint32(11), ctx.width(ctx.concat(a, b)))
	assert.Equal(t, uint32(12), ctx.width(ctx.zext(a, 4)))
	assert.Equal(t, uint32(4), ctx.width(ctx.slice(a, 6, 3)))
	assert.Equal(t, uint32(1), ctx.width(ctx.redor(a)))
}

func Test_slice_bounds_panic(t *testing.T) {
	var ctx = new_context()
	var a = ctx.bv_symbol("a", 8)
	assert.Panics(t, func() { ctx.slice(a, 8, 0) })
	assert.Panics(t, func() { ctx.slice(a, 2, 5) })
}

func Test_is_array(t *testing.T) {
	var ctx = new_context()
	var mem = ctx.array_symbol("mem", 4, 8)
	var addr = ctx.bv_symbol("addr", 4)
	var data = ctx.bv_symbol("data", 8)

	assert.True(t, ctx.is_array(mem))
	assert.False(t, ctx.is_array(addr))
	assert.True(t, ctx.is_array(ctx.array_store(mem, addr, data)))
	assert.False(t, ctx.is_array(ctx.array_read(mem, addr)))

	var cond = ctx.bv_symbol("cond", 1)
	assert.True(t, ctx.is_array(ctx.ite(cond, mem, mem)))
}

func Test_serialize_expr(t *testing.T) {
	var ctx = new_context()
	var a = ctx.bv_symbol("a", 8)
	var b = ctx.bv_symbol("b", 8)

	assert.Equal(t, "a", ctx.serialize_expr(a))
	assert.Equal(t, "add(a, b)", ctx.serialize_expr(ctx.add(a, b)))
	assert.Equal(t, "a[6:3]", ctx.serialize_expr(ctx.slice(a, 6, 3)))
	assert.Equal(t, "zext(a, 4)", ctx.serialize_expr(ctx.zext(a, 4)))
	assert.Equal(t, "8'd5", ctx.serialize_expr(ctx.bv_lit_u64(5, 8)))
}
