package synth

/*------------------------------------------------------------------
 *
 * Purpose:	Shared immutable expression graph for bit-precise
 *		transition systems.
 *
 * Description:	All expressions live in a Context and are addressed by
 *		small integer handles (ExprRef).  Nodes are interned, so
 *		structurally identical expressions share one handle and
 *		the graph forms a DAG with no reference cycles.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"strings"
)

// ExprRef is a handle into a Context.  The zero value is invalid.
type ExprRef uint32

const InvalidRef ExprRef = 0

func (r ExprRef) is_valid() bool {
	return r != InvalidRef
}

type exprOp uint8

const (
	opInvalid exprOp = iota

	// leaves
	opBVSymbol
	opBVLiteral
	opArraySymbol

	// unary
	opNot
	opNeg
	opRedAnd
	opRedOr
	opRedXor
	opZeroExt
	opSignExt
	opSlice

	// binary
	opAnd
	opOr
	opXor
	opAdd
	opSub
	opMul
	opUDiv
	opURem
	opSDiv
	opSRem
	opShiftLeft
	opShiftRight
	opArithShiftRight
	opEqual
	opGreater
	opGreaterEqual
	opGreaterSigned
	opGreaterEqualSigned
	opImplies
	opConcat
	opArrayRead

	// ternary
	opIte
	opArrayStore
)

// exprNode is one interned node.  For bit-vector nodes width is the
// result width.  For array nodes width is the data width and index
// holds the index width.  Slice borrows index/lo for its hi/lo bits,
// the extensions borrow index for the number of added bits.
type exprNode struct {
	op    exprOp
	width uint32
	index uint32
	lo    uint32
	args  [3]ExprRef
	sym   int32 // index into Context.symbols, -1 if none
	lit   int32 // index into Context.literals, -1 if none
}

// Context owns every expression node.  It is treated as immutable by
// all components once the system has been built and instrumented.
type Context struct {
	nodes    []exprNode
	symbols  []string
	literals []bitVal
	interned map[exprNode]ExprRef
}

func new_context() *Context {
	var ctx = &Context{interned: make(map[exprNode]ExprRef)}
	// burn index 0 so that InvalidRef never resolves
	ctx.nodes = append(ctx.nodes, exprNode{})
	return ctx
}

func (ctx *Context) get(r ExprRef) *exprNode {
	if !r.is_valid() || int(r) >= len(ctx.nodes) {
		panic(fmt.Sprintf("invalid ExprRef %d", r))
	}
	return &ctx.nodes[r]
}

func (ctx *Context) intern(n exprNode) ExprRef {
	if r, ok := ctx.interned[n]; ok {
		return r
	}
	var r = ExprRef(len(ctx.nodes))
	ctx.nodes = append(ctx.nodes, n)
	ctx.interned[n] = r
	return r
}

// width reports the bit width of a bit-vector expression (data width
// for arrays).
func (ctx *Context) width(r ExprRef) uint32 {
	return ctx.get(r).width
}

func (ctx *Context) is_array(r ExprRef) bool {
	var n = ctx.get(r)
	switch n.op {
	case opArraySymbol, opArrayStore:
		return true
	case opIte:
		return ctx.is_array(n.args[1])
	default:
		return false
	}
}

func (ctx *Context) symbol_name(r ExprRef) string {
	var n = ctx.get(r)
	if n.sym < 0 {
		return ""
	}
	return ctx.symbols[n.sym]
}

func (ctx *Context) literal_value(r ExprRef) bitVal {
	var n = ctx.get(r)
	if n.op != opBVLiteral {
		panic("not a literal")
	}
	return ctx.literals[n.lit]
}

/*
 * Builders.  Symbols are interned by (name, width), so asking for the
 * same symbol twice yields the same handle.
 */

func (ctx *Context) bv_symbol(name string, width uint32) ExprRef {
	if width == 0 {
		panic("zero width symbol: " + name)
	}
	var sym = int32(len(ctx.symbols))
	var n = exprNode{op: opBVSymbol, width: width, sym: sym, lit: -1}
	// intern by name instead of symbol index
	var key = n
	key.sym = ctx.symbol_key(name)
	if r, ok := ctx.interned[key]; ok {
		return r
	}
	ctx.symbols = append(ctx.symbols, name)
	var r = ExprRef(len(ctx.nodes))
	ctx.nodes = append(ctx.nodes, n)
	ctx.interned[key] = r
	return r
}

func (ctx *Context) array_symbol(name string, indexWidth, dataWidth uint32) ExprRef {
	var sym = int32(len(ctx.symbols))
	var n = exprNode{op: opArraySymbol, width: dataWidth, index: indexWidth, sym: sym, lit: -1}
	var key = n
	key.sym = ctx.symbol_key(name)
	if r, ok := ctx.interned[key]; ok {
		return r
	}
	ctx.symbols = append(ctx.symbols, name)
	var r = ExprRef(len(ctx.nodes))
	ctx.nodes = append(ctx.nodes, n)
	ctx.interned[key] = r
	return r
}

// symbol_key maps a name to a stable small integer used only for
// interning, so that two symbols with the same name and width unify.
func (ctx *Context) symbol_key(name string) int32 {
	for ii, s := range ctx.symbols {
		if s == name {
			return int32(ii)
		}
	}
	return int32(len(ctx.symbols))
}

func (ctx *Context) bv_lit(value bitVal) ExprRef {
	// intern by value index lookup
	for ii := range ctx.literals {
		if ctx.literals[ii].equal(value) {
			return ctx.intern(exprNode{op: opBVLiteral, width: value.width, sym: -1, lit: int32(ii)})
		}
	}
	var lit = int32(len(ctx.literals))
	ctx.literals = append(ctx.literals, value.clone())
	return ctx.intern(exprNode{op: opBVLiteral, width: value.width, sym: -1, lit: lit})
}

func (ctx *Context) bv_lit_u64(value uint64, width uint32) ExprRef {
	return ctx.bv_lit(bv_from_u64(value, width))
}

func (ctx *Context) zero(width uint32) ExprRef {
	return ctx.bv_lit_u64(0, width)
}

func (ctx *Context) one(width uint32) ExprRef {
	return ctx.bv_lit_u64(1, width)
}

func (ctx *Context) ones(width uint32) ExprRef {
	var v = bv_zero(width)
	v.set_all_ones()
	return ctx.bv_lit(v)
}

func (ctx *Context) unary(op exprOp, e ExprRef, width uint32) ExprRef {
	return ctx.intern(exprNode{op: op, width: width, args: [3]ExprRef{e}, sym: -1, lit: -1})
}

func (ctx *Context) not(e ExprRef) ExprRef {
	return ctx.unary(opNot, e, ctx.width(e))
}

func (ctx *Context) neg(e ExprRef) ExprRef {
	return ctx.unary(opNeg, e, ctx.width(e))
}

func (ctx *Context) redand(e ExprRef) ExprRef { return ctx.unary(opRedAnd, e, 1) }
func (ctx *Context) redor(e ExprRef) ExprRef  { return ctx.unary(opRedOr, e, 1) }
func (ctx *Context) redxor(e ExprRef) ExprRef { return ctx.unary(opRedXor, e, 1) }

func (ctx *Context) zext(e ExprRef, by uint32) ExprRef {
	if by == 0 {
		return e
	}
	var n = exprNode{op: opZeroExt, width: ctx.width(e) + by, index: by, args: [3]ExprRef{e}, sym: -1, lit: -1}
	return ctx.intern(n)
}

func (ctx *Context) sext(e ExprRef, by uint32) ExprRef {
	if by == 0 {
		return e
	}
	var n = exprNode{op: opSignExt, width: ctx.width(e) + by, index: by, args: [3]ExprRef{e}, sym: -1, lit: -1}
	return ctx.intern(n)
}

func (ctx *Context) slice(e ExprRef, hi, lo uint32) ExprRef {
	if hi < lo || hi >= ctx.width(e) {
		panic(fmt.Sprintf("invalid slice [%d:%d] of %d-bit expression", hi, lo, ctx.width(e)))
	}
	var n = exprNode{op: opSlice, width: hi - lo + 1, index: hi, lo: lo, args: [3]ExprRef{e}, sym: -1, lit: -1}
	return ctx.intern(n)
}

func (ctx *Context) binary(op exprOp, a, b ExprRef, width uint32) ExprRef {
	return ctx.intern(exprNode{op: op, width: width, args: [3]ExprRef{a, b}, sym: -1, lit: -1})
}

func (ctx *Context) and(a, b ExprRef) ExprRef { return ctx.binary(opAnd, a, b, ctx.width(a)) }
func (ctx *Context) or(a, b ExprRef) ExprRef  { return ctx.binary(opOr, a, b, ctx.width(a)) }
func (ctx *Context) xor(a, b ExprRef) ExprRef { return ctx.binary(opXor, a, b, ctx.width(a)) }
func (ctx *Context) add(a, b ExprRef) ExprRef { return ctx.binary(opAdd, a, b, ctx.width(a)) }
func (ctx *Context) sub(a, b ExprRef) ExprRef { return ctx.binary(opSub, a, b, ctx.width(a)) }
func (ctx *Context) mul(a, b ExprRef) ExprRef { return ctx.binary(opMul, a, b, ctx.width(a)) }
func (ctx *Context) udiv(a, b ExprRef) ExprRef {
	return ctx.binary(opUDiv, a, b, ctx.width(a))
}
func (ctx *Context) urem(a, b ExprRef) ExprRef {
	return ctx.binary(opURem, a, b, ctx.width(a))
}
func (ctx *Context) sdiv(a, b ExprRef) ExprRef {
	return ctx.binary(opSDiv, a, b, ctx.width(a))
}
func (ctx *Context) srem(a, b ExprRef) ExprRef {
	return ctx.binary(opSRem, a, b, ctx.width(a))
}

func (ctx *Context) shift_left(a, b ExprRef) ExprRef {
	return ctx.binary(opShiftLeft, a, b, ctx.width(a))
}

func (ctx *Context) shift_right(a, b ExprRef) ExprRef {
	return ctx.binary(opShiftRight, a, b, ctx.width(a))
}

func (ctx *Context) arith_shift_right(a, b ExprRef) ExprRef {
	return ctx.binary(opArithShiftRight, a, b, ctx.width(a))
}

func (ctx *Context) equal(a, b ExprRef) ExprRef { return ctx.binary(opEqual, a, b, 1) }

func (ctx *Context) not_equal(a, b ExprRef) ExprRef {
	return ctx.not(ctx.equal(a, b))
}

func (ctx *Context) greater(a, b ExprRef) ExprRef { return ctx.binary(opGreater, a, b, 1) }
func (ctx *Context) greater_equal(a, b ExprRef) ExprRef {
	return ctx.binary(opGreaterEqual, a, b, 1)
}
func (ctx *Context) greater_signed(a, b ExprRef) ExprRef {
	return ctx.binary(opGreaterSigned, a, b, 1)
}
func (ctx *Context) greater_equal_signed(a, b ExprRef) ExprRef {
	return ctx.binary(opGreaterEqualSigned, a, b, 1)
}

func (ctx *Context) implies(a, b ExprRef) ExprRef { return ctx.binary(opImplies, a, b, 1) }

func (ctx *Context) concat(a, b ExprRef) ExprRef {
	return ctx.binary(opConcat, a, b, ctx.width(a)+ctx.width(b))
}

func (ctx *Context) array_read(array, index ExprRef) ExprRef {
	return ctx.binary(opArrayRead, array, index, ctx.width(array))
}

func (ctx *Context) array_store(array, index, data ExprRef) ExprRef {
	var n = exprNode{
		op:    opArrayStore,
		width: ctx.width(array),
		index: ctx.get(array).index,
		args:  [3]ExprRef{array, index, data},
		sym:   -1,
		lit:   -1,
	}
	return ctx.intern(n)
}

func (ctx *Context) ite(cond, tru, fals ExprRef) ExprRef {
	var n = exprNode{op: opIte, width: ctx.width(tru), args: [3]ExprRef{cond, tru, fals}, sym: -1, lit: -1}
	if ctx.is_array(tru) {
		n.index = ctx.get(tru).index
	}
	return ctx.intern(n)
}

// num_children reports how many argument slots of a node are used.
func (n *exprNode) num_children() int {
	switch n.op {
	case opBVSymbol, opBVLiteral, opArraySymbol:
		return 0
	case opNot, opNeg, opRedAnd, opRedOr, opRedXor, opZeroExt, opSignExt, opSlice:
		return 1
	case opIte, opArrayStore:
		return 3
	default:
		return 2
	}
}

/*------------------------------------------------------------------
 *
 * Function:	serialize_expr
 *
 * Purpose:	Render an expression to a compact human readable string
 *		for --verbose output and error messages.
 *
 *------------------------------------------------------------------*/

var opNames = map[exprOp]string{
	opNot: "not", opNeg: "neg", opRedAnd: "redand", opRedOr: "redor", opRedXor: "redxor",
	opAnd: "and", opOr: "or", opXor: "xor", opAdd: "add", opSub: "sub", opMul: "mul",
	opUDiv: "udiv", opURem: "urem", opSDiv: "sdiv", opSRem: "srem",
	opShiftLeft: "shl", opShiftRight: "shr", opArithShiftRight: "ashr",
	opEqual: "eq", opGreater: "ugt", opGreaterEqual: "ugte",
	opGreaterSigned: "sgt", opGreaterEqualSigned: "sgte",
	opImplies: "implies", opConcat: "concat", opArrayRead: "read",
	opIte: "ite", opArrayStore: "store",
}

func (ctx *Context) serialize_expr(r ExprRef) string {
	var n = ctx.get(r)
	switch n.op {
	case opBVSymbol, opArraySymbol:
		return ctx.symbols[n.sym]
	case opBVLiteral:
		return ctx.literals[n.lit].to_string()
	case opZeroExt:
		return fmt.Sprintf("zext(%s, %d)", ctx.serialize_expr(n.args[0]), n.index)
	case opSignExt:
		return fmt.Sprintf("sext(%s, %d)", ctx.serialize_expr(n.args[0]), n.index)
	case opSlice:
		return fmt.Sprintf("%s[%d:%d]", ctx.serialize_expr(n.args[0]), n.index, n.lo)
	default:
		var parts []string
		for ii := 0; ii < n.num_children(); ii++ {
			parts = append(parts, ctx.serialize_expr(n.args[ii]))
		}
		return fmt.Sprintf("%s(%s)", opNames[n.op], strings.Join(parts, ", "))
	}
}
