package synth

/*------------------------------------------------------------------
 *
 * Purpose:	Parser for the btor2 netlist format.
 *
 * Description:	btor2 is a line oriented format: every line is
 *		`<id> <tag> <args...> [name]`, comments start with `;`.
 *		We support the subset emitted for repair templates:
 *		bit-vector and array sorts, constants, the usual
 *		operators, states with init/next and named I/O.
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
)

// anonPrefix marks symbols the design left unnamed.  The simplify pass
// replaces anonymous inputs with zero before analysis.
const anonPrefix = "@anon_"

type btorSort struct {
	isArray    bool
	width      uint32 // data width for arrays
	indexWidth uint32
}

type btorParser struct {
	ctx    *Context
	sys    *TransitionSystem
	sorts  map[int64]btorSort
	nodes  map[int64]ExprRef
	states map[int64]int // node id -> index into sys.states
	lineNo int
}

func parse_btor2_file(ctx *Context, filename string) (*TransitionSystem, error) {
	var f, err = os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var name = filename
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.TrimSuffix(name, ".btor")

	var p = &btorParser{
		ctx:    ctx,
		sys:    &TransitionSystem{name: name},
		sorts:  make(map[int64]btorSort),
		nodes:  make(map[int64]ExprRef),
		states: make(map[int64]int),
	}

	var scanner = bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		p.lineNo++
		if err := p.parse_line(scanner.Text()); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filename, p.lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return p.sys, nil
}

func (p *btorParser) errf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

func (p *btorParser) parse_line(line string) error {
	if idx := strings.IndexByte(line, ';'); idx >= 0 {
		line = line[:idx]
	}
	var tok = strings.Fields(line)
	if len(tok) == 0 {
		return nil
	}
	var id, err = strconv.ParseInt(tok[0], 10, 64)
	if err != nil {
		return p.errf("bad node id %q", tok[0])
	}
	if len(tok) < 2 {
		return p.errf("missing tag")
	}
	var tag = tok[1]
	var args = tok[2:]

	switch tag {
	case "sort":
		return p.parse_sort(id, args)
	case "input":
		return p.parse_input(id, args)
	case "state":
		return p.parse_state(id, args)
	case "output":
		return p.parse_output(id, args)
	case "init":
		return p.parse_init_next(args, true)
	case "next":
		return p.parse_init_next(args, false)
	case "const", "constd", "consth", "zero", "one", "ones":
		return p.parse_const(id, tag, args)
	case "constraint", "bad", "fair", "justice":
		// safety/liveness properties are not part of the repair flow
		logger.Warnf("ignoring btor2 %s property on line %d", tag, p.lineNo)
		return nil
	default:
		return p.parse_op(id, tag, args)
	}
}

func (p *btorParser) sort_arg(tok string) (btorSort, error) {
	var sid, err = strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return btorSort{}, p.errf("bad sort id %q", tok)
	}
	var s, ok = p.sorts[sid]
	if !ok {
		return btorSort{}, p.errf("unknown sort %d", sid)
	}
	return s, nil
}

// node_arg resolves a (possibly negated) node id.
func (p *btorParser) node_arg(tok string) (ExprRef, error) {
	var nid, err = strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return InvalidRef, p.errf("bad node id %q", tok)
	}
	var negated = nid < 0
	if negated {
		nid = -nid
	}
	var e, ok = p.nodes[nid]
	if !ok {
		return InvalidRef, p.errf("unknown node %d", nid)
	}
	if negated {
		e = p.ctx.not(e)
	}
	return e, nil
}

func (p *btorParser) parse_sort(id int64, args []string) error {
	if len(args) < 1 {
		return p.errf("sort needs arguments")
	}
	switch args[0] {
	case "bitvec":
		if len(args) < 2 {
			return p.errf("bitvec sort needs a width")
		}
		var w, err = strconv.ParseUint(args[1], 10, 32)
		if err != nil || w == 0 {
			return p.errf("bad bitvec width %q", args[1])
		}
		p.sorts[id] = btorSort{width: uint32(w)}
		return nil
	case "array":
		if len(args) < 3 {
			return p.errf("array sort needs index and element sorts")
		}
		var index, err = p.sort_arg(args[1])
		if err != nil {
			return err
		}
		data, err := p.sort_arg(args[2])
		if err != nil {
			return err
		}
		if index.isArray || data.isArray {
			return p.errf("nested array sorts are not supported")
		}
		p.sorts[id] = btorSort{isArray: true, width: data.width, indexWidth: index.width}
		return nil
	default:
		return p.errf("unknown sort kind %q", args[0])
	}
}

func (p *btorParser) symbol_name(id int64, args []string, nameIdx int) string {
	if len(args) > nameIdx {
		return args[nameIdx]
	}
	return fmt.Sprintf("%s%d", anonPrefix, id)
}

func (p *btorParser) parse_input(id int64, args []string) error {
	if len(args) < 1 {
		return p.errf("input needs a sort")
	}
	var sort, err = p.sort_arg(args[0])
	if err != nil {
		return err
	}
	if sort.isArray {
		return p.errf("array inputs are not supported")
	}
	var name = p.symbol_name(id, args, 1)
	var e = p.ctx.bv_symbol(name, sort.width)
	p.nodes[id] = e
	p.sys.add_input(e)
	return nil
}

func (p *btorParser) parse_state(id int64, args []string) error {
	if len(args) < 1 {
		return p.errf("state needs a sort")
	}
	var sort, err = p.sort_arg(args[0])
	if err != nil {
		return err
	}
	var name = p.symbol_name(id, args, 1)
	var e ExprRef
	if sort.isArray {
		e = p.ctx.array_symbol(name, sort.indexWidth, sort.width)
	} else {
		e = p.ctx.bv_symbol(name, sort.width)
	}
	p.nodes[id] = e
	p.states[id] = len(p.sys.states)
	p.sys.add_state(State{symbol: e})
	return nil
}

func (p *btorParser) parse_output(id int64, args []string) error {
	if len(args) < 1 {
		return p.errf("output needs a node")
	}
	var e, err = p.node_arg(args[0])
	if err != nil {
		return err
	}
	var name = p.symbol_name(id, args, 1)
	p.sys.add_output(name, e)
	return nil
}

func (p *btorParser) parse_init_next(args []string, isInit bool) error {
	if len(args) < 3 {
		return p.errf("init/next needs sort, state and value")
	}
	var sid, err = strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return p.errf("bad state id %q", args[1])
	}
	var stateIdx, ok = p.states[sid]
	if !ok {
		return p.errf("init/next for unknown state %d", sid)
	}
	value, err := p.node_arg(args[2])
	if err != nil {
		return err
	}
	if isInit {
		p.sys.states[stateIdx].init = value
	} else {
		p.sys.states[stateIdx].next = value
	}
	return nil
}

func (p *btorParser) parse_const(id int64, tag string, args []string) error {
	if len(args) < 1 {
		return p.errf("constant needs a sort")
	}
	var sort, err = p.sort_arg(args[0])
	if err != nil {
		return err
	}
	if sort.isArray {
		return p.errf("array constants are not supported")
	}
	var value bitVal
	switch tag {
	case "zero":
		value = bv_zero(sort.width)
	case "one":
		value = bv_from_u64(1, sort.width)
	case "ones":
		value = bv_zero(sort.width)
		value.set_all_ones()
	default:
		if len(args) < 2 {
			return p.errf("%s needs a value", tag)
		}
		var base = 2
		switch tag {
		case "constd":
			base = 10
		case "consth":
			base = 16
		}
		var num, ok = new(big.Int).SetString(args[1], base)
		if !ok {
			return p.errf("bad %s value %q", tag, args[1])
		}
		value = bv_from_big(num, sort.width)
	}
	p.nodes[id] = p.ctx.bv_lit(value)
	return nil
}

func (p *btorParser) parse_op(id int64, tag string, args []string) error {
	if len(args) < 1 {
		return p.errf("%s needs a sort", tag)
	}
	var sort, err = p.sort_arg(args[0])
	if err != nil {
		return err
	}
	// slice/uext/sext take immediates after one node argument, every
	// other operator takes node arguments only
	var numImms = 0
	switch tag {
	case "uext", "sext":
		numImms = 1
	case "slice":
		numImms = 2
	}
	var rest = args[1:]
	if len(rest) < numImms+1 {
		return p.errf("not enough arguments for %s", tag)
	}
	var ops = make([]ExprRef, 0, 3)
	for _, a := range rest[:len(rest)-numImms] {
		var e, err = p.node_arg(a)
		if err != nil {
			return err
		}
		ops = append(ops, e)
	}
	var numeric = make([]uint32, 0, 2)
	for _, a := range rest[len(rest)-numImms:] {
		var n, err = strconv.ParseUint(a, 10, 32)
		if err != nil {
			return p.errf("bad argument %q for %s", a, tag)
		}
		numeric = append(numeric, uint32(n))
	}

	var ctx = p.ctx
	var e ExprRef
	switch tag {
	case "not":
		e = ctx.not(ops[0])
	case "neg":
		e = ctx.neg(ops[0])
	case "inc":
		e = ctx.add(ops[0], ctx.one(sort.width))
	case "dec":
		e = ctx.sub(ops[0], ctx.one(sort.width))
	case "redand":
		e = ctx.redand(ops[0])
	case "redor":
		e = ctx.redor(ops[0])
	case "redxor":
		e = ctx.redxor(ops[0])
	case "uext":
		e = ctx.zext(ops[0], numeric[0])
	case "sext":
		e = ctx.sext(ops[0], numeric[0])
	case "slice":
		e = ctx.slice(ops[0], numeric[0], numeric[1])
	case "and":
		e = ctx.and(ops[0], ops[1])
	case "nand":
		e = ctx.not(ctx.and(ops[0], ops[1]))
	case "or":
		e = ctx.or(ops[0], ops[1])
	case "nor":
		e = ctx.not(ctx.or(ops[0], ops[1]))
	case "xor":
		e = ctx.xor(ops[0], ops[1])
	case "xnor":
		e = ctx.not(ctx.xor(ops[0], ops[1]))
	case "add":
		e = ctx.add(ops[0], ops[1])
	case "sub":
		e = ctx.sub(ops[0], ops[1])
	case "mul":
		e = ctx.mul(ops[0], ops[1])
	case "udiv":
		e = ctx.udiv(ops[0], ops[1])
	case "urem":
		e = ctx.urem(ops[0], ops[1])
	case "sdiv":
		e = ctx.sdiv(ops[0], ops[1])
	case "srem":
		e = ctx.srem(ops[0], ops[1])
	case "sll":
		e = ctx.shift_left(ops[0], ops[1])
	case "srl":
		e = ctx.shift_right(ops[0], ops[1])
	case "sra":
		e = ctx.arith_shift_right(ops[0], ops[1])
	case "eq", "iff":
		e = ctx.equal(ops[0], ops[1])
	case "neq":
		e = ctx.not_equal(ops[0], ops[1])
	case "implies":
		e = ctx.implies(ops[0], ops[1])
	case "ugt":
		e = ctx.greater(ops[0], ops[1])
	case "ugte":
		e = ctx.greater_equal(ops[0], ops[1])
	case "ult":
		e = ctx.greater(ops[1], ops[0])
	case "ulte":
		e = ctx.greater_equal(ops[1], ops[0])
	case "sgt":
		e = ctx.greater_signed(ops[0], ops[1])
	case "sgte":
		e = ctx.greater_equal_signed(ops[0], ops[1])
	case "slt":
		e = ctx.greater_signed(ops[1], ops[0])
	case "slte":
		e = ctx.greater_equal_signed(ops[1], ops[0])
	case "concat":
		e = ctx.concat(ops[0], ops[1])
	case "read":
		e = ctx.array_read(ops[0], ops[1])
	case "ite":
		e = ctx.ite(ops[0], ops[1], ops[2])
	case "write":
		e = ctx.array_store(ops[0], ops[1], ops[2])
	default:
		return p.errf("unsupported btor2 operator %q", tag)
	}
	if !sort.isArray && ctx.width(e) != sort.width {
		return p.errf("%s: result width %d does not match sort width %d", tag, ctx.width(e), sort.width)
	}
	p.nodes[id] = e
	return nil
}
