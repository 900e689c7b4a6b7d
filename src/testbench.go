package synth

/*------------------------------------------------------------------
 *
 * Purpose:	Testbench: per-cycle inputs and expected outputs from a
 *		CSV file, with don't-care (X) semantics.
 *
 * Description:	The file is memory mapped, the cells are copied into a
 *		packed word representation and the mapping is dropped
 *		before load returns.  Every I/O occupies
 *		ceil((width+1)/64) words per row; the extra bit of
 *		capacity lets an all-ones word pattern stand for X
 *		without colliding with a real value.
 *
 *		During simulation X inputs are not applied (the
 *		simulator retains its prior value) and X outputs are
 *		not checked.  During SMT encoding no equality is
 *		asserted for X cells.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"math/big"
	"math/rand"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

type tbIO struct {
	ref     ExprRef
	name    string
	width   uint32
	words   int // ceil((width+1)/64)
	offset  int // word offset inside a row
	isInput bool
	inCSV   bool
}

type Testbench struct {
	ios       []tbIO // inputs first, then outputs
	data      []uint64
	stepWords int
	stepCount StepInt

	// outputs declared by the system but absent from the CSV; if all
	// outputs are missing there is no way to check correctness
	missingOutputs []string

	traceSim bool
}

type RunConfig struct {
	start StepInt
	stop  StopAt
}

type StopAt struct {
	at        *StepInt
	firstFail bool
}

func stop_at_first_fail() StopAt {
	return StopAt{firstFail: true}
}

// stop_at_step runs up to the given cycle (inclusive) with no output
// checking; the snapshot cache uses it to reconstruct states.
func stop_at_step(step StepInt) StopAt {
	return StopAt{at: &step}
}

type RunResult struct {
	firstFailAt *StepInt
}

func (r RunResult) is_success() bool {
	return r.firstFailAt == nil
}

/*------------------------------------------------------------------
 *
 * Function:	load_testbench
 *
 * Purpose:	Memory map the CSV, match the header against the
 *		system's I/O and copy all cells into packed words.
 *
 *------------------------------------------------------------------*/

func load_testbench(ctx *Context, sys *TransitionSystem, filename string, traceSim bool) (*Testbench, error) {
	var f, err = os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("testbench %q is empty", filename)
	}
	mapped, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("failed to memory map %q: %w", filename, err)
	}
	// all cells are copied into the packed representation below, the
	// mapping does not need to outlive the load
	defer unix.Munmap(mapped)

	var tb = &Testbench{traceSim: traceSim}

	// parse header and match columns against the system
	var headerEnd = line_end(mapped, 0)
	var header = split_cells(mapped[:headerEnd])
	var colToIO = make(map[int]int)
	var nameToCol = make(map[string]int)
	for col, cell := range header {
		var name = string(cell)
		var kind, isIn, isOut = sys.signal_kind(ctx, name)
		if isIn && isOut {
			return nil, fmt.Errorf("signal %q is both an input and an output, this is not supported", name)
		}
		if kind == SignalOther {
			logger.Warnf("testbench column %q does not match any signal, ignoring it", name)
			continue
		}
		nameToCol[name] = col
	}

	var nameToRef = sys.generate_name_to_ref(ctx)
	var add_io = func(name string, isInput bool) {
		var ref = nameToRef[name]
		var width = ctx.width(ref)
		var io = tbIO{
			ref:     ref,
			name:    name,
			width:   width,
			words:   int((width+1)+63) / 64,
			offset:  tb.stepWords,
			isInput: isInput,
		}
		if col, ok := nameToCol[name]; ok {
			io.inCSV = true
			colToIO[col] = len(tb.ios)
		} else if !isInput {
			tb.missingOutputs = append(tb.missingOutputs, name)
		}
		tb.stepWords += io.words
		tb.ios = append(tb.ios, io)
	}
	for _, in := range sys.inputs {
		add_io(ctx.symbol_name(in), true)
	}
	for _, o := range sys.outputs {
		if o.name == changeCountName {
			continue
		}
		add_io(o.name, false)
	}

	// copy the rows
	var pos = headerEnd
	for pos < len(mapped) {
		var end = line_end(mapped, pos)
		var line = mapped[pos:end]
		pos = end
		if len(trim_cell(line)) == 0 {
			continue
		}
		var row = make([]uint64, tb.stepWords)
		// everything starts out as X
		for ii := range row {
			row[ii] = ^uint64(0)
		}
		for col, cell := range split_cells(line) {
			var ioIdx, ok = colToIO[col]
			if !ok {
				continue
			}
			var io = &tb.ios[ioIdx]
			var text = string(cell)
			if text == "" || text == "x" || text == "X" {
				continue
			}
			var value, err = parse_tb_value(text, io.width)
			if err != nil {
				return nil, fmt.Errorf("%s, cycle %d, column %q: %w", filename, tb.stepCount, io.name, err)
			}
			for ii := range row[io.offset : io.offset+io.words] {
				row[io.offset+ii] = 0
			}
			copy(row[io.offset:io.offset+io.words], value.words)
		}
		tb.data = append(tb.data, row...)
		tb.stepCount++
	}
	if tb.stepCount == 0 {
		return nil, fmt.Errorf("testbench %q has no data rows", filename)
	}
	return tb, nil
}

func line_end(data []byte, start int) int {
	for ii := start; ii < len(data); ii++ {
		if data[ii] == '\n' {
			return ii + 1
		}
	}
	return len(data)
}

func split_cells(line []byte) [][]byte {
	line = trim_cell(line)
	var out [][]byte
	var start = 0
	for ii := 0; ii <= len(line); ii++ {
		if ii == len(line) || line[ii] == ',' {
			out = append(out, trim_cell(line[start:ii]))
			start = ii + 1
		}
	}
	return out
}

// trim_cell removes whitespace around the edges.
func trim_cell(data []byte) []byte {
	var start = 0
	for start < len(data) && is_cell_space(data[start]) {
		start++
	}
	var end = len(data)
	for end > start && is_cell_space(data[end-1]) {
		end--
	}
	return data[start:end]
}

func is_cell_space(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func parse_tb_value(text string, width uint32) (bitVal, error) {
	var base = 10
	switch {
	case strings.HasPrefix(text, "0x"), strings.HasPrefix(text, "0X"):
		base = 16
		text = text[2:]
	case strings.HasPrefix(text, "0b"), strings.HasPrefix(text, "0B"):
		base = 2
		text = text[2:]
	}
	var num, ok = new(big.Int).SetString(text, base)
	if !ok || num.Sign() < 0 {
		return bitVal{}, fmt.Errorf("bad value %q", text)
	}
	if num.BitLen() > int(width) {
		return bitVal{}, fmt.Errorf("value %q does not fit into %d bits", text, width)
	}
	return bv_from_big(num, width), nil
}

func (tb *Testbench) step_count() StepInt {
	return tb.stepCount
}

// has_output_checks reports whether at least one system output can be
// checked against the testbench.
func (tb *Testbench) has_output_checks() bool {
	for ii := range tb.ios {
		if !tb.ios[ii].isInput && tb.ios[ii].inCSV {
			return true
		}
	}
	return false
}

func (tb *Testbench) row(step StepInt) []uint64 {
	var start = int(step) * tb.stepWords
	return tb.data[start : start+tb.stepWords]
}

func (tb *Testbench) is_x(io *tbIO, step StepInt) bool {
	var row = tb.row(step)
	for _, w := range row[io.offset : io.offset+io.words] {
		if w != ^uint64(0) {
			return false
		}
	}
	return true
}

func (tb *Testbench) cell_value(io *tbIO, step StepInt) bitVal {
	var out = bv_zero(io.width)
	copy(out.words, tb.row(step)[io.offset:io.offset+io.words])
	out.mask()
	return out
}

func (tb *Testbench) set_cell(io *tbIO, step StepInt, value bitVal) {
	var row = tb.row(step)
	for ii := range row[io.offset : io.offset+io.words] {
		row[io.offset+ii] = 0
	}
	copy(row[io.offset:io.offset+io.words], value.words)
}

/*------------------------------------------------------------------
 *
 * Function:	define_inputs
 *
 * Purpose:	Fill the inputs the CSV does not drive.  They were
 *		synthesized as all-X on load; zero fill or a PRNG with
 *		a fixed seed makes the stimulus deterministic.
 *
 *------------------------------------------------------------------*/

func (tb *Testbench) define_inputs(kind InitKind) {
	var rng *rand.Rand
	if kind.random {
		rng = rand.New(rand.NewSource(kind.seed))
	}
	for ii := range tb.ios {
		var io = &tb.ios[ii]
		if !io.isInput || io.inCSV {
			continue
		}
		for step := StepInt(0); step < tb.stepCount; step++ {
			if !tb.is_x(io, step) {
				continue
			}
			var value = bv_zero(io.width)
			if rng != nil {
				for jj := range value.words {
					value.words[jj] = rng.Uint64()
				}
				value.mask()
			}
			tb.set_cell(io, step, value)
		}
	}
}

/*------------------------------------------------------------------
 *
 * Function:	run
 *
 * Purpose:	Drive the simulator over the trace: apply non-X
 *		inputs, settle, compare non-X outputs word-for-word,
 *		then step.  Returns the earliest failing cycle.
 *
 *------------------------------------------------------------------*/

func (tb *Testbench) run(sim *Interpreter, conf *RunConfig) RunResult {
	var result = RunResult{}
	var checking = conf.stop.at == nil
	for step := conf.start; step < tb.stepCount; step++ {
		if conf.stop.at != nil && step > *conf.stop.at {
			break
		}
		for ii := range tb.ios {
			var io = &tb.ios[ii]
			if !io.isInput || tb.is_x(io, step) {
				continue
			}
			sim.set(io.ref, tb.cell_value(io, step))
		}
		sim.update()
		if tb.traceSim {
			tb.trace_step(sim, step)
		}
		if checking {
			for ii := range tb.ios {
				var io = &tb.ios[ii]
				if io.isInput || !io.inCSV || tb.is_x(io, step) {
					continue
				}
				var expected = tb.cell_value(io, step)
				var actual = sim.get(io.ref)
				if !actual.equal(expected) && result.firstFailAt == nil {
					logger.Debugf("cycle %d: output %s = %s, expected %s",
						step, io.name, actual.to_string(), expected.to_string())
					var failed = step
					result.firstFailAt = &failed
				}
			}
			if result.firstFailAt != nil && conf.stop.firstFail {
				return result
			}
		}
		sim.step()
	}
	return result
}

func (tb *Testbench) trace_step(sim *Interpreter, step StepInt) {
	var parts = make([]string, 0, len(tb.ios))
	for ii := range tb.ios {
		var io = &tb.ios[ii]
		parts = append(parts, fmt.Sprintf("%s=%s", io.name, sim.get(io.ref).to_string()))
	}
	logger.Infof("cycle %4d: %s", step, strings.Join(parts, " "))
}

/*------------------------------------------------------------------
 *
 * Function:	apply_constraints
 *
 * Purpose:	Assert one equality per non-X cell over the given
 *		cycle range (inclusive).
 *
 *------------------------------------------------------------------*/

func (tb *Testbench) apply_constraints(smt *smtSession, enc *UnrollSmtEncoding, start, end StepInt) error {
	for step := start; step <= end && step < tb.stepCount; step++ {
		for ii := range tb.ios {
			var io = &tb.ios[ii]
			// inputs filled by the generator are not X anymore and get
			// constrained like CSV cells
			if tb.is_x(io, step) {
				continue
			}
			var term, err = enc.get_at(smt, io.ref, step)
			if err != nil {
				return err
			}
			var value = tb.cell_value(io, step)
			if err := smt.assert(fmt.Sprintf("(= %s %s)", term, smt_literal(value))); err != nil {
				return err
			}
		}
	}
	return nil
}
