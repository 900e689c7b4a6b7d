package synth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write_temp_design(t *testing.T, content string) string {
	t.Helper()
	var path = filepath.Join(t.TempDir(), "design.btor")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const counterBtor = `; a small counter
1 sort bitvec 8
2 sort bitvec 1
3 input 2 en
4 state 1 count
5 zero 1
6 init 1 4 5
7 one 1
8 add 1 4 7
9 ite 1 3 8 4
10 next 1 4 9
11 output 4 count_out
`

// Test_parse_counter parses a small counter design and checks the
// resulting transition system.
func Test_parse_counter(t *testing.T) {
	var ctx = new_context()
	var sys, err = parse_btor2_file(ctx, write_temp_design(t, counterBtor))
	require.NoError(t, err)

	require.Len(t, sys.inputs, 1)
	assert.Equal(t, "en", ctx.symbol_name(sys.inputs[0]))
	assert.Equal(t, uint32(1), ctx.width(sys.inputs[0]))

	require.Len(t, sys.states, 1)
	var st = sys.states[0]
	assert.Equal(t, "count", ctx.symbol_name(st.symbol))
	assert.Equal(t, uint32(8), ctx.width(st.symbol))
	assert.True(t, st.init.is_valid())
	assert.True(t, st.next.is_valid())

	require.Len(t, sys.outputs, 1)
	assert.Equal(t, "count_out", sys.outputs[0].name)
	assert.Equal(t, st.symbol, sys.outputs[0].expr)
}

func Test_parse_constants(t *testing.T) {
	var design = `1 sort bitvec 8
2 const 1 00001010
3 constd 1 10
4 consth 1 0a
5 output 2 a
6 output 3 b
7 output 4 c
`
	var ctx = new_context()
	var sys, err = parse_btor2_file(ctx, write_temp_design(t, design))
	require.NoError(t, err)
	require.Len(t, sys.outputs, 3)
	// all three spellings of 10 intern to the same literal
	assert.Equal(t, sys.outputs[0].expr, sys.outputs[1].expr)
	assert.Equal(t, sys.outputs[1].expr, sys.outputs[2].expr)
	assert.Equal(t, uint64(10), ctx.literal_value(sys.outputs[0].expr).to_u64())
}

func Test_parse_negated_node_ref(t *testing.T) {
	var design = `1 sort bitvec 1
2 input 1 a
3 output -2 not_a
`
	var ctx = new_context()
	var sys, err = parse_btor2_file(ctx, write_temp_design(t, design))
	require.NoError(t, err)
	require.Len(t, sys.outputs, 1)
	assert.Equal(t, "not(a)", ctx.serialize_expr(sys.outputs[0].expr))
}

func Test_parse_anonymous_input(t *testing.T) {
	var design = `1 sort bitvec 4
2 input 1
3 output 2 out
`
	var ctx = new_context()
	var sys, err = parse_btor2_file(ctx, write_temp_design(t, design))
	require.NoError(t, err)
	require.Len(t, sys.inputs, 1)
	assert.Contains(t, ctx.symbol_name(sys.inputs[0]), anonPrefix)
}

func Test_parse_errors(t *testing.T) {
	tests := []struct {
		name   string
		design string
	}{
		{name: "unknown sort", design: "1 input 7 a\n"},
		{name: "unknown node", design: "1 sort bitvec 4\n2 not 1 9\n"},
		{name: "unknown operator", design: "1 sort bitvec 4\n2 input 1 a\n3 frobnicate 1 2\n"},
		{name: "bad width", design: "1 sort bitvec 0\n"},
		{name: "width mismatch", design: "1 sort bitvec 4\n2 sort bitvec 8\n3 input 1 a\n4 not 2 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctx = new_context()
			var _, err = parse_btor2_file(ctx, write_temp_design(t, tt.design))
			assert.Error(t, err)
		})
	}
}

func Test_parse_array_design(t *testing.T) {
	var design = `1 sort bitvec 4
2 sort bitvec 8
3 sort array 1 2
4 state 3 mem
5 input 1 addr
6 input 2 data
7 write 3 4 5 6
8 next 3 4 7
9 read 2 4 5
10 output 9 rdata
`
	var ctx = new_context()
	var sys, err = parse_btor2_file(ctx, write_temp_design(t, design))
	require.NoError(t, err)
	require.Len(t, sys.states, 1)
	assert.True(t, ctx.is_array(sys.states[0].symbol))
	assert.Equal(t, uint32(8), ctx.width(sys.outputs[0].expr))
}
