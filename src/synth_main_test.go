package synth

import (
	"encoding/json"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run_synth runs the orchestrator with captured stdout and returns the
// decoded verdict.
func run_synth(t *testing.T, args ...string) (string, map[string]any) {
	t.Helper()
	var out = CaptureOutput(t, func() {
		require.NoError(t, synth_main(args))
	})
	var idx = strings.Index(out, "== RESULT ==")
	require.GreaterOrEqual(t, idx, 0, "output must contain the result needle")
	var jsonLine = strings.TrimSpace(out[idx+len("== RESULT =="):])
	// the verdict is the first line after the needle
	if nl := strings.IndexByte(jsonLine, '\n'); nl >= 0 {
		jsonLine = jsonLine[:nl]
	}
	var verdict map[string]any
	require.NoError(t, json.Unmarshal([]byte(jsonLine), &verdict))
	return out, verdict
}

// pick_solver returns an installed solver name or skips the test.
func pick_solver(t *testing.T) string {
	t.Helper()
	for name, bin := range map[string]string{"bitwuzla": "bitwuzla", "yices2": "yices-smt2", "z3": "z3"} {
		if _, err := exec.LookPath(bin); err == nil {
			return name
		}
	}
	t.Skip("no SMT solver installed")
	return ""
}

// Test_no_bug emits no-repair when the design matches the testbench
// (no solver involved).
func Test_no_bug(t *testing.T) {
	var design = write_temp_design(t, counterBtor)
	var tb = write_temp_tb(t, "en, count_out\n1, 0\n1, 1\n1, 2\n0, 3\n0, 3\n")

	var _, verdict = run_synth(t, "--design", design, "--testbench", tb)
	assert.Equal(t, "no-repair", verdict["status"])
	assert.Empty(t, verdict["solutions"])
}

// Test_bug_without_change_vars emits cannot-repair when the testbench
// fails but the template has no change variables.
func Test_bug_without_change_vars(t *testing.T) {
	var design = write_temp_design(t, counterBtor)
	var tb = write_temp_tb(t, "en, count_out\n1, 0\n1, 5\n")

	var _, verdict = run_synth(t, "--design", design, "--testbench", tb)
	assert.Equal(t, "cannot-repair", verdict["status"])
	assert.Empty(t, verdict["solutions"])
}

// Test_testbench_without_outputs cannot verify a repair and gives up
// immediately.
func Test_testbench_without_outputs(t *testing.T) {
	var design = write_temp_design(t, counterBtor)
	var tb = write_temp_tb(t, "en\n1\n1\n")

	var _, verdict = run_synth(t, "--design", design, "--testbench", tb)
	assert.Equal(t, "cannot-repair", verdict["status"])
}

func Test_missing_required_flags(t *testing.T) {
	assert.Error(t, synth_main([]string{"--design", "only.btor"}))
	assert.Error(t, synth_main([]string{"--testbench", "only.csv"}))
}

func Test_bad_design_file(t *testing.T) {
	var tb = write_temp_tb(t, "en\n1\n")
	assert.Error(t, synth_main([]string{"--design", "/does/not/exist.btor", "--testbench", tb}))
}

// invertTemplate is a template whose single change toggles an
// inversion on the output: out = in xor __synth_change_0.
const invertTemplate = `1 sort bitvec 1
2 input 1 in
3 state 1 __synth_change_0
4 xor 1 2 3
5 output 4 out
`

const invertTb = "in, out\n0, 1\n1, 0\n0, 1\n1, 0\n"

// Test_basic_repair_inverts finds the single-change repair with a
// real solver.
func Test_basic_repair_inverts(t *testing.T) {
	var solver = pick_solver(t)
	var design = write_temp_design(t, invertTemplate)
	var tb = write_temp_tb(t, invertTb)

	var _, verdict = run_synth(t,
		"--design", design, "--testbench", tb, "--solver", solver, "--init", "any")
	require.Equal(t, "success", verdict["status"])

	var solutions = verdict["solutions"].([]any)
	require.Len(t, solutions, 1)
	var assignment = solutions[0].(map[string]any)["assignment"].(map[string]any)
	assert.Equal(t, float64(1), assignment["__synth_change_0"])
}

func Test_incremental_repair_inverts(t *testing.T) {
	var solver = pick_solver(t)
	var design = write_temp_design(t, invertTemplate)
	var tb = write_temp_tb(t, invertTb)

	var _, verdict = run_synth(t,
		"--design", design, "--testbench", tb, "--solver", solver, "--incremental")
	require.Equal(t, "success", verdict["status"])
	var solutions = verdict["solutions"].([]any)
	require.Len(t, solutions, 1)
	var assignment = solutions[0].(map[string]any)["assignment"].(map[string]any)
	assert.Equal(t, float64(1), assignment["__synth_change_0"])
}

// Test_windowing_study sweeps the windows and still lands on success.
func Test_windowing_study(t *testing.T) {
	var solver = pick_solver(t)
	var design = write_temp_design(t, invertTemplate)
	var tb = write_temp_tb(t, invertTb)

	var out, verdict = run_synth(t,
		"--design", design, "--testbench", tb, "--solver", solver, "--windowing")
	require.Equal(t, "success", verdict["status"])
	assert.Contains(t, out, "minimal_repair_candidate_ns")
	assert.Contains(t, out, "correct_repair_tries")
}

// twoSiteTemplate has two independent bugs, both change bits must be
// asserted for the testbench to pass.
const twoSiteTemplate = `1 sort bitvec 1
2 input 1 a
3 input 1 b
4 state 1 __synth_change_0
5 state 1 __synth_change_1
6 xor 1 2 4
7 xor 1 3 5
8 output 6 out_a
9 output 7 out_b
`

func Test_minimality_two_sites(t *testing.T) {
	var solver = pick_solver(t)
	var design = write_temp_design(t, twoSiteTemplate)
	var tb = write_temp_tb(t, "a, b, out_a, out_b\n0, 0, 1, 1\n1, 1, 0, 0\n")

	var _, verdict = run_synth(t,
		"--design", design, "--testbench", tb, "--solver", solver)
	require.Equal(t, "success", verdict["status"])

	var solutions = verdict["solutions"].([]any)
	require.Len(t, solutions, 1)
	var assignment = solutions[0].(map[string]any)["assignment"].(map[string]any)
	assert.Equal(t, float64(1), assignment["__synth_change_0"])
	assert.Equal(t, float64(1), assignment["__synth_change_1"])
}

// hopelessTemplate has a change variable that cannot influence the
// broken output, so the filter proves cannot-repair without any
// unrolling.
const hopelessTemplate = `1 sort bitvec 1
2 input 1 in
3 state 1 __synth_change_0
4 output 2 out
`

func Test_filter_cuts_off_hopeless_design(t *testing.T) {
	var solver = pick_solver(t)
	var design = write_temp_design(t, hopelessTemplate)
	var tb = write_temp_tb(t, "in, out\n0, 1\n")

	var _, verdict = run_synth(t,
		"--design", design, "--testbench", tb, "--solver", solver)
	assert.Equal(t, "cannot-repair", verdict["status"])
}
