package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_grow_window(t *testing.T) {
	tests := []struct {
		name            string
		pastK, futureK StepInt
		failAt          StepInt
		stepSize        StepInt
		failures        []StepInt
		expectedPastK   StepInt
		expectedFutureK StepInt
	}{
		{
			name:   "no failures grows past_k",
			pastK:  0, futureK: 0, failAt: 10, stepSize: 2,
			expectedPastK: 2, expectedFutureK: 0,
		},
		{
			name:   "past_k is capped at fail_at",
			pastK:  9, futureK: 0, failAt: 10, stepSize: 2,
			expectedPastK: 10, expectedFutureK: 0,
		},
		{
			name:   "failure beyond the window pulls future_k out",
			pastK:  2, futureK: 1, failAt: 10, stepSize: 2,
			failures:      []StepInt{14, 12},
			expectedPastK: 2, expectedFutureK: 4,
		},
		{
			name:   "farthest failure wins",
			pastK:  0, futureK: 0, failAt: 10, stepSize: 2,
			failures:      []StepInt{11, 20, 15},
			expectedPastK: 0, expectedFutureK: 10,
		},
		{
			name:   "failures inside the window grow past_k instead",
			pastK:  2, futureK: 5, failAt: 10, stepSize: 2,
			failures:      []StepInt{12, 15},
			expectedPastK: 4, expectedFutureK: 5,
		},
		{
			name:   "stuck window does not move",
			pastK:  10, futureK: 5, failAt: 10, stepSize: 2,
			failures:      []StepInt{12},
			expectedPastK: 10, expectedFutureK: 5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var pastK, futureK = grow_window(tt.pastK, tt.futureK, tt.failAt, tt.stepSize, tt.failures)
			assert.Equal(t, tt.expectedPastK, pastK)
			assert.Equal(t, tt.expectedFutureK, futureK)
		})
	}
}

// Test_snapshot_cache_equivalence checks that reconstructing a cycle
// from snapshots matches running the testbench from cycle 0.
func Test_snapshot_cache_equivalence(t *testing.T) {
	var csv = "en, count_out\n1, x\n0, x\n1, x\n1, x\n1, x\n0, x\n1, x\n"
	var ctx, sys, tb = load_counter_tb(t, csv)
	var count = sys.states[0].symbol

	// reference values per cycle from a plain run
	var refSim = new_interpreter(ctx, sys)
	refSim.init(init_zero())
	var reference = make([]uint64, 0, int(tb.step_count()))
	for step := StepInt(0); step < tb.step_count(); step++ {
		reference = append(reference, refSim.get(count).to_u64())
		tb.run(refSim, &RunConfig{start: step, stop: stop_at_step(step)})
	}

	var sim = new_interpreter(ctx, sys)
	sim.init(init_zero())
	var cache = new_snapshot_cache(sim, tb, map[StepInt]SnapshotId{0: sim.take_snapshot()})

	// jump around out of order, every reconstruction must match
	for _, step := range []StepInt{4, 2, 6, 1, 4, 0, 5} {
		cache.update_sim_state_to_step(step)
		assert.Equal(t, reference[step], sim.get(count).to_u64(), "cycle %d", step)
	}
}

func Test_snapshot_cache_requires_cycle_zero(t *testing.T) {
	var ctx, sys, tb = load_counter_tb(t, "en, count_out\n1, x\n")
	var sim = new_interpreter(ctx, sys)
	assert.Panics(t, func() {
		new_snapshot_cache(sim, tb, map[StepInt]SnapshotId{})
	})
}

func Test_incremental_conf_defaults(t *testing.T) {
	var args, err = parse_synth_args([]string{"--design", "d.btor", "--testbench", "t.csv"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), args.pastKStepSize)
	assert.Equal(t, uint64(32), args.maxRepairWindowSize)
	assert.Equal(t, 0, args.maxIncorrectPerWindow)
	assert.Equal(t, "bitwuzla", args.solver)
	assert.Equal(t, "zero", args.init)
}

func Test_incremental_and_windowing_conflict(t *testing.T) {
	var _, err = parse_synth_args([]string{
		"--design", "d.btor", "--testbench", "t.csv", "--incremental", "--windowing",
	})
	assert.Error(t, err)
}
