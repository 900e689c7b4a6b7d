package synth

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// CaptureOutput redirects stdout while the command runs and returns
// everything it printed.  The verdict tests grep the result for the
// "== RESULT ==" needle and the JSON behind it.
func CaptureOutput(t *testing.T, command func()) string {
	t.Helper()

	var oldStdout = os.Stdout
	defer func() {
		os.Stdout = oldStdout
	}()

	var r, w, pipeErr = os.Pipe()
	require.NoError(t, pipeErr)
	os.Stdout = w

	command()

	w.Close()
	os.Stdout = oldStdout

	var outputBytes, readErr = io.ReadAll(r)
	require.NoError(t, readErr)

	return string(outputBytes)
}
