package synth

import (
	"os"

	"github.com/charmbracelet/log"
)

// All diagnostics go to stderr so that stdout stays parseable (the
// verdict JSON and the windowing statistics lines live there).
var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: false,
})

func set_verbose(verbose bool) {
	if verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
}
