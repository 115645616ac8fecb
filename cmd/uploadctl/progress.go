package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/resumable/uploadkit/internal/progress"
)

// newProgressSink returns a progress.Sink matched to the output mode: a
// live, \r-overwritten line on an interactive terminal, or one JSON line
// per event when stdout is piped or --json is set.
func newProgressSink(forceJSON, quiet bool) progress.Sink {
	if quiet {
		return func(progress.Info) {}
	}

	if forceJSON || !isatty.IsTerminal(os.Stdout.Fd()) {
		return jsonSink
	}

	return liveLineSink
}

func jsonSink(info progress.Info) {
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(info)
}

func liveLineSink(info progress.Info) {
	fmt.Fprintf(os.Stderr, "\r%s", info.String())

	if info.Percentage >= 100 {
		fmt.Fprintln(os.Stderr)
	}
}
