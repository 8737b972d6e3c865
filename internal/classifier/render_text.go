package classifier

import (
	"fmt"
	"io"
)

// ShowSettingsText writes the textual settings dump the text protocol's
// QUERY command wraps in STATUS/ENDSTATUS sentinels.
func (e *Experiment) ShowSettingsText(w io.Writer) {
	fmt.Fprintf(w, "ALGORITHM  : %s\n", e.AlgorithmName())
	fmt.Fprintf(w, "WEIGHTING  : %s\n", e.base.weighting)
	fmt.Fprintf(w, "NEIGHBORS  : %d\n", e.opts.K)
	fmt.Fprintf(w, "VERBOSITY  : %s\n", verbosityLabel(e.opts.Verbosity))
}

func verbosityLabel(v VerbosityFlag) string {
	labels := []struct {
		flag VerbosityFlag
		name string
	}{
		{DISTRIB, "DISTRIB"},
		{DISTANCE, "DISTANCE"},
		{MATCH_DEPTH, "MATCH_DEPTH"},
		{CONFIDENCE, "CONFIDENCE"},
		{NEAR_N, "NEAR_N"},
	}
	out := ""
	for _, l := range labels {
		if v&l.flag != 0 {
			if out != "" {
				out += " "
			}
			out += l.name
		}
	}
	if out == "" {
		return "(none)"
	}
	return out
}

// ShowBestNeighborsText writes the lines that fill the text protocol's
// NEIGHBORS/ENDNEIGHBORS block -- one neighbor per line, nearest first.
// The surrounding sentinels are the caller's (the text handler's)
// responsibility, matching the engine's split of concerns in spec.md
// §4.3.1.
func (e *Experiment) ShowBestNeighborsText(w io.Writer) {
	for _, n := range e.lastNeighbors {
		fmt.Fprintf(w, "%s %g %v\n", n.Class, n.Distance, n.Features)
	}
}
