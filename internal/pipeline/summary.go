package pipeline

import (
	"fmt"
	"strings"
)

// Summary separates completed lines from failed ones for the end-of-run
// report.
type Summary struct {
	Completed []Result
	Failed    []Result
}

// Summarize partitions the results of a run.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if r.Failed() {
			s.Failed = append(s.Failed, r)
		} else {
			s.Completed = append(s.Completed, r)
		}
	}
	return s
}

// AllFailed reports whether not a single line completed.
func (s Summary) AllFailed() bool {
	return len(s.Completed) == 0 && len(s.Failed) > 0
}

// String renders the user-visible report: which lines completed all four
// stages and where the failures stopped.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d lines cleaned, %d failed\n", len(s.Completed), len(s.Failed))
	for _, r := range s.Completed {
		fmt.Fprintf(&b, "  ok     %-8s %s threshold=%s rms=%.3gJy\n",
			r.Line.Molecule, r.Line.Campaign.Name, r.Threshold, r.RMSJy)
	}
	for _, r := range s.Failed {
		fmt.Fprintf(&b, "  failed %-8s %s at %s: %s\n",
			r.Line.Molecule, r.Line.Campaign.Name, r.FailedStage(), r.Err.Error())
	}
	return strings.TrimRight(b.String(), "\n")
}
