package runner

import (
	"time"

	"github.com/entrhq/harness/pkg/lifecycle"
	"github.com/entrhq/harness/pkg/scenario"
)

// Summary tallies a run.
type Summary struct {
	Total    int
	Passed   int
	Failed   int
	Aborted  int
	Skipped  int
	Duration time.Duration
}

// Summarize counts outcomes.
func Summarize(results []lifecycle.Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		s.Duration += r.Duration
		switch r.Outcome {
		case scenario.OutcomePassed:
			s.Passed++
		case scenario.OutcomeFailed:
			s.Failed++
		case scenario.OutcomeAborted:
			s.Aborted++
		case scenario.OutcomeSkipped:
			s.Skipped++
		}
	}
	return s
}

// OK reports whether nothing failed or aborted.
func (s Summary) OK() bool {
	return s.Failed == 0 && s.Aborted == 0
}
