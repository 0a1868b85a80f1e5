package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/harness/pkg/scenario"
)

// Result is the verdict of one scenario run.
type Result struct {
	Scenario     scenario.Scenario
	Outcome      scenario.Outcome
	Err          error
	EvidencePath string
	Duration     time.Duration
}

// Body is the scenario code run between Before and After.
type Body func(ctx context.Context) error

// Run executes fn between Before and After. A session creation failure
// aborts the scenario without calling fn; a panic in fn fails it.
func (c *Controller) Run(ctx context.Context, sc scenario.Scenario, fn Body) Result {
	if sc.ID == "" {
		sc = scenario.New(sc.Name, sc.Tags...)
	}
	start := time.Now()

	runCtx, err := c.Before(ctx, sc)
	res := Result{Scenario: sc}
	if err != nil {
		res.Outcome, res.Err = scenario.OutcomeAborted, err
	} else {
		res.Err = invoke(runCtx, fn)
		res.Outcome = classify(runCtx, res.Err)
		if res.Outcome.Failed() {
			c.recorder.LogError(context.WithoutCancel(runCtx), "Scenario", res.Err)
		}
	}

	res.EvidencePath = c.After(runCtx, res.Outcome)
	res.Duration = time.Since(start)
	return res
}

func invoke(ctx context.Context, fn Body) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scenario panicked: %v", r)
		}
	}()
	return fn(ctx)
}

func classify(ctx context.Context, err error) scenario.Outcome {
	switch {
	case err == nil:
		return scenario.OutcomePassed
	case errors.Is(err, ErrSkip):
		return scenario.OutcomeSkipped
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return scenario.OutcomeAborted
	default:
		return scenario.OutcomeFailed
	}
}
