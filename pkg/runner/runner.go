// Package runner executes YAML scenario suites through the lifecycle
// controller, several scenarios at a time.
package runner

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/entrhq/harness/pkg/lifecycle"
	"github.com/entrhq/harness/pkg/logging"
	"github.com/entrhq/harness/pkg/scenario"
)

// Runner runs suites.
type Runner struct {
	controller  *lifecycle.Controller
	parallelism int
	timeout     time.Duration
	logger      logging.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithParallelism bounds how many scenarios run at once.
func WithParallelism(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// WithTimeout bounds each scenario. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithLogger sets the runner logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Runner) { r.logger = logging.OrDiscard(l) }
}

// New creates a runner.
func New(controller *lifecycle.Controller, opts ...Option) *Runner {
	r := &Runner{
		controller:  controller,
		parallelism: 1,
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the scenarios of suite selected by filter and returns their
// results in suite order. A scenario failure never stops the others; only
// cancellation of ctx ends the run early.
func (r *Runner) Run(ctx context.Context, suite *Suite, filter *Filter) ([]lifecycle.Result, error) {
	defs := filter.Select(suite.Scenarios)
	results := make([]lifecycle.Result, len(defs))

	r.logger.Infof("Running %d of %d scenarios from suite %q (parallelism %d)", len(defs), len(suite.Scenarios), suite.Name, r.parallelism)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)

	for i, def := range defs {
		g.Go(func() error {
			results[i] = r.runScenario(gctx, suite, def)
			return nil // failures live in the result
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func (r *Runner) runScenario(ctx context.Context, suite *Suite, def ScenarioDef) lifecycle.Result {
	sc := scenario.New(def.Name, def.Tags...)

	if err := ctx.Err(); err != nil {
		return lifecycle.Result{Scenario: sc, Outcome: scenario.OutcomeSkipped, Err: err}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	res := r.controller.Run(ctx, sc, func(ctx context.Context) error {
		values, err := scenario.ValuesFromContext(ctx)
		if err != nil {
			return err
		}
		env := &stepEnv{
			baseURL:  suite.BaseURL,
			registry: r.controller.Registry(),
			recorder: r.controller.Recorder(),
			values:   values,
		}
		for _, step := range def.Steps {
			if err := env.execute(ctx, step); err != nil {
				return err
			}
		}
		return nil
	})

	if res.Outcome.Failed() {
		r.logger.Warnf("Scenario %q %s: %v", def.Name, res.Outcome, res.Err)
	} else {
		r.logger.Infof("Scenario %q %s in %s", def.Name, res.Outcome, res.Duration.Round(time.Millisecond))
	}
	return res
}
