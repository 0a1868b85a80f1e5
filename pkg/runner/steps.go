package runner

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/entrhq/harness/pkg/evidence"
	"github.com/entrhq/harness/pkg/scenario"
	"github.com/entrhq/harness/pkg/session"
)

// stepEnv is what a step can reach while it runs.
type stepEnv struct {
	baseURL  string
	registry *session.Registry
	recorder *evidence.Recorder
	values   *scenario.Values
}

// expand substitutes $key and ${key} with scenario values. Unknown keys
// expand to "".
func (e *stepEnv) expand(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	return os.Expand(s, func(key string) string {
		v, _ := e.values.GetString(key)
		return v
	})
}

func (e *stepEnv) resolveURL(target string) string {
	if e.baseURL == "" || strings.Contains(target, "://") {
		return target
	}
	return strings.TrimRight(e.baseURL, "/") + "/" + strings.TrimLeft(target, "/")
}

func (e *stepEnv) session(ctx context.Context) (*session.Session, error) {
	return e.registry.Get(ctx)
}

// execute runs one step and records it as evidence.
func (e *stepEnv) execute(ctx context.Context, step Step) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch step.Action() {
	case "navigate":
		target := e.resolveURL(e.expand(step.Navigate))
		return e.browse(ctx, "Navigate to "+target, func(s *session.Session) error {
			return s.Navigate(target)
		})

	case "click":
		return e.browse(ctx, "Click "+step.Click, func(s *session.Session) error {
			return s.Click(step.Click)
		})

	case "fill":
		value := e.expand(step.Fill.Value)
		return e.browse(ctx, "Fill "+step.Fill.Selector, func(s *session.Session) error {
			return s.Fill(step.Fill.Selector, value)
		})

	case "wait":
		return e.browse(ctx, "Wait for "+step.Wait, func(s *session.Session) error {
			return s.WaitFor(step.Wait)
		})

	case "expect_title":
		want := e.expand(step.ExpectTitle)
		return e.browse(ctx, fmt.Sprintf("Expect title %q", want), func(s *session.Session) error {
			got, err := s.Title()
			if err != nil {
				return err
			}
			if got != want {
				return fmt.Errorf("expected title %q, got %q", want, got)
			}
			return nil
		})

	case "screenshot":
		return e.browse(ctx, "Screenshot "+step.Screenshot, func(s *session.Session) error {
			shot, err := s.Screenshot()
			if err != nil {
				return err
			}
			e.recorder.Attach(ctx, shot, "image/png", step.Screenshot)
			return nil
		})

	case "record":
		if len(step.Record.Lines) > 0 {
			lines := make([]string, len(step.Record.Lines))
			for i, line := range step.Record.Lines {
				lines[i] = e.expand(line)
			}
			e.recorder.RecordMany(ctx, step.Record.Label, lines...)
			return nil
		}
		e.recorder.Record(ctx, step.Record.Label, e.expand(step.Record.Message))
		return nil

	case "set":
		value := e.expand(step.Set.Value)
		e.values.Put(step.Set.Key, value)
		e.recorder.Recordf(ctx, "Context", "%s = %q", step.Set.Key, value)
		return nil

	case "expect_value":
		want := e.expand(step.ExpectValue.Value)
		got, ok := e.values.GetString(step.ExpectValue.Key)
		if !ok {
			return fmt.Errorf("value %q is not set", step.ExpectValue.Key)
		}
		if got != want {
			return fmt.Errorf("expected %s = %q, got %q", step.ExpectValue.Key, want, got)
		}
		e.recorder.LogTestStep(ctx, fmt.Sprintf("Verified %s = %q", step.ExpectValue.Key, want))
		return nil

	case "assert":
		return e.browse(ctx, "Assert "+step.Assert, func(s *session.Session) error {
			return checkCondition(step.condition, step.Assert, conditionEnv(s, e.values))
		})

	default:
		return fmt.Errorf("step has no single action")
	}
}

// browse runs a step against the scenario's session.
func (e *stepEnv) browse(ctx context.Context, description string, fn func(*session.Session) error) error {
	s, err := e.session(ctx)
	if err != nil {
		return err
	}
	e.recorder.LogTestStep(ctx, description)
	if err := fn(s); err != nil {
		return fmt.Errorf("%s: %w", description, err)
	}
	return nil
}
