// Package scenario identifies a single behavioral test execution and carries
// it through a context.Context.
//
// Every scenario runs on its own goroutine with its own context. Components
// that keep per-scenario state (the session registry, the evidence recorder)
// key that state by the scenario carried in the context, so two scenarios
// running in parallel never observe each other's state.
package scenario

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrNoScenario is returned when a context does not carry a scenario.
var ErrNoScenario = errors.New("no scenario bound to context")

// Scenario describes one behavioral test execution.
type Scenario struct {
	// ID is unique per execution, even for scenarios sharing a name
	ID string

	// Name is the human-readable scenario name
	Name string

	// Tags are free-form labels used for selection
	Tags []string
}

// New creates a scenario with a fresh execution ID.
func New(name string, tags ...string) Scenario {
	return Scenario{
		ID:   uuid.New().String(),
		Name: name,
		Tags: tags,
	}
}

// HasTag reports whether the scenario carries the tag (case-insensitive).
func (s Scenario) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Outcome is the final verdict of a scenario.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeAborted Outcome = "aborted"
	OutcomeSkipped Outcome = "skipped"
)

// Failed reports whether the outcome counts as a failure.
func (o Outcome) Failed() bool {
	return o == OutcomeFailed || o == OutcomeAborted
}

type contextKey struct{}

type binding struct {
	scenario Scenario
	values   *Values
}

// WithScenario returns a context bound to sc with an empty Values store.
// Binding an already bound context replaces the scenario and its values.
func WithScenario(ctx context.Context, sc Scenario) context.Context {
	return context.WithValue(ctx, contextKey{}, &binding{
		scenario: sc,
		values:   newValues(),
	})
}

// FromContext returns the scenario bound to ctx.
func FromContext(ctx context.Context) (Scenario, bool) {
	b, ok := ctx.Value(contextKey{}).(*binding)
	if !ok || b == nil {
		return Scenario{}, false
	}
	return b.scenario, true
}

// KeyFromContext returns the execution ID of the scenario bound to ctx.
func KeyFromContext(ctx context.Context) (string, error) {
	sc, ok := FromContext(ctx)
	if !ok || sc.ID == "" {
		return "", ErrNoScenario
	}
	return sc.ID, nil
}

// ValuesFromContext returns the per-scenario value store bound to ctx.
func ValuesFromContext(ctx context.Context) (*Values, error) {
	b, ok := ctx.Value(contextKey{}).(*binding)
	if !ok || b == nil {
		return nil, ErrNoScenario
	}
	return b.values, nil
}
