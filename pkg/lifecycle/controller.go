// Package lifecycle wraps every scenario in a before/after pair that opens
// an evidence capture and a browser session, and always tears both down.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/entrhq/harness/pkg/evidence"
	"github.com/entrhq/harness/pkg/logging"
	"github.com/entrhq/harness/pkg/scenario"
	"github.com/entrhq/harness/pkg/session"
	"github.com/entrhq/harness/pkg/telemetry"
)

// Screenshot labels used by After.
const (
	FailedScreenshot  = "Failed Test Screenshot"
	SuccessScreenshot = "Successful Test Screenshot"
)

// ErrSkip marks a scenario body that chose not to run.
var ErrSkip = errors.New("scenario skipped")

// Controller composes the session factory, the registry and the evidence
// recorder around a scenario.
type Controller struct {
	factory  *session.Factory
	registry *session.Registry
	recorder *evidence.Recorder
	backend  session.Backend

	logger            logging.Logger
	metrics           *telemetry.Metrics
	pageTextOnFailure bool
	now               func() time.Time

	mu      sync.Mutex
	started map[string]time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.logger = logging.OrDiscard(l) }
}

// WithMetrics enables scenario outcome metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithPageTextOnFailure attaches the page's visible text to failed scenarios.
func WithPageTextOnFailure(enabled bool) Option {
	return func(c *Controller) { c.pageTextOnFailure = enabled }
}

// New creates a controller that provisions backend for every scenario.
func New(factory *session.Factory, registry *session.Registry, recorder *evidence.Recorder, backend session.Backend, opts ...Option) *Controller {
	c := &Controller{
		factory:  factory,
		registry: registry,
		recorder: recorder,
		backend:  backend,
		logger:   logging.Discard(),
		now:      time.Now,
		started:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry scenario code reads its session from.
func (c *Controller) Registry() *session.Registry {
	return c.registry
}

// Recorder returns the evidence recorder.
func (c *Controller) Recorder() *evidence.Recorder {
	return c.recorder
}

// Before binds sc to ctx, opens the evidence capture and creates the
// scenario's session. The returned context must be passed to the scenario
// body and to After. A session creation failure is returned as is; the
// capture stays open so After can persist the failure.
func (c *Controller) Before(ctx context.Context, sc scenario.Scenario) (context.Context, error) {
	if sc.ID == "" {
		sc = scenario.New(sc.Name, sc.Tags...)
	}
	ctx = scenario.WithScenario(ctx, sc)
	ctx, _ = telemetry.StartSpan(ctx, "scenario "+sc.Name, trace.WithAttributes(
		telemetry.AttrScenarioID.String(sc.ID),
		telemetry.AttrScenarioName.String(sc.Name),
	))

	c.mu.Lock()
	c.started[sc.ID] = c.now()
	c.mu.Unlock()

	if err := c.recorder.Start(ctx, sc.Name); err != nil {
		c.logger.Errorf("Failed to start log capture for %q: %v", sc.Name, err)
	}
	c.logger.Infof("=== Starting Test Scenario: %s ===", sc.Name)

	var desc session.Descriptor
	if c.backend != nil {
		desc = c.backend.Descriptor()
	}
	c.recorder.Recordf(ctx, "Session Setup", "Initializing browser session (%s)...", desc)

	s, err := c.factory.Create(ctx, c.backend)
	if err != nil {
		c.recorder.Recordf(ctx, "Session Setup", "Failed to initialize browser session: %v", err)
		telemetry.RecordError(ctx, err)
		return ctx, err
	}

	if err := c.registry.Set(ctx, s); err != nil {
		// Unreachable with a bound context, but never leak the browser.
		_ = c.factory.Close(s)
		return ctx, &session.CreationError{Backend: desc, Err: err}
	}

	actual := s.Backend.Descriptor()
	telemetry.AddEvent(ctx, "session.created",
		telemetry.AttrEngine.String(string(actual.Engine)),
		telemetry.AttrTarget.String(string(actual.Target)),
	)
	c.recorder.Recordf(ctx, "Session Setup", "Browser session initialized successfully (%s)", actual)
	return ctx, nil
}

// After tears the scenario down: outcome screenshot, session close and
// registry removal, then the evidence file. It always completes and returns
// the evidence file path ("" when nothing was written). Calling it twice, or
// without Before, is safe.
func (c *Controller) After(ctx context.Context, outcome scenario.Outcome) (path string) {
	sc, ok := scenario.FromContext(ctx)
	if !ok {
		c.logger.Warnf("After called without a scenario in context")
		return ""
	}
	// Teardown must still reach the sink when the scenario timed out or
	// the run was interrupted.
	ctx = context.WithoutCancel(ctx)

	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorf("Teardown of %q panicked: %v", sc.Name, r)
			c.registry.Remove(ctx)
			path = c.recorder.Stop(ctx, outcome)
		}
	}()

	c.logger.Infof("=== Finishing Test Scenario: %s ===", sc.Name)
	c.recorder.Recordf(ctx, "Test Result", "Scenario %s: %s", outcome, sc.Name)

	c.captureFinalState(ctx, outcome)
	c.closeSession(ctx)
	path = c.recorder.Stop(ctx, outcome)

	c.finish(ctx, sc, outcome, path)
	return path
}

// captureFinalState screenshots the page, plus its text on failure.
func (c *Controller) captureFinalState(ctx context.Context, outcome scenario.Outcome) {
	if !c.registry.IsInitialized(ctx) {
		return
	}
	s, err := c.registry.Get(ctx)
	if err != nil {
		return
	}

	label := SuccessScreenshot
	if outcome.Failed() {
		label = FailedScreenshot
	}

	c.recorder.Record(ctx, "Screenshot", "Taking screenshot for test evidence...")
	shot, err := s.Screenshot()
	if err != nil {
		c.metrics.CaptureFailed(evidence.OpScreenshot)
		c.logger.Errorf("Failed to take screenshot: %v", err)
		c.recorder.LogError(ctx, "Screenshot Capture", &evidence.CaptureError{Op: evidence.OpScreenshot, Name: label, Err: err})
	} else {
		c.recorder.Attach(ctx, shot, "image/png", label)
	}

	if !outcome.Failed() || !c.pageTextOnFailure {
		return
	}
	text, err := s.PageText()
	if err != nil {
		c.recorder.LogError(ctx, "Page Text Capture", err)
		return
	}
	c.recorder.Attach(ctx, []byte(text), "text/plain", "Page Text")
}

// closeSession closes the scenario's session. The registry slot is cleared
// in a defer so it goes away even when closing fails or panics.
func (c *Controller) closeSession(ctx context.Context) {
	defer c.registry.Remove(ctx)

	s, err := c.registry.Get(ctx)
	if err != nil {
		return
	}

	c.recorder.Record(ctx, "Session Cleanup", "Cleaning up browser session...")
	err = c.safeClose(s)
	if err != nil {
		c.logger.Errorf("Error during session cleanup: %v", err)
		c.recorder.LogError(ctx, "Session Cleanup", err)
		return
	}
	c.recorder.Record(ctx, "Session Cleanup", "Browser session closed successfully")
}

func (c *Controller) safeClose(s *session.Session) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &session.CleanupError{SessionID: s.ID, Err: fmt.Errorf("close panicked: %v", r)}
		}
	}()
	return c.factory.Close(s)
}

// finish reports the outcome once per scenario.
func (c *Controller) finish(ctx context.Context, sc scenario.Scenario, outcome scenario.Outcome, path string) {
	c.mu.Lock()
	start, ok := c.started[sc.ID]
	delete(c.started, sc.ID)
	c.mu.Unlock()
	if !ok {
		return
	}

	c.metrics.ScenarioFinished(string(outcome), c.now().Sub(start).Seconds())

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		telemetry.AttrOutcome.String(string(outcome)),
		telemetry.AttrEvidenceFile.String(path),
	)
	if outcome.Failed() {
		span.SetStatus(codes.Error, string(outcome))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
