package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/harness/pkg/logging"
	"github.com/entrhq/harness/pkg/scenario"
	"github.com/entrhq/harness/pkg/telemetry"
)

// Factory turns a Backend into a configured, Active Session.
type Factory struct {
	launcher Launcher
	profile  Profile
	logger   logging.Logger
	metrics  *telemetry.Metrics
	now      func() time.Time
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithProfile overrides the post-creation profile.
func WithProfile(p Profile) FactoryOption {
	return func(f *Factory) { f.profile = p }
}

// WithLogger sets the factory logger.
func WithLogger(l logging.Logger) FactoryOption {
	return func(f *Factory) { f.logger = logging.OrDiscard(l) }
}

// WithMetrics enables session metrics.
func WithMetrics(m *telemetry.Metrics) FactoryOption {
	return func(f *Factory) { f.metrics = m }
}

// NewFactory creates a factory backed by launcher.
func NewFactory(launcher Launcher, opts ...FactoryOption) *Factory {
	f := &Factory{
		launcher: launcher,
		profile:  DefaultProfile(),
		logger:   logging.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create provisions a session for backend. A grid backend without
// credentials falls back to a headed local Chromium. Failures are returned as
// *CreationError and are never retried.
func (f *Factory) Create(ctx context.Context, backend Backend) (*Session, error) {
	if g, ok := backend.(Grid); ok && !g.Credentials.Valid() {
		f.logger.Warnf("Grid credentials not found, falling back to local %s (headed)", EngineChromium)
		f.metrics.GridFallback()
		backend = Local{Engine: EngineChromium, Mode: ModeHeaded}
	}

	var desc Descriptor
	if backend != nil {
		desc = backend.Descriptor()
	}

	driver, err := f.launch(ctx, backend)
	if err != nil {
		f.metrics.SessionCreationFailed(string(desc.Engine), string(desc.Target))
		f.logger.Errorf("Failed to create session for %s: %v", desc, err)
		return nil, &CreationError{Backend: desc, Err: err}
	}

	if err := f.configure(driver); err != nil {
		if qerr := quit(driver); qerr != nil {
			f.logger.Warnf("Failed to release partially created session: %v", qerr)
		}
		f.metrics.SessionCreationFailed(string(desc.Engine), string(desc.Target))
		f.logger.Errorf("Failed to configure session for %s: %v", desc, err)
		return nil, &CreationError{Backend: desc, Err: err}
	}

	key, _ := scenario.KeyFromContext(ctx)
	s := newSession(uuid.NewString(), key, backend, driver, f.now())
	if err := s.advance(StateActive); err != nil {
		_ = quit(driver)
		return nil, &CreationError{Backend: desc, Err: err}
	}

	f.metrics.SessionCreated(string(desc.Engine), string(desc.Target))
	f.logger.Infof("Session %s created for %s", s.ID, desc)
	return s, nil
}

// launch dispatches on the backend variant. A launcher panic is reported as
// an error.
func (f *Factory) launch(ctx context.Context, backend Backend) (driver Driver, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			driver, err = nil, fmt.Errorf("launcher panicked: %v", r)
		}
	}()

	switch b := backend.(type) {
	case Local:
		driver, err = f.launcher.LaunchLocal(ctx, b)
	case Grid:
		driver, err = f.launcher.LaunchGrid(ctx, b)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedBackend, backend)
	}
	if err == nil && driver == nil {
		err = fmt.Errorf("launcher returned no driver")
	}
	return driver, err
}

// configure applies the profile every session starts with.
func (f *Factory) configure(d Driver) error {
	if err := d.SetViewport(f.profile.ViewportWidth, f.profile.ViewportHeight); err != nil {
		return err
	}
	if err := d.ClearCookies(); err != nil {
		return err
	}
	d.SetTimeouts(f.profile.ImplicitTimeout, f.profile.PageLoadTimeout)
	return nil
}

// Close shuts the session's browser down. Shutdown failures, including
// panics, come back as *CleanupError; the session is Closed either way.
// Closing a session that is not active does nothing.
func (f *Factory) Close(s *Session) error {
	if s == nil {
		return nil
	}

	driver := s.release()
	if driver == nil {
		return nil
	}

	var desc Descriptor
	if s.Backend != nil {
		desc = s.Backend.Descriptor()
	}

	if err := quit(driver); err != nil {
		f.metrics.SessionClosed(string(desc.Engine), string(desc.Target), true)
		f.logger.Errorf("Error while closing session %s: %v", s.ID, err)
		return &CleanupError{SessionID: s.ID, Backend: desc, Err: err}
	}

	f.metrics.SessionClosed(string(desc.Engine), string(desc.Target), false)
	f.logger.Infof("Session %s closed", s.ID)
	return nil
}

func quit(d Driver) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("quit panicked: %v", r)
		}
	}()
	return d.Quit()
}
