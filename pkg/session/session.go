package session

import (
	"fmt"
	"sync"
	"time"
)

// State is a session's lifecycle position. It only moves forward:
// Uninitialized, then Active, then Closed.
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is one live browser owned by exactly one scenario.
type Session struct {
	ID          string
	ScenarioKey string
	Backend     Backend
	CreatedAt   time.Time

	mu     sync.Mutex
	state  State
	driver Driver
}

func newSession(id, scenarioKey string, backend Backend, driver Driver, now time.Time) *Session {
	return &Session{
		ID:          id,
		ScenarioKey: scenarioKey,
		Backend:     backend,
		CreatedAt:   now,
		driver:      driver,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// advance moves the session to the next state. Any other move is rejected.
func (s *Session) advance(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if to != s.state+1 {
		return fmt.Errorf("%w: %s -> %s", ErrStateRegression, s.state, to)
	}
	s.state = to
	return nil
}

// release marks an active session closed and hands back its driver. It
// returns nil for a session that is not active, so Close runs at most once.
func (s *Session) release() Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return nil
	}
	s.state = StateClosed
	d := s.driver
	s.driver = nil
	return d
}

func (s *Session) active() (Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateActive:
		return s.driver, nil
	case StateClosed:
		return nil, ErrSessionClosed
	default:
		return nil, ErrNotInitialized
	}
}

// Navigate loads url in the session's page.
func (s *Session) Navigate(url string) error {
	d, err := s.active()
	if err != nil {
		return err
	}
	return d.Navigate(url)
}

// Click clicks the first element matching selector.
func (s *Session) Click(selector string) error {
	d, err := s.active()
	if err != nil {
		return err
	}
	return d.Click(selector)
}

// Fill types value into the input matching selector.
func (s *Session) Fill(selector, value string) error {
	d, err := s.active()
	if err != nil {
		return err
	}
	return d.Fill(selector, value)
}

// WaitFor blocks until selector is present or the element timeout passes.
func (s *Session) WaitFor(selector string) error {
	d, err := s.active()
	if err != nil {
		return err
	}
	return d.WaitFor(selector)
}

// URL returns the page's current URL, or "" when the session is not active.
func (s *Session) URL() string {
	d, err := s.active()
	if err != nil {
		return ""
	}
	return d.URL()
}

// Title returns the current page title.
func (s *Session) Title() (string, error) {
	d, err := s.active()
	if err != nil {
		return "", err
	}
	return d.Title()
}

// Screenshot captures the full page as PNG bytes.
func (s *Session) Screenshot() ([]byte, error) {
	d, err := s.active()
	if err != nil {
		return nil, err
	}
	return d.Screenshot()
}

// PageText returns the visible text of the current page.
func (s *Session) PageText() (string, error) {
	d, err := s.active()
	if err != nil {
		return "", err
	}
	content, err := d.Content()
	if err != nil {
		return "", fmt.Errorf("page content failed: %w", err)
	}
	return extractText(content, DefaultPageTextLimit)
}
