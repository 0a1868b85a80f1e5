package session

import (
	"context"
	"time"

	"github.com/entrhq/harness/pkg/config"
)

// Driver is the browser control surface a Session owns. The playwright
// implementation lives in playwright.go; tests substitute fakes.
type Driver interface {
	SetViewport(width, height int) error
	SetTimeouts(implicit, pageLoad time.Duration)
	ClearCookies() error

	Navigate(url string) error
	Click(selector string) error
	Fill(selector, value string) error
	WaitFor(selector string) error

	URL() string
	Title() (string, error)
	Content() (string, error)
	Screenshot() ([]byte, error)

	Quit() error
}

// Launcher provisions drivers. It has one constructor per Backend variant.
type Launcher interface {
	LaunchLocal(ctx context.Context, b Local) (Driver, error)
	LaunchGrid(ctx context.Context, b Grid) (Driver, error)
}

// Profile is applied to every freshly created driver.
type Profile struct {
	ViewportWidth   int
	ViewportHeight  int
	ImplicitTimeout time.Duration
	PageLoadTimeout time.Duration
}

// Default profile values.
const (
	DefaultViewportWidth   = 1920
	DefaultViewportHeight  = 1080
	DefaultImplicitTimeout = 10 * time.Second
	DefaultPageLoadTimeout = 30 * time.Second
)

// DefaultProfile returns a maximized 1920x1080 window with a 10s element
// wait and a 30s page load timeout.
func DefaultProfile() Profile {
	return Profile{
		ViewportWidth:   DefaultViewportWidth,
		ViewportHeight:  DefaultViewportHeight,
		ImplicitTimeout: DefaultImplicitTimeout,
		PageLoadTimeout: DefaultPageLoadTimeout,
	}
}

// ProfileFromConfig builds a Profile, falling back to defaults for unset values.
func ProfileFromConfig(b config.BrowserConfig) Profile {
	p := DefaultProfile()
	if b.ViewportWidth > 0 {
		p.ViewportWidth = b.ViewportWidth
	}
	if b.ViewportHeight > 0 {
		p.ViewportHeight = b.ViewportHeight
	}
	if b.ImplicitTimeout > 0 {
		p.ImplicitTimeout = b.ImplicitTimeout
	}
	if b.PageLoadTimeout > 0 {
		p.PageLoadTimeout = b.PageLoadTimeout
	}
	return p
}
