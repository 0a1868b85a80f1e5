package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/entrhq/harness/pkg/session"
)

type stubDriver struct {
	mu            sync.Mutex
	quitErr       error
	quitPanic     bool
	screenshotErr error
	content       string
	quits         int
}

func (d *stubDriver) SetViewport(int, int) error { return nil }
func (d *stubDriver) SetTimeouts(time.Duration, time.Duration) {}
func (d *stubDriver) ClearCookies() error { return nil }
func (d *stubDriver) Navigate(string) error { return nil }
func (d *stubDriver) Click(string) error { return nil }
func (d *stubDriver) Fill(string, string) error { return nil }
func (d *stubDriver) WaitFor(string) error { return nil }
func (d *stubDriver) URL() string { return "about:blank" }
func (d *stubDriver) Title() (string, error) { return "stub", nil }
func (d *stubDriver) Content() (string, error) { return d.content, nil }

func (d *stubDriver) Screenshot() ([]byte, error) {
	if d.screenshotErr != nil {
		return nil, d.screenshotErr
	}
	return []byte("\x89PNG"), nil
}

func (d *stubDriver) Quit() error {
	d.mu.Lock()
	d.quits++
	d.mu.Unlock()
	if d.quitPanic {
		panic("browser process vanished")
	}
	return d.quitErr
}

type stubLauncher struct {
	err     error
	mu      sync.Mutex
	drivers []*stubDriver
	proto   stubDriver
}

func (l *stubLauncher) next() *stubDriver {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := &stubDriver{
		quitErr:       l.proto.quitErr,
		quitPanic:     l.proto.quitPanic,
		screenshotErr: l.proto.screenshotErr,
		content:       l.proto.content,
	}
	l.drivers = append(l.drivers, d)
	return d
}

func (l *stubLauncher) LaunchLocal(context.Context, session.Local) (session.Driver, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.next(), nil
}

func (l *stubLauncher) LaunchGrid(context.Context, session.Grid) (session.Driver, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.next(), nil
}
