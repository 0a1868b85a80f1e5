package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeDriver struct {
	mu sync.Mutex

	viewport  [2]int
	implicit  time.Duration
	pageLoad  time.Duration
	cleared   bool
	url       string
	title     string
	content   string
	quitCalls int

	quitErr       error
	quitPanic     bool
	viewportErr   error
	screenshotErr error
}

func (d *fakeDriver) SetViewport(width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.viewportErr != nil {
		return d.viewportErr
	}
	d.viewport = [2]int{width, height}
	return nil
}

func (d *fakeDriver) SetTimeouts(implicit, pageLoad time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.implicit, d.pageLoad = implicit, pageLoad
}

func (d *fakeDriver) ClearCookies() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cleared = true
	return nil
}

func (d *fakeDriver) Navigate(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = url
	return nil
}

func (d *fakeDriver) Click(string) error        { return nil }
func (d *fakeDriver) Fill(string, string) error { return nil }
func (d *fakeDriver) WaitFor(string) error      { return nil }

func (d *fakeDriver) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

func (d *fakeDriver) Title() (string, error) { return d.title, nil }

func (d *fakeDriver) Content() (string, error) { return d.content, nil }

func (d *fakeDriver) Screenshot() ([]byte, error) {
	if d.screenshotErr != nil {
		return nil, d.screenshotErr
	}
	return []byte("\x89PNG"), nil
}

func (d *fakeDriver) Quit() error {
	d.mu.Lock()
	d.quitCalls++
	d.mu.Unlock()
	if d.quitPanic {
		panic("driver crashed")
	}
	return d.quitErr
}

type fakeLauncher struct {
	mu       sync.Mutex
	locals   []Local
	grids    []Grid
	err      error
	panicMsg string
	newDrv   func() *fakeDriver
}

func (l *fakeLauncher) driver() *fakeDriver {
	if l.newDrv != nil {
		return l.newDrv()
	}
	return &fakeDriver{}
}

func (l *fakeLauncher) LaunchLocal(_ context.Context, b Local) (Driver, error) {
	l.mu.Lock()
	l.locals = append(l.locals, b)
	l.mu.Unlock()
	if l.panicMsg != "" {
		panic(l.panicMsg)
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.driver(), nil
}

func (l *fakeLauncher) LaunchGrid(_ context.Context, b Grid) (Driver, error) {
	l.mu.Lock()
	l.grids = append(l.grids, b)
	l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return l.driver(), nil
}

var errBinaryMissing = errors.New("executable doesn't exist")
