package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/harness/pkg/config"
	"github.com/playwright-community/playwright-go"
)

// chromiumArgs mirror the flags the suite has always launched Chromium with.
var chromiumArgs = []string{
	"--disable-web-security",
	"--disable-features=VizDisplayCompositor",
	"--no-sandbox",
	"--disable-dev-shm-usage",
	"--disable-gpu",
}

// PlaywrightLauncher starts browsers through a single shared Playwright
// driver process.
type PlaywrightLauncher struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	install     bool
	grid        config.GridConfig
	initialized bool
}

// NewPlaywrightLauncher creates a launcher. When install is true the browser
// binaries are downloaded on first use.
func NewPlaywrightLauncher(install bool, grid config.GridConfig) *PlaywrightLauncher {
	return &PlaywrightLauncher{install: install, grid: grid}
}

// Initialize starts the Playwright driver. It is safe to call repeatedly.
func (l *PlaywrightLauncher) Initialize() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		return nil
	}

	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if l.install {
		if err := playwright.Install(opts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	l.playwright = pw
	l.initialized = true
	return nil
}

// Shutdown stops the Playwright driver process.
func (l *PlaywrightLauncher) Shutdown() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return nil
	}
	l.initialized = false
	if err := l.playwright.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

func (l *PlaywrightLauncher) browserType(e Engine) (playwright.BrowserType, error) {
	if err := l.Initialize(); err != nil {
		return nil, err
	}

	switch e {
	case EngineChromium:
		return l.playwright.Chromium, nil
	case EngineFirefox:
		return l.playwright.Firefox, nil
	case EngineWebKit:
		return l.playwright.WebKit, nil
	default:
		return nil, fmt.Errorf("unknown browser engine %q", e)
	}
}

// LaunchLocal implements Launcher.
func (l *PlaywrightLauncher) LaunchLocal(ctx context.Context, b Local) (Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bt, err := l.browserType(b.Engine)
	if err != nil {
		return nil, err
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(b.Mode == ModeHeadless),
	}
	if b.Engine == EngineChromium {
		launchOpts.Args = chromiumArgs
	}

	browser, err := bt.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return newPlaywrightDriver(browser)
}

// LaunchGrid implements Launcher.
func (l *PlaywrightLauncher) LaunchGrid(ctx context.Context, b Grid) (Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bt, err := l.browserType(b.Engine)
	if err != nil {
		return nil, err
	}

	endpoint, err := GridEndpoint(l.grid, b, time.Now())
	if err != nil {
		return nil, err
	}

	browser, err := bt.Connect(endpoint, playwright.BrowserTypeConnectOptions{
		Timeout: playwright.Float(float64(DefaultPageLoadTimeout.Milliseconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to grid: %w", err)
	}
	return newPlaywrightDriver(browser)
}

// GridEndpoint builds the websocket URL for a grid session. The capabilities
// travel JSON-encoded in the caps query parameter.
func GridEndpoint(grid config.GridConfig, b Grid, now time.Time) (string, error) {
	if grid.Endpoint == "" {
		return "", fmt.Errorf("grid endpoint is not configured")
	}

	osName, osVersion := splitPlatform(grid.Platform)
	build := grid.Build
	if build == "" {
		build = fmt.Sprintf("Harness Build - %d", now.UnixMilli())
	}
	version := grid.BrowserVersion
	if version == "" {
		version = "latest"
	}

	caps := map[string]string{
		"browser":                "playwright-" + string(b.Engine),
		"browser_version":        version,
		"os":                     osName,
		"os_version":             osVersion,
		"project":                grid.Project,
		"build":                  build,
		"name":                   "Harness Session",
		"resolution":             fmt.Sprintf("%dx%d", DefaultViewportWidth, DefaultViewportHeight),
		"browserstack.username":  b.Credentials.Username,
		"browserstack.accessKey": b.Credentials.AccessKey,
		"browserstack.debug":     "false",
		"browserstack.console":   "errors",
	}
	if b.Engine == EngineChromium {
		caps["browser"] = "chrome"
	}
	if grid.Local {
		caps["browserstack.local"] = "true"
		if grid.LocalID != "" {
			caps["browserstack.localIdentifier"] = grid.LocalID
		}
	}

	encoded, err := json.Marshal(caps)
	if err != nil {
		return "", fmt.Errorf("failed to encode grid capabilities: %w", err)
	}

	sep := "?"
	if strings.Contains(grid.Endpoint, "?") {
		sep = "&"
	}
	return grid.Endpoint + sep + "caps=" + url.QueryEscape(string(encoded)), nil
}

// splitPlatform turns "Windows 11" into ("Windows", "11").
func splitPlatform(platform string) (string, string) {
	platform = strings.TrimSpace(platform)
	if platform == "" {
		return "Windows", "11"
	}
	name, version, found := strings.Cut(platform, " ")
	if !found {
		return name, "11"
	}
	return name, strings.TrimSpace(version)
}

// playwrightDriver adapts a browser, its context and a single page to Driver.
type playwrightDriver struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

func newPlaywrightDriver(browser playwright.Browser) (*playwrightDriver, error) {
	bctx, err := browser.NewContext()
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &playwrightDriver{browser: browser, context: bctx, page: page}, nil
}

func (d *playwrightDriver) SetViewport(width, height int) error {
	if err := d.page.SetViewportSize(width, height); err != nil {
		return fmt.Errorf("set viewport failed: %w", err)
	}
	return nil
}

func (d *playwrightDriver) SetTimeouts(implicit, pageLoad time.Duration) {
	d.page.SetDefaultTimeout(float64(implicit.Milliseconds()))
	d.page.SetDefaultNavigationTimeout(float64(pageLoad.Milliseconds()))
}

func (d *playwrightDriver) ClearCookies() error {
	if err := d.context.ClearCookies(); err != nil {
		return fmt.Errorf("clear cookies failed: %w", err)
	}
	return nil
}

func (d *playwrightDriver) Navigate(target string) error {
	if _, err := d.page.Goto(target); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (d *playwrightDriver) Click(selector string) error {
	if err := d.page.Click(selector); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

func (d *playwrightDriver) Fill(selector, value string) error {
	if err := d.page.Fill(selector, value); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

func (d *playwrightDriver) WaitFor(selector string) error {
	if _, err := d.page.WaitForSelector(selector); err != nil {
		return fmt.Errorf("wait failed: %w", err)
	}
	return nil
}

func (d *playwrightDriver) URL() string {
	return d.page.URL()
}

func (d *playwrightDriver) Title() (string, error) {
	return d.page.Title()
}

func (d *playwrightDriver) Content() (string, error) {
	return d.page.Content()
}

func (d *playwrightDriver) Screenshot() ([]byte, error) {
	data, err := d.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}

// Quit closes the page, context and browser. The first error is reported
// but every resource is still released.
func (d *playwrightDriver) Quit() error {
	var first error
	if err := d.page.Close(); err != nil && first == nil {
		first = err
	}
	if err := d.context.Close(); err != nil && first == nil {
		first = err
	}
	if err := d.browser.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
