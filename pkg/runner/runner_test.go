package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/harness/pkg/evidence"
	"github.com/entrhq/harness/pkg/lifecycle"
	"github.com/entrhq/harness/pkg/report"
	"github.com/entrhq/harness/pkg/scenario"
	"github.com/entrhq/harness/pkg/session"
)

type pageDriver struct {
	mu       sync.Mutex
	url      string
	titles   map[string]string
	filled   map[string]string
	clickErr error
}

func (d *pageDriver) SetViewport(int, int) error               { return nil }
func (d *pageDriver) SetTimeouts(time.Duration, time.Duration) {}
func (d *pageDriver) ClearCookies() error                      { return nil }
func (d *pageDriver) WaitFor(string) error                     { return nil }
func (d *pageDriver) Content() (string, error)                 { return "<p>page</p>", nil }
func (d *pageDriver) Screenshot() ([]byte, error)              { return []byte("png"), nil }
func (d *pageDriver) Quit() error                              { return nil }

func (d *pageDriver) Navigate(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = url
	return nil
}

func (d *pageDriver) Click(string) error { return d.clickErr }

func (d *pageDriver) Fill(selector, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.filled[selector] = value
	return nil
}

func (d *pageDriver) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

func (d *pageDriver) Title() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.titles[d.url], nil
}

type pageLauncher struct {
	mu       sync.Mutex
	titles   map[string]string
	clickErr error
	drivers  []*pageDriver
}

func (l *pageLauncher) launch() *pageDriver {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := &pageDriver{titles: l.titles, filled: map[string]string{}, clickErr: l.clickErr}
	l.drivers = append(l.drivers, d)
	return d
}

func (l *pageLauncher) LaunchLocal(context.Context, session.Local) (session.Driver, error) {
	return l.launch(), nil
}

func (l *pageLauncher) LaunchGrid(context.Context, session.Grid) (session.Driver, error) {
	return l.launch(), nil
}

func newRunner(t *testing.T, launcher *pageLauncher, opts ...Option) (*Runner, *report.MemorySink, string) {
	t.Helper()
	dir := t.TempDir()
	sink := report.NewMemorySink()
	controller := lifecycle.New(
		session.NewFactory(launcher),
		session.NewRegistry(),
		evidence.NewRecorder(dir, evidence.WithSink(sink)),
		session.Local{Engine: session.EngineChromium, Mode: session.ModeHeadless},
	)
	return New(controller, opts...), sink, dir
}

const loginSuite = `
name: smoke
base_url: http://localhost:3000/
scenarios:
  - name: Login as admin
    tags: [smoke, auth]
    steps:
      - set: {key: user, value: admin}
      - navigate: /login
      - expect_title: Sign in
      - fill: {selector: "#username", value: "${user}"}
      - click: "#submit"
      - screenshot: after login
      - record:
          label: Observations
          lines: ["logged in as ${user}", "no errors"]
      - expect_value: {key: user, value: admin}
  - name: Dashboard widgets
    tags: [dashboard]
    steps:
      - navigate: http://localhost:3000/dashboard
      - expect_title: Dashboard
      - assert: 'title == "Dashboard" && url endsWith "/dashboard"'
`

func TestParseSuite(t *testing.T) {
	suite, err := ParseSuite([]byte(loginSuite))
	require.NoError(t, err)

	assert.Equal(t, "smoke", suite.Name)
	require.Len(t, suite.Scenarios, 2)
	steps := suite.Scenarios[0].Steps
	require.Len(t, steps, 8)
	assert.Equal(t, "set", steps[0].Action())
	assert.Equal(t, "fill", steps[3].Action())
	assert.Equal(t, "#username", steps[3].Fill.Selector)
	assert.Equal(t, []string{"logged in as ${user}", "no errors"}, steps[6].Record.Lines)
}

func TestParseSuite_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "no scenarios", yaml: "name: empty\n", wantErr: "no scenarios"},
		{name: "missing name", yaml: "scenarios:\n  - steps: []\n", wantErr: "name is required"},
		{name: "duplicate", yaml: "scenarios:\n  - name: a\n  - name: a\n", wantErr: "duplicate name"},
		{name: "empty step", yaml: "scenarios:\n  - name: a\n    steps:\n      - {}\n", wantErr: "no action"},
		{name: "two actions", yaml: "scenarios:\n  - name: a\n    steps:\n      - {click: x, wait: y}\n", wantErr: "multiple actions click, wait"},
		{name: "fill without selector", yaml: "scenarios:\n  - name: a\n    steps:\n      - fill: {value: x}\n", wantErr: "selector is required"},
		{name: "bad yaml", yaml: "scenarios: [", wantErr: "parse suite"},
		{name: "bad condition", yaml: "scenarios:\n  - name: a\n    steps:\n      - assert: 'title =='\n", wantErr: "compile condition"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSuite([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadSuite_DefaultsNameToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scenarios:\n  - name: a\n"), 0600))

	suite, err := LoadSuite(path)
	require.NoError(t, err)
	assert.Equal(t, "checkout", suite.Name)

	_, err = LoadSuite(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	defs := []ScenarioDef{
		{Name: "Login as admin", Tags: []string{"smoke"}},
		{Name: "Login as guest", Tags: []string{"Smoke", "slow"}},
		{Name: "Dashboard widgets"},
	}

	tests := []struct {
		name    string
		include []string
		exclude []string
		tags    []string
		want    []string
	}{
		{name: "everything", want: []string{"Login as admin", "Login as guest", "Dashboard widgets"}},
		{name: "include glob", include: []string{"Login*"}, want: []string{"Login as admin", "Login as guest"}},
		{name: "exclude wins", include: []string{"Login*"}, exclude: []string{"*guest"}, want: []string{"Login as admin"}},
		{name: "tag is case insensitive", tags: []string{"SMOKE"}, want: []string{"Login as admin", "Login as guest"}},
		{name: "no match", include: []string{"Checkout*"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFilter(tt.include, tt.exclude, tt.tags)
			require.NoError(t, err)

			var got []string
			for _, d := range f.Select(defs) {
				got = append(got, d.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NewFilter([]string{"[unclosed"}, nil, nil)
	assert.Error(t, err)
}

func TestRunner_RunSuite(t *testing.T) {
	launcher := &pageLauncher{titles: map[string]string{
		"http://localhost:3000/login":     "Sign in",
		"http://localhost:3000/dashboard": "Dashboard",
	}}
	r, sink, dir := newRunner(t, launcher, WithParallelism(2))

	suite, err := ParseSuite([]byte(loginSuite))
	require.NoError(t, err)

	results, err := r.Run(context.Background(), suite, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, res := range results {
		assert.Equal(t, scenario.OutcomePassed, res.Outcome, "%s: %v", res.Scenario.Name, res.Err)
		assert.Equal(t, dir, filepath.Dir(res.EvidencePath))
	}
	assert.True(t, Summarize(results).OK())

	content, err := os.ReadFile(results[0].EvidencePath)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "Test Step: Navigate to http://localhost:3000/login")
	assert.Contains(t, text, "  • logged in as admin")
	assert.Contains(t, text, "'after login' attached to report")

	var filled string
	for _, d := range launcher.drivers {
		if v, ok := d.filled["#username"]; ok {
			filled = v
		}
	}
	assert.Equal(t, "admin", filled)

	names := map[string]bool{}
	for _, it := range sink.ItemsFor(results[0].Scenario.ID) {
		names[it.Name] = true
	}
	assert.True(t, names["after login"])
	assert.True(t, names[lifecycle.SuccessScreenshot])
}

func TestRunner_FailureDoesNotStopOthers(t *testing.T) {
	launcher := &pageLauncher{
		titles:   map[string]string{"http://localhost:3000/dashboard": "Dashboard"},
		clickErr: errors.New("element not visible"),
	}
	r, _, _ := newRunner(t, launcher, WithParallelism(1))

	suite, err := ParseSuite([]byte(loginSuite))
	require.NoError(t, err)

	results, err := r.Run(context.Background(), suite, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, scenario.OutcomeFailed, results[0].Outcome)
	assert.Contains(t, results[0].Err.Error(), "expected title")
	assert.Equal(t, scenario.OutcomePassed, results[1].Outcome)

	summary := Summarize(results)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Passed)
	assert.False(t, summary.OK())
}

func TestRunner_FilterSelectsScenarios(t *testing.T) {
	launcher := &pageLauncher{titles: map[string]string{"http://localhost:3000/dashboard": "Dashboard"}}
	r, _, _ := newRunner(t, launcher)

	suite, err := ParseSuite([]byte(loginSuite))
	require.NoError(t, err)
	filter, err := NewFilter(nil, nil, []string{"dashboard"})
	require.NoError(t, err)

	results, err := r.Run(context.Background(), suite, filter)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Dashboard widgets", results[0].Scenario.Name)
}

func TestRunner_CancelledRun(t *testing.T) {
	r, _, _ := newRunner(t, &pageLauncher{titles: map[string]string{}})
	suite, err := ParseSuite([]byte(loginSuite))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := r.Run(ctx, suite, nil)
	assert.ErrorIs(t, err, context.Canceled)
	for _, res := range results {
		assert.NotEqual(t, scenario.OutcomePassed, res.Outcome)
	}
}

func TestStepEnv_Expand(t *testing.T) {
	ctx := scenario.WithScenario(context.Background(), scenario.New("expand"))
	values, err := scenario.ValuesFromContext(ctx)
	require.NoError(t, err)
	values.Put("id", 42)

	env := &stepEnv{baseURL: "https://shop.test", values: values}
	assert.Equal(t, "order-42", env.expand("order-${id}"))
	assert.Equal(t, "no vars", env.expand("no vars"))
	assert.Equal(t, "https://shop.test/orders/42", env.resolveURL(env.expand("/orders/$id")))
	assert.Equal(t, "https://other.test/x", env.resolveURL("https://other.test/x"))
	assert.True(t, strings.HasPrefix(env.resolveURL("cart"), "https://shop.test/"))
}

func TestCheckCondition(t *testing.T) {
	env := map[string]any{
		"title": "Cart",
		"url":   "https://shop.test/cart",
		"vars":  map[string]any{"items": 3, "user": "alice"},
	}

	assert.NoError(t, checkCondition(nil, `title contains "Car" && vars.items > 2`, env))
	assert.NoError(t, checkCondition(nil, `vars.user == "alice"`, env))

	err := checkCondition(nil, `url startsWith "http://"`, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is false")
}

func TestParseSuite_CompilesConditionsOnce(t *testing.T) {
	suite, err := ParseSuite([]byte(loginSuite))
	require.NoError(t, err)

	steps := suite.Scenarios[1].Steps
	require.Len(t, steps, 3)
	assert.Equal(t, "assert", steps[2].Action())
	require.NotNil(t, steps[2].condition, "condition must be compiled when the suite loads")

	env := map[string]any{"title": "Dashboard", "url": "http://localhost:3000/dashboard", "vars": map[string]any{}}
	assert.NoError(t, checkCondition(steps[2].condition, steps[2].Assert, env))
}
