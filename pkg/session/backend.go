package session

import (
	"fmt"
	"strings"

	"github.com/entrhq/harness/pkg/config"
)

// Engine identifies a browser engine.
type Engine string

const (
	EngineChromium Engine = "chromium"
	EngineFirefox  Engine = "firefox"
	EngineWebKit   Engine = "webkit"
)

// ParseEngine converts a configuration value to an Engine. The common
// product names chrome, edge and safari map onto their engines.
func ParseEngine(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "chromium", "chrome", "edge", "":
		return EngineChromium, nil
	case "firefox":
		return EngineFirefox, nil
	case "webkit", "safari":
		return EngineWebKit, nil
	default:
		return "", fmt.Errorf("unknown browser engine %q", name)
	}
}

// Mode selects whether the browser window is visible.
type Mode string

const (
	ModeHeadless Mode = "headless"
	ModeHeaded   Mode = "headed"
)

// ModeFor returns ModeHeadless when headless is true.
func ModeFor(headless bool) Mode {
	if headless {
		return ModeHeadless
	}
	return ModeHeaded
}

// Target is where the browser runs.
type Target string

const (
	TargetLocal Target = "local"
	TargetGrid  Target = "grid"
)

// Descriptor is the flat (engine, mode, target) view of a Backend.
type Descriptor struct {
	Engine Engine
	Mode   Mode
	Target Target
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s/%s/%s", d.Engine, d.Mode, d.Target)
}

// Backend describes how to provision a session. It is a closed set: the only
// implementations are Local and Grid.
type Backend interface {
	Descriptor() Descriptor
	isBackend()
}

// Local launches a browser on this machine.
type Local struct {
	Engine Engine
	Mode   Mode
}

// Descriptor implements Backend.
func (l Local) Descriptor() Descriptor {
	return Descriptor{Engine: l.Engine, Mode: l.Mode, Target: TargetLocal}
}

func (Local) isBackend() {}

// Grid connects to a browser on the remote device grid.
type Grid struct {
	Engine      Engine
	Mode        Mode
	Credentials Credentials
}

// Descriptor implements Backend.
func (g Grid) Descriptor() Descriptor {
	return Descriptor{Engine: g.Engine, Mode: g.Mode, Target: TargetGrid}
}

func (Grid) isBackend() {}

// Credentials authenticate against the remote grid.
type Credentials struct {
	Username  string
	AccessKey string
}

// Valid reports whether both parts are present.
func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.Username) != "" && strings.TrimSpace(c.AccessKey) != ""
}

// CredentialsFromConfig extracts the grid credentials from configuration.
func CredentialsFromConfig(grid config.GridConfig) Credentials {
	return Credentials{Username: grid.Username, AccessKey: grid.AccessKey}
}

// ResolveBackend picks the backend for a run. The grid is selected whenever
// grid credentials are configured; otherwise the local engine is used.
func ResolveBackend(browser config.BrowserConfig, grid config.GridConfig) (Backend, error) {
	engine, err := ParseEngine(browser.Engine)
	if err != nil {
		return nil, err
	}
	mode := ModeFor(browser.Headless)

	if creds := CredentialsFromConfig(grid); creds.Valid() {
		return Grid{Engine: engine, Mode: mode, Credentials: creds}, nil
	}
	return Local{Engine: engine, Mode: mode}, nil
}
