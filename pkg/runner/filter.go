package runner

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Filter selects scenarios by name pattern and tag.
type Filter struct {
	include []glob.Glob
	exclude []glob.Glob
	tags    []string
}

// NewFilter compiles include and exclude glob patterns. No include patterns
// means every scenario is included; excludes win over includes.
func NewFilter(include, exclude, tags []string) (*Filter, error) {
	f := &Filter{tags: tags}

	for _, pattern := range include {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern '%s': %w", pattern, err)
		}
		f.include = append(f.include, g)
	}

	for _, pattern := range exclude {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern '%s': %w", pattern, err)
		}
		f.exclude = append(f.exclude, g)
	}

	return f, nil
}

// Match reports whether def is selected.
func (f *Filter) Match(def ScenarioDef) bool {
	if f == nil {
		return true
	}

	for _, g := range f.exclude {
		if g.Match(def.Name) {
			return false
		}
	}

	if len(f.include) > 0 {
		matched := false
		for _, g := range f.include {
			if g.Match(def.Name) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(f.tags) == 0 {
		return true
	}
	for _, want := range f.tags {
		for _, have := range def.Tags {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}

// Select returns the matching scenarios in suite order.
func (f *Filter) Select(defs []ScenarioDef) []ScenarioDef {
	var out []ScenarioDef
	for _, def := range defs {
		if f.Match(def) {
			out = append(out, def)
		}
	}
	return out
}
