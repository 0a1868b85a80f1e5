package runner

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/entrhq/harness/pkg/scenario"
	"github.com/entrhq/harness/pkg/session"
)

// conditionEnv exposes the page and the scenario values to assert steps:
// title, url and vars.<key>.
func conditionEnv(s *session.Session, values *scenario.Values) map[string]any {
	title, _ := s.Title()
	url := s.URL()
	return map[string]any{
		"title": title,
		"url":   url,
		"vars":  values.Snapshot(),
	}
}

// sampleEnv types conditions at validation time.
var sampleEnv = map[string]any{
	"title": "",
	"url":   "",
	"vars":  map[string]any{},
}

func compileCondition(src string) (*vm.Program, error) {
	program, err := expr.Compile(strings.TrimSpace(src), expr.Env(sampleEnv), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile condition %q: %w", src, err)
	}
	return program, nil
}

// checkCondition fails unless program evaluates to true against env. A nil
// program is compiled from src first.
func checkCondition(program *vm.Program, src string, env map[string]any) error {
	if program == nil {
		var err error
		if program, err = compileCondition(src); err != nil {
			return err
		}
	}
	output, err := expr.Run(program, env)
	if err != nil {
		return fmt.Errorf("eval condition %q: %w", src, err)
	}
	ok, isBool := output.(bool)
	if !isBool {
		return fmt.Errorf("condition %q did not return bool (got %T)", src, output)
	}
	if !ok {
		return fmt.Errorf("condition %q is false", src)
	}
	return nil
}
