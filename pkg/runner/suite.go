package runner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"
)

// Suite is a YAML file of scenarios.
type Suite struct {
	Name      string        `yaml:"name"`
	BaseURL   string        `yaml:"base_url,omitempty"`
	Scenarios []ScenarioDef `yaml:"scenarios"`
}

// ScenarioDef is one scenario of a suite.
type ScenarioDef struct {
	Name  string   `yaml:"name"`
	Tags  []string `yaml:"tags,omitempty"`
	Steps []Step   `yaml:"steps"`
}

// Step is a single action. Exactly one field is set.
type Step struct {
	Navigate    string      `yaml:"navigate,omitempty"`
	Click       string      `yaml:"click,omitempty"`
	Fill        *FillStep   `yaml:"fill,omitempty"`
	Wait        string      `yaml:"wait,omitempty"`
	ExpectTitle string      `yaml:"expect_title,omitempty"`
	Screenshot  string      `yaml:"screenshot,omitempty"`
	Record      *RecordStep `yaml:"record,omitempty"`
	Set         *ValueStep  `yaml:"set,omitempty"`
	ExpectValue *ValueStep  `yaml:"expect_value,omitempty"`
	Assert      string      `yaml:"assert,omitempty"`

	condition *vm.Program
}

// FillStep types a value into an input.
type FillStep struct {
	Selector string `yaml:"selector"`
	Value    string `yaml:"value"`
}

// RecordStep writes a free-form evidence entry.
type RecordStep struct {
	Label   string   `yaml:"label"`
	Message string   `yaml:"message,omitempty"`
	Lines   []string `yaml:"lines,omitempty"`
}

// ValueStep reads or writes a scenario value.
type ValueStep struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Action names the step's kind.
func (s Step) Action() string {
	actions := s.actions()
	if len(actions) != 1 {
		return ""
	}
	return actions[0]
}

func (s Step) actions() []string {
	var out []string
	if s.Navigate != "" {
		out = append(out, "navigate")
	}
	if s.Click != "" {
		out = append(out, "click")
	}
	if s.Fill != nil {
		out = append(out, "fill")
	}
	if s.Wait != "" {
		out = append(out, "wait")
	}
	if s.ExpectTitle != "" {
		out = append(out, "expect_title")
	}
	if s.Screenshot != "" {
		out = append(out, "screenshot")
	}
	if s.Record != nil {
		out = append(out, "record")
	}
	if s.Set != nil {
		out = append(out, "set")
	}
	if s.ExpectValue != nil {
		out = append(out, "expect_value")
	}
	if s.Assert != "" {
		out = append(out, "assert")
	}
	return out
}

// Validate checks that the suite can run.
func (s *Suite) Validate() error {
	var errs []error
	if len(s.Scenarios) == 0 {
		errs = append(errs, errors.New("suite has no scenarios"))
	}

	seen := make(map[string]bool)
	for i, sc := range s.Scenarios {
		if strings.TrimSpace(sc.Name) == "" {
			errs = append(errs, fmt.Errorf("scenario %d: name is required", i+1))
			continue
		}
		if seen[sc.Name] {
			errs = append(errs, fmt.Errorf("scenario %q: duplicate name", sc.Name))
		}
		seen[sc.Name] = true

		for j := range sc.Steps {
			step := &s.Scenarios[i].Steps[j]
			switch actions := step.actions(); len(actions) {
			case 0:
				errs = append(errs, fmt.Errorf("scenario %q step %d: no action", sc.Name, j+1))
			case 1:
				if err := step.validateFields(); err != nil {
					errs = append(errs, fmt.Errorf("scenario %q step %d: %w", sc.Name, j+1, err))
				}
			default:
				errs = append(errs, fmt.Errorf("scenario %q step %d: multiple actions %s", sc.Name, j+1, strings.Join(actions, ", ")))
			}
		}
	}
	return errors.Join(errs...)
}

// validateFields checks the step's own fields and compiles its condition.
func (s *Step) validateFields() error {
	switch {
	case s.Fill != nil && s.Fill.Selector == "":
		return errors.New("fill: selector is required")
	case s.Record != nil && s.Record.Label == "":
		return errors.New("record: label is required")
	case s.Set != nil && s.Set.Key == "":
		return errors.New("set: key is required")
	case s.ExpectValue != nil && s.ExpectValue.Key == "":
		return errors.New("expect_value: key is required")
	case s.Assert != "":
		program, err := compileCondition(s.Assert)
		if err != nil {
			return err
		}
		s.condition = program
	}
	return nil
}

// ParseSuite decodes and validates a suite.
func ParseSuite(data []byte) (*Suite, error) {
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("parse suite: %w", err)
	}
	if err := suite.Validate(); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}
	return &suite, nil
}

// LoadSuite reads a suite file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}
	suite, err := ParseSuite(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(filepath.Base(path), ".yaml")
	}
	return suite, nil
}
