// Package testutil provides shared test helpers for clmath Go tests.
package testutil

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScenariosFile is the relative path from the module root to the shared scenarios.
const ScenariosFile = "testdata/scenarios.yaml"

// Scenario is one conformance case. Exactly one of Input, Solve and Render is set.
type Scenario struct {
	Name   string         `yaml:"name"`
	Tags   []string       `yaml:"tags,omitempty"`
	Angle  string         `yaml:"angle,omitempty"`
	Input  []string       `yaml:"input,omitempty"`
	Solve  *SolveCase     `yaml:"solve,omitempty"`
	Render *RenderCase    `yaml:"render,omitempty"`
	Expect ExpectedResult `yaml:"expect"`
}

// SolveCase rearranges Expr for For, with As naming the value Expr equals.
type SolveCase struct {
	Expr string `yaml:"expr"`
	For  string `yaml:"for"`
	As   string `yaml:"as,omitempty"`
}

// RenderCase renders Expr in Mode.
type RenderCase struct {
	Expr string `yaml:"expr"`
	Mode string `yaml:"mode,omitempty"`
}

// ExpectedResult describes the outcome of the last statement.
type ExpectedResult struct {
	Value  string   `yaml:"value,omitempty"`
	Number *float64 `yaml:"number,omitempty"`
	Output string   `yaml:"output,omitempty"`
	Code   string   `yaml:"code,omitempty"`
	Kind   string   `yaml:"kind,omitempty"`
}

// LoadScenarios reads every scenario in path.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var scenarios []Scenario
	if err := yaml.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, s := range scenarios {
		n := 0
		if len(s.Input) > 0 {
			n++
		}
		if s.Solve != nil {
			n++
		}
		if s.Render != nil {
			n++
		}
		if n != 1 {
			return nil, fmt.Errorf("scenario %d (%s): need exactly one of input, solve, render", i, s.Name)
		}
	}
	return scenarios, nil
}
