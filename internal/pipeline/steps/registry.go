// Package steps provides the catalogue of execution steps run by the batch pipeline,
// their dependencies, and the plan for a given last step.
package steps

import (
	"fmt"
	"strings"

	"github.com/bcgov/nr-vdyp-sub007/internal/back"
	"github.com/bcgov/nr-vdyp-sub007/internal/forward"
)

// Stages
const (
	StageForward = "forward"
	StageBack    = "back"
)

// StepDefinition defines metadata for a pipeline step
type StepDefinition struct {
	Name         string // "<stage>:<step>"
	Stage        string
	Step         string
	Description  string
	Dependencies []string
}

var descriptions = map[string]string{
	"forward:NONE":                        "set the polygon only",
	"forward:CHECK_FOR_WORK":              "confirm the primary layer has at least one species with basal area",
	"forward:SET_COMPATIBILITY_VARIABLES": "install the compatibility variables carried on the input",
	"forward:ALL":                         "run every forward step",
	"back:NONE":                           "set the polygon only",
	"back:BASE_AREA_VETERAN":              "sum the veteran layer's species basal area",
	"back:COMPATIBILITY_VARIABLES":        "slice the forward stage's primary layer variables per species",
	"back:SIZE_LIMITS":                    "reconcile component size limits and final diameters",
	"back:ALL":                            "run every back step",
}

// StepRegistry holds all step definitions, keyed by qualified name
var StepRegistry = buildRegistry()

func buildRegistry() map[string]StepDefinition {
	registry := make(map[string]StepDefinition)

	var previous string
	for _, s := range forward.Steps.Steps() {
		def := define(StageForward, s.String(), previous)
		registry[def.Name] = def
		previous = def.Name
	}

	// The back stage reads the forward stage's variables, so every back step past NONE
	// depends on the whole forward sequence.
	forwardDone := qualify(StageForward, forward.Steps.Last().String())
	previous = ""
	for _, s := range back.Steps.Steps() {
		def := define(StageBack, s.String(), previous)
		if s != back.StepNone && len(def.Dependencies) == 1 && def.Dependencies[0] == qualify(StageBack, back.StepNone.String()) {
			def.Dependencies = append(def.Dependencies, forwardDone)
		}
		registry[def.Name] = def
		previous = def.Name
	}
	return registry
}

func define(stage, step, previous string) StepDefinition {
	def := StepDefinition{
		Name:         qualify(stage, step),
		Stage:        stage,
		Step:         step,
		Description:  descriptions[qualify(stage, step)],
		Dependencies: []string{},
	}
	if previous != "" {
		def.Dependencies = append(def.Dependencies, previous)
	}
	return def
}

func qualify(stage, step string) string {
	return stage + ":" + step
}

// GetStepDefinition returns the definition for a step
func GetStepDefinition(name string) (StepDefinition, bool) {
	def, ok := StepRegistry[name]
	return def, ok
}

// Stage returns a stage's steps in execution order.
func Stage(stage string) ([]StepDefinition, error) {
	var names []string
	switch stage {
	case StageForward:
		for _, s := range forward.Steps.Steps() {
			names = append(names, qualify(stage, s.String()))
		}
	case StageBack:
		for _, s := range back.Steps.Steps() {
			names = append(names, qualify(stage, s.String()))
		}
	default:
		return nil, fmt.Errorf("unknown stage: %s", stage)
	}

	defs := make([]StepDefinition, 0, len(names))
	for _, name := range names {
		def, ok := GetStepDefinition(name)
		if !ok {
			return nil, fmt.Errorf("step %s is not registered", name)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Plan returns the qualified steps a run with the given back stage last step executes,
// in order. The forward stage always runs in full.
func Plan(lastStep back.ExecutionStep) ([]string, error) {
	if !back.Steps.Contains(lastStep) {
		return nil, fmt.Errorf("unknown step: %s", lastStep)
	}

	var plan []string
	for _, s := range forward.Steps.Steps() {
		plan = append(plan, qualify(StageForward, s.String()))
	}
	for _, s := range back.Steps.Steps() {
		if !back.Steps.Le(s, lastStep) {
			break
		}
		plan = append(plan, qualify(StageBack, s.String()))
	}
	return plan, nil
}

// DependencyError indicates missing dependencies
type DependencyError struct {
	Step                string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("missing dependencies: %v", e.MissingDependencies)
}

// ValidateDependencies checks if all required dependencies for a step are completed
func ValidateDependencies(stepName string, completed []string) error {
	def, ok := GetStepDefinition(stepName)
	if !ok {
		return fmt.Errorf("unknown step: %s", stepName)
	}

	done := make(map[string]bool, len(completed))
	for _, c := range completed {
		done[strings.TrimSpace(c)] = true
	}

	var missing []string
	for _, dep := range def.Dependencies {
		if !done[dep] {
			missing = append(missing, dep)
		}
	}

	if len(missing) > 0 {
		return &DependencyError{
			Step:                stepName,
			MissingDependencies: missing,
		}
	}
	return nil
}

// ValidatePlan checks that every step of plan runs after all of its dependencies.
func ValidatePlan(plan []string) error {
	for i, name := range plan {
		if err := ValidateDependencies(name, plan[:i]); err != nil {
			return fmt.Errorf("step %s: %w", name, err)
		}
	}
	return nil
}
