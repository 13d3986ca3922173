// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"strings"

	"github.com/groundwork-sh/groundwork/internal/engine"
	"github.com/groundwork-sh/groundwork/internal/profile"
)

// PlanStep is a pure description of one entry of a provisioning plan. It
// contains everything a UI needs to render the plan without executing it.
type PlanStep struct {
	Position   int
	Name       string
	Title      string
	BestEffort bool
}

// BuildProvisionPlan constructs the plan description for a profile. Building
// the plan must not perform any side effects; `groundwork plan` and the
// dry-run path render its output directly.
func BuildProvisionPlan(p *profile.Profile, verify bool) []PlanStep {
	if p == nil {
		p = profile.Default()
	}
	steps := engine.BuildPlan(p, verify)
	out := make([]PlanStep, 0, len(steps))
	for i, s := range steps {
		out = append(out, PlanStep{
			Position:   i,
			Name:       s.Name,
			Title:      s.Title(),
			BestEffort: s.BestEffort,
		})
	}
	return out
}

// ResolveProfile loads the profile at path, falling back to the built-in
// default when path is empty. Loading includes validation, so a profile
// returned here is always runnable.
func ResolveProfile(path string) (*profile.Profile, error) {
	if strings.TrimSpace(path) == "" {
		return profile.Default(), nil
	}
	return profile.Load(path)
}
