// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/groundwork-sh/groundwork/internal/envfile"
	"github.com/groundwork-sh/groundwork/internal/model"
	"github.com/groundwork-sh/groundwork/internal/profile"
	"github.com/groundwork-sh/groundwork/internal/runner"
)

// DoctorReport is the outcome of inspecting a target against a profile
// without changing anything. Every field reflects observed state; absent
// tooling shows up as false/empty rather than as an error.
type DoctorReport struct {
	Target  string
	Service string

	// Layout checks under the profile's project directory.
	ProjectDirExists bool
	AppDirExists     bool
	VenvExists       bool
	ManifestExists   bool

	// PythonVersion is the interpreter's reported version, empty when the
	// configured interpreter is not on the target.
	PythonVersion string

	// Environment file drift against the profile schema.
	EnvFilePath string
	Drift       *model.EnvDriftAnalysis
}

// Healthy reports whether nothing on the target needs attention.
func (d *DoctorReport) Healthy() bool {
	return d.ProjectDirExists && d.AppDirExists && d.VenvExists &&
		d.ManifestExists && d.PythonVersion != "" &&
		d.Drift != nil && !d.Drift.HasDrift
}

// RunDoctorCmd inspects the target read-only: directory layout, interpreter
// availability and environment-file drift. It never mutates the target and
// only errors when the target itself cannot be examined. Detected drift is
// recorded in the audit trail so host changes leave a trace.
func RunDoctorCmd(ctx context.Context, p *profile.Profile, r runner.Runner) (*DoctorReport, error) {
	if p == nil {
		p = profile.Default()
	}

	report := &DoctorReport{
		Target:      r.Name(),
		Service:     p.Service,
		EnvFilePath: p.EnvFilePath(),
	}

	var err error
	if report.ProjectDirExists, err = r.DirExists(p.ProjectDir); err != nil {
		return nil, fmt.Errorf("examine %s: %w", p.ProjectDir, err)
	}
	if report.AppDirExists, err = r.DirExists(p.AppPath()); err != nil {
		return nil, fmt.Errorf("examine %s: %w", p.AppPath(), err)
	}
	if report.VenvExists, err = r.DirExists(p.VenvPath()); err != nil {
		return nil, fmt.Errorf("examine %s: %w", p.VenvPath(), err)
	}
	if report.ManifestExists, err = r.FileExists(p.ManifestPath()); err != nil {
		return nil, fmt.Errorf("examine %s: %w", p.ManifestPath(), err)
	}

	// A missing interpreter is a finding, not an error.
	if res, runErr := r.Run(ctx, p.PythonBin(), "--version"); runErr == nil && res.ExitCode == 0 {
		report.PythonVersion = strings.TrimSpace(res.Output())
	}

	content := ""
	exists, err := r.FileExists(p.EnvFilePath())
	if err != nil {
		return nil, fmt.Errorf("examine %s: %w", p.EnvFilePath(), err)
	}
	if exists {
		data, readErr := r.ReadFile(p.EnvFilePath())
		if readErr != nil {
			return nil, fmt.Errorf("read %s: %w", p.EnvFilePath(), readErr)
		}
		content = string(data)
	}
	report.Drift = envfile.Analyze(p, content, exists)

	if report.Drift.HasDrift {
		if aw := DefaultAuditWriter(); aw != nil {
			_ = aw.LogAction("DOCTOR_DRIFT", fmt.Sprintf("%s on %s: %s", p.Service, r.Name(), report.Drift.Summary()))
		}
	}

	return report, nil
}
