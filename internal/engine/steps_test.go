// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/groundwork-sh/groundwork/internal/model"
	"github.com/groundwork-sh/groundwork/internal/profile"
	"github.com/groundwork-sh/groundwork/internal/testutil"
)

func TestOSPackageFailureStopsBeforeEnvFile(t *testing.T) {
	p := profile.Default()
	fr := readyRunner(p)
	fr.Responses["env DEBIAN_FRONTEND=noninteractive apt-get install"] = testutil.FakeResponse{
		ExitCode: 100,
		Stderr:   "E: Unable to locate package python3.11\n",
	}

	report, err := Execute(context.Background(), fr, BuildPlan(p, false), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if report.FailedStep != "os-packages" {
		t.Errorf("FailedStep = %s", report.FailedStep)
	}
	if _, written := fr.Files[p.EnvFilePath()]; written {
		t.Error("environment file must not be written after a package failure")
	}
}

func TestRuntimeEnvFailure(t *testing.T) {
	p := profile.Default()
	fr := readyRunner(p)
	// Creation "succeeds" but produces no interpreter.
	fr.RunHook = nil
	fr.Responses[p.Python+" -m venv"] = testutil.FakeResponse{}

	report, err := Execute(context.Background(), fr, BuildPlan(p, false), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrRuntimeCreate) {
		t.Fatalf("expected ErrRuntimeCreate, got %v", err)
	}
	if report.FailedStep != "runtime-env" {
		t.Errorf("FailedStep = %s", report.FailedStep)
	}
}

func TestScriptsAreMarkedExecutable(t *testing.T) {
	p := profile.Default()
	fr := readyRunner(p)
	start := p.AppPath() + "/start.sh"
	redeploy := p.AppPath() + "/redeploy.sh"
	fr.Files[start] = []byte("#!/bin/sh\n")
	fr.Files[redeploy] = []byte("#!/bin/sh\n")

	_, err := Execute(context.Background(), fr, BuildPlan(p, false), nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if fr.Perms[start] != 0755 {
		t.Errorf("start.sh perm = %o, expected 0755", fr.Perms[start])
	}
	if fr.Perms[redeploy] != 0755 {
		t.Errorf("redeploy.sh perm = %o, expected 0755", fr.Perms[redeploy])
	}
}

func TestVerifyStepIsBestEffort(t *testing.T) {
	p := profile.Default()
	p.HealthURL = "http://127.0.0.1:8000/health"
	fr := readyRunner(p)
	fr.Responses[p.PythonBin()+" -c"] = testutil.FakeResponse{
		ExitCode: 1,
		Stdout:   "<urlopen error [Errno 111] Connection refused>\n",
	}

	report, err := Execute(context.Background(), fr, BuildPlan(p, true), nil)
	if err != nil {
		t.Fatalf("failed health probe must not fail the run: %v", err)
	}
	last := report.Outcomes[len(report.Outcomes)-1]
	if last.Step.Name != "verify" {
		t.Fatalf("last step = %s, expected verify", last.Step.Name)
	}
	if last.Status != model.StepStatusWarn {
		t.Errorf("verify = %s, expected warn", last.Status)
	}
}

func TestVerifyStepHealthy(t *testing.T) {
	p := profile.Default()
	p.HealthURL = "http://127.0.0.1:8000/health"
	fr := readyRunner(p)

	report, err := Execute(context.Background(), fr, BuildPlan(p, true), nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	last := report.Outcomes[len(report.Outcomes)-1]
	if last.Status != model.StepStatusOK {
		t.Errorf("verify = %s, expected ok", last.Status)
	}
	if report.Status != model.RunStatusSucceeded {
		t.Errorf("Status = %s", report.Status)
	}
}

func TestStepTitlesResolve(t *testing.T) {
	p := profile.Default()
	p.HealthURL = "http://127.0.0.1:8000/health"
	for _, s := range BuildPlan(p, true) {
		title := s.Title()
		if title == "" {
			t.Errorf("step %s has an empty title", s.Name)
		}
	}
}
