// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import "testing"

func TestRunString(t *testing.T) {
	r := Run{Profile: "gallery-backend", Target: "root@203.0.113.7"}
	if got := r.String(); got != "gallery-backend on root@203.0.113.7" {
		t.Errorf("unexpected Run.String(): %q", got)
	}
}

func TestRunSucceeded(t *testing.T) {
	r := Run{Status: RunStatusSucceeded}
	if !r.Succeeded() {
		t.Errorf("expected Succeeded() for status %q", r.Status)
	}
	r.Status = RunStatusFailed
	if r.Succeeded() {
		t.Errorf("did not expect Succeeded() for status %q", r.Status)
	}
}

func TestStepResultString(t *testing.T) {
	s := StepResult{Name: "runtime-env", Status: StepStatusFailed}
	if got := s.String(); got != "runtime-env: failed" {
		t.Errorf("unexpected StepResult.String(): %q", got)
	}
}
