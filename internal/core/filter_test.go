// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"errors"
	"testing"

	"github.com/groundwork-sh/groundwork/internal/model"
)

func filterRuns() []model.Run {
	return []model.Run{
		{ID: "r1", Profile: "gallery-backend", Target: "root@db01", Status: model.RunStatusSucceeded},
		{ID: "r2", Profile: "gallery-backend", Target: "local", Status: model.RunStatusFailed, FailedStep: "runtime-env"},
		{ID: "r3", Profile: "worker", Target: "local", Status: model.RunStatusSucceeded},
	}
}

func TestFilterRuns_EmptyQueryReturnsInput(t *testing.T) {
	runs := filterRuns()
	got := FilterRuns(runs, "", nil)
	if len(got) != len(runs) {
		t.Fatalf("expected all runs, got %d", len(got))
	}
}

func TestFilterRuns_MatchesAcrossFields(t *testing.T) {
	runs := filterRuns()

	if got := FilterRuns(runs, "worker", nil); len(got) != 1 || got[0].ID != "r3" {
		t.Fatalf("profile match failed: %+v", got)
	}
	if got := FilterRuns(runs, "db01", nil); len(got) != 1 || got[0].ID != "r1" {
		t.Fatalf("target match failed: %+v", got)
	}
	if got := FilterRuns(runs, "runtime-env", nil); len(got) != 1 || got[0].ID != "r2" {
		t.Fatalf("failed-step match failed: %+v", got)
	}
	// Case-insensitive.
	if got := FilterRuns(runs, "GALLERY", nil); len(got) != 2 {
		t.Fatalf("case-insensitive match failed: %+v", got)
	}
	if got := FilterRuns(runs, "no-such-thing", nil); len(got) != 0 {
		t.Fatalf("expected no match, got %+v", got)
	}
}

func TestFilterRuns_PrefersSearcher(t *testing.T) {
	runs := filterRuns()
	searcher := func(query string) ([]model.Run, error) {
		return []model.Run{{ID: "from-searcher"}}, nil
	}
	got := FilterRuns(runs, "worker", searcher)
	if len(got) != 1 || got[0].ID != "from-searcher" {
		t.Fatalf("searcher result not preferred: %+v", got)
	}
}

func TestFilterRuns_SearcherErrorFallsBack(t *testing.T) {
	runs := filterRuns()
	searcher := func(query string) ([]model.Run, error) {
		return nil, errors.New("db gone")
	}
	got := FilterRuns(runs, "worker", searcher)
	if len(got) != 1 || got[0].ID != "r3" {
		t.Fatalf("local fallback failed: %+v", got)
	}
}

func TestFilterRuns_SearcherEmptyFallsBack(t *testing.T) {
	runs := filterRuns()
	searcher := func(query string) ([]model.Run, error) { return nil, nil }
	got := FilterRuns(runs, "db01", searcher)
	if len(got) != 1 || got[0].ID != "r1" {
		t.Fatalf("local fallback failed: %+v", got)
	}
}

func TestContainsIgnoreCase(t *testing.T) {
	if !ContainsIgnoreCase("Gallery-Backend", "gallery") {
		t.Fatal("expected match")
	}
	if ContainsIgnoreCase("local", "remote") {
		t.Fatal("unexpected match")
	}
	if !ContainsIgnoreCase("anything", "") {
		t.Fatal("empty needle matches everything")
	}
}
