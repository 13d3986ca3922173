// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// package testutil provides shared test doubles. FakeRunner stands in for a
// provisioning target so engine and UI tests never touch a real shell or
// network.
package testutil

import (
	"context"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/groundwork-sh/groundwork/internal/runner"
)

// FakeResponse scripts the outcome of one command prefix.
type FakeResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// FakeRunner is an in-memory runner.Runner. Commands are matched against
// scripted responses by prefix; file operations work on an in-memory tree.
// The zero value is not usable, call NewFakeRunner.
type FakeRunner struct {
	TargetName string

	Files map[string][]byte
	Dirs  map[string]bool
	Perms map[string]fs.FileMode

	// Responses maps a command-line prefix (e.g. "apt-get install") to its
	// scripted outcome. Unmatched commands succeed with empty output.
	Responses map[string]FakeResponse

	// RunHook, if set, is called with the full command line before each
	// lookup. Tests use it to cancel contexts or record ordering.
	RunHook func(commandLine string)

	// WriteErr, if set, fails every WriteFile call.
	WriteErr error

	Commands []string
	Closed   bool
}

// NewFakeRunner returns a fake with an empty filesystem that answers as
// root (`id -u` → 0).
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		TargetName: "fake",
		Files:      make(map[string][]byte),
		Dirs:       make(map[string]bool),
		Perms:      make(map[string]fs.FileMode),
		Responses: map[string]FakeResponse{
			"id -u": {Stdout: "0\n"},
		},
	}
}

func (f *FakeRunner) Name() string { return f.TargetName }

func (f *FakeRunner) Run(ctx context.Context, command string, args ...string) (*runner.Result, error) {
	line := command
	if len(args) > 0 {
		line += " " + strings.Join(args, " ")
	}
	f.Commands = append(f.Commands, line)

	if f.RunHook != nil {
		f.RunHook(line)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Longest matching prefix wins so tests can script both a general and a
	// more specific outcome.
	var best string
	found := false
	for prefix := range f.Responses {
		if strings.HasPrefix(line, prefix) {
			if !found || len(prefix) > len(best) {
				best = prefix
				found = true
			}
		}
	}
	if found {
		resp := f.Responses[best]
		if resp.Err != nil {
			return nil, resp.Err
		}
		return &runner.Result{Stdout: resp.Stdout, Stderr: resp.Stderr, ExitCode: resp.ExitCode}, nil
	}
	return &runner.Result{}, nil
}

func (f *FakeRunner) ReadFile(filePath string) ([]byte, error) {
	data, ok := f.Files[filePath]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (f *FakeRunner) WriteFile(filePath string, data []byte, perm fs.FileMode) error {
	if f.WriteErr != nil {
		return f.WriteErr
	}
	f.Files[filePath] = append([]byte(nil), data...)
	f.Perms[filePath] = perm
	return nil
}

func (f *FakeRunner) FileExists(filePath string) (bool, error) {
	_, ok := f.Files[filePath]
	return ok, nil
}

func (f *FakeRunner) DirExists(filePath string) (bool, error) {
	return f.Dirs[filePath], nil
}

func (f *FakeRunner) MkdirAll(filePath string, perm fs.FileMode) error {
	f.Dirs[filePath] = true
	f.Perms[filePath] = perm
	return nil
}

func (f *FakeRunner) Chmod(filePath string, perm fs.FileMode) error {
	f.Perms[filePath] = perm
	return nil
}

func (f *FakeRunner) RemoveAll(filePath string) error {
	delete(f.Dirs, filePath)
	delete(f.Files, filePath)
	prefix := filePath + "/"
	for p := range f.Files {
		if strings.HasPrefix(p, prefix) {
			delete(f.Files, p)
		}
	}
	for p := range f.Dirs {
		if strings.HasPrefix(p, prefix) {
			delete(f.Dirs, p)
		}
	}
	return nil
}

func (f *FakeRunner) Glob(pattern string) ([]string, error) {
	var matches []string
	for p := range f.Files {
		ok, err := path.Match(pattern, p)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, p)
		}
	}
	sort.Strings(matches)
	return matches, nil
}

func (f *FakeRunner) Close() error {
	f.Closed = true
	return nil
}

// Ran reports whether any recorded command line starts with the prefix.
func (f *FakeRunner) Ran(prefix string) bool {
	for _, c := range f.Commands {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
