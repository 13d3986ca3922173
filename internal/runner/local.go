// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
)

// Local runs everything on the machine Groundwork itself runs on.
type Local struct{}

// NewLocal returns a runner for the local machine.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Run(ctx context.Context, command string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Result{
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
				ExitCode: exitErr.ExitCode(),
			}, nil
		}
		return nil, fmt.Errorf("could not run %s: %w", command, err)
	}

	return &Result{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

func (l *Local) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile stages the content in a temporary file next to the target, sets
// permissions, then renames it into place.
func (l *Local) WriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".groundwork.*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

func (l *Local) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (l *Local) DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (l *Local) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (l *Local) Chmod(path string, perm fs.FileMode) error {
	return os.Chmod(path, perm)
}

func (l *Local) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (l *Local) Glob(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}

func (l *Local) Close() error { return nil }
