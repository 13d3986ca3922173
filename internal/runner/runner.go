// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// package runner abstracts the machine a provisioning run operates on. The
// same step code drives a local shell or a remote host over SSH; the Runner
// interface is the seam between the two. Remote hosts are verified against
// the known-host keys recorded in the journal before anything executes.
package runner

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"github.com/groundwork-sh/groundwork/internal/security"
)

// Result carries the outcome of one executed command. A non-zero ExitCode is
// not an error at this layer; transport and spawn failures are.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Output returns stdout and stderr joined for display, trimmed of trailing
// whitespace.
func (r *Result) Output() string {
	out := r.Stdout
	if r.Stderr != "" {
		if out != "" && !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		out += r.Stderr
	}
	return strings.TrimRight(out, "\n")
}

// Runner executes commands and file operations on a provisioning target.
// Implementations must be safe to call from a single goroutine; they are not
// required to support concurrent use.
type Runner interface {
	// Name identifies the target for logs and the journal, e.g. "local" or
	// "root@203.0.113.10:22".
	Name() string

	// Run executes a command. It returns a Result even when the command
	// exits non-zero; it returns an error only when the command could not
	// be run at all or the context was canceled.
	Run(ctx context.Context, command string, args ...string) (*Result, error)

	ReadFile(path string) ([]byte, error)
	// WriteFile writes atomically: content lands under the final path only
	// complete and with its permissions already set.
	WriteFile(path string, data []byte, perm fs.FileMode) error
	FileExists(path string) (bool, error)
	DirExists(path string) (bool, error)
	MkdirAll(path string, perm fs.FileMode) error
	Chmod(path string, perm fs.FileMode) error
	RemoveAll(path string) error
	Glob(pattern string) ([]string, error)

	Close() error
}

// Options configures how a runner is built for a target.
type Options struct {
	// IdentityFile is the path of the SSH private key used for remote
	// targets. Empty means agent-only authentication.
	IdentityFile string
	// Passphrase decrypts the identity file when it is protected. The
	// runner wipes the secret after the handshake attempt.
	Passphrase security.Secret
}

// Connect builds a runner for a target spec. "local" (or "") runs on this
// machine; anything else is parsed as [user@]host[:port] and reached over
// SSH.
func Connect(spec string, opts Options) (Runner, error) {
	if spec == "" || spec == "local" {
		return NewLocal(), nil
	}
	target, err := ParseTarget(spec)
	if err != nil {
		return nil, err
	}
	return NewRemote(target, opts)
}

// ConnectFunc is the injection point for tests and callers that need to
// substitute runner construction.
var ConnectFunc = Connect

// IsPrivileged reports whether the runner acts as root on its target. It
// probes with `id -u` so local and remote targets behave identically.
func IsPrivileged(ctx context.Context, r Runner) (bool, error) {
	res, err := r.Run(ctx, "id", "-u")
	if err != nil {
		return false, fmt.Errorf("could not determine effective user: %w", err)
	}
	if res.ExitCode != 0 {
		return false, fmt.Errorf("id -u exited with %d: %s", res.ExitCode, res.Output())
	}
	return strings.TrimSpace(res.Stdout) == "0", nil
}
