//go:build windows
// +build windows

// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// SSH agent lookup on Windows. Provisioning targets are Linux hosts, but
// the operator's workstation may well be Windows, running either a
// Pageant-compatible agent or the OpenSSH agent behind a named pipe.
package runner

import (
	"os"

	"github.com/Microsoft/go-winio"
	"github.com/davidmz/go-pageant"
	"golang.org/x/crypto/ssh/agent"
)

// defaultAgentPipe is where OpenSSH for Windows exposes its agent.
const defaultAgentPipe = `\\.\pipe\openssh-ssh-agent`

// getSSHAgent returns a client for whichever agent answers: Pageant (PuTTY,
// gpg-agent) first, then the named pipe from SSH_AUTH_SOCK, then the default
// OpenSSH pipe. Returns nil when none is reachable.
func getSSHAgent() agent.Agent {
	if pageant.Available() {
		return pageant.New()
	}
	pipe := os.Getenv("SSH_AUTH_SOCK")
	if pipe == "" {
		pipe = defaultAgentPipe
	}
	conn, err := winio.DialPipe(pipe, nil)
	if err != nil {
		return nil
	}
	return agent.NewClient(conn)
}
