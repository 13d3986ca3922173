//go:build !windows
// +build !windows

// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// SSH agent lookup on Unix-like systems. The agent serves as an
// authentication fallback for remote targets when no key file works.
package runner

import (
	"net"
	"os"

	"golang.org/x/crypto/ssh/agent"
)

// getSSHAgent returns a client for the agent behind SSH_AUTH_SOCK, or nil
// when no agent is reachable.
func getSSHAgent() agent.Agent {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil
	}
	return agent.NewClient(conn)
}
