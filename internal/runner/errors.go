// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package runner

import (
	"errors"
	"strings"
)

// Error classification helpers. SSH library errors arrive as opaque strings,
// so UIs use these to decide which message to show and whether a retry is
// worth suggesting.

// IsConnectionTimeoutError reports whether the error looks like a network
// timeout.
func IsConnectionTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded")
}

// IsConnectionRefusedError reports whether the target was unreachable.
func IsConnectionRefusedError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "no route to host")
}

// IsAuthenticationError reports whether every offered auth method was
// rejected.
func IsAuthenticationError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "authentication failed")
}

// IsHostKeyError reports whether the connection was stopped by host key
// verification, either an unknown or a mismatching key.
func IsHostKeyError(err error) bool {
	return errors.Is(err, ErrUnknownHostKey) || errors.Is(err, ErrHostKeyMismatch)
}
