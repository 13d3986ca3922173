// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import "strings"

// TokenizeSearchQuery splits a free-text query into lower-cased tokens.
// Whitespace of any kind separates tokens; an empty query yields nil.
func TokenizeSearchQuery(q string) []string {
	fields := strings.Fields(q)
	if len(fields) == 0 {
		return nil
	}
	tokens := make([]string, len(fields))
	for i, f := range fields {
		tokens[i] = strings.ToLower(f)
	}
	return tokens
}
