// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"strings"

	"github.com/groundwork-sh/groundwork/internal/model"
)

// FilterRunsByTokens returns the runs matching every token. Tokens are
// checked case-insensitively against profile, target, status and failed
// step. With no tokens the input comes back untouched. This is the local
// counterpart of SearchRunsBun for callers that already hold the runs.
func FilterRunsByTokens(runs []model.Run, tokens []string) []model.Run {
	if len(tokens) == 0 {
		return runs
	}
	matched := make([]model.Run, 0, len(runs))
	for _, run := range runs {
		if runMatchesTokens(run, tokens) {
			matched = append(matched, run)
		}
	}
	return matched
}

func runMatchesTokens(run model.Run, tokens []string) bool {
	fields := [4]string{
		strings.ToLower(run.Profile),
		strings.ToLower(run.Target),
		strings.ToLower(run.Status),
		strings.ToLower(run.FailedStep),
	}
	for _, tok := range tokens {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		hit := false
		for _, f := range fields {
			if strings.Contains(f, tok) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}
