// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"github.com/groundwork-sh/groundwork/internal/db"
	"github.com/groundwork-sh/groundwork/internal/model"
)

// RunSearcherFunc adapts a server-side run search into a plain function so
// this package stays decoupled from the db searcher types.
type RunSearcherFunc func(query string) ([]model.Run, error)

// FilterRuns narrows runs down to those matching query. A non-nil searcher
// is asked first and wins when it returns results without error. The
// in-memory fallback tokenizes the query the same way the SQL search does,
// so both paths agree on what matches.
func FilterRuns(runs []model.Run, query string, searcher RunSearcherFunc) []model.Run {
	if query == "" {
		return runs
	}
	if searcher != nil {
		if res, err := searcher(query); err == nil && len(res) > 0 {
			return res
		}
	}
	return db.FilterRunsByTokens(runs, db.TokenizeSearchQuery(query))
}
