// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"errors"
	"strings"
)

// ErrDuplicate is returned when an insert collides with an existing row.
var ErrDuplicate = errors.New("duplicate record")

// ErrRunNotFound is returned when a run ID does not exist in the journal.
var ErrRunNotFound = errors.New("run not found")

// duplicateMarkers are the substrings the three engines put into their
// constraint-violation messages: SQLite and Postgres say "unique" or
// "duplicate", Postgres adds SQLSTATE 23505, MySQL uses error code 1062.
var duplicateMarkers = []string{"duplicate", "unique", "23505", "1062"}

// MapDBError folds driver-specific constraint violations into ErrDuplicate.
// Matching on message text keeps the driver packages out of this file; any
// other error passes through untouched.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range duplicateMarkers {
		if strings.Contains(msg, marker) {
			return ErrDuplicate
		}
	}
	return err
}
