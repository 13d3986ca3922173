// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"reflect"
	"testing"
)

func TestTokenizeSearchQuery(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty", "", nil},
		{"whitespace only", "   \t  ", nil},
		{"lowercases", "FAILED Web-01", []string{"failed", "web-01"}},
		{"trims and splits runs of spaces", "  gallery   backend  ", []string{"gallery", "backend"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := TokenizeSearchQuery(c.query)
			if !reflect.DeepEqual(got, c.want) {
				t.Fatalf("TokenizeSearchQuery(%q) = %#v, want %#v", c.query, got, c.want)
			}
		})
	}
}
