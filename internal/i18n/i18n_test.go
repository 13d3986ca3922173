// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.
package i18n

import "testing"

func TestAvailableLocalesListEmbeddedCatalogs(t *testing.T) {
	Init("en")

	av := GetAvailableLocales()
	for _, code := range []string{"en", "de"} {
		if _, ok := av[code]; !ok {
			t.Fatalf("locale %q missing from %v", code, av)
		}
	}
	if av["de"] != "Deutsch" {
		t.Fatalf("expected de to announce itself as Deutsch, got %q", av["de"])
	}
}

func TestLocaleCode(t *testing.T) {
	cases := []struct {
		file string
		want string
	}{
		{"active.en.yaml", "en"},
		{"active.de.yaml", "de"},
		{"de.yaml", "de"},
		{"README.md", ""},
	}
	for _, tc := range cases {
		if got := localeCode(tc.file); got != tc.want {
			t.Fatalf("localeCode(%q) = %q, want %q", tc.file, got, tc.want)
		}
	}
}

func TestTranslateAndSwitchLanguage(t *testing.T) {
	Init("en")
	if GetLang() != "en" {
		t.Fatalf("lang after Init: %q", GetLang())
	}
	if got := T("all"); got != "All" {
		t.Fatalf("T(all) in English: %q", got)
	}
	if got := T("history.runs_total", 7); got != "Total runs: 7" {
		t.Fatalf("formatted translation: %q", got)
	}

	SetLang("de")
	defer Init("en")
	if GetLang() != "de" {
		t.Fatalf("lang after SetLang: %q", GetLang())
	}
	if got := T("all"); got != "Alle" {
		t.Fatalf("T(all) in German: %q", got)
	}
}

func TestUnknownIDFallsBackToID(t *testing.T) {
	Init("en")
	const id = "definitely.not_a_key"
	if got := T(id); got != id {
		t.Fatalf("unknown ID should come back verbatim, got %q", got)
	}
}
