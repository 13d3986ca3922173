// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter keeps the locale files and the source tree honest: every key
// the code asks for must exist in the primary locale, every key the primary
// locale ships must be asked for somewhere, and the secondary locales must
// carry the full primary key set. It also lists string literals that look
// like user-facing text bypassing i18n.T, as warnings.
package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "active.en.yaml"
	projectRoot   = "."
)

// Location points at a literal in the scanned source.
type Location struct {
	Filepath string
	Line     int
}

func main() {
	os.Exit(run())
}

func run() int {
	fmt.Println("🔍 Running i18n linter...")

	usedKeys, err := findUsedKeys(projectRoot)
	if err != nil {
		fmt.Printf("❌ scanning source for keys: %v\n", err)
		return 1
	}
	fmt.Printf("✅ %d unique translation keys used in source.\n", len(usedKeys))

	primaryKeys, err := loadKeysFromLocale(filepath.Join(localesDir, primaryLocale))
	if err != nil {
		fmt.Printf("❌ loading primary locale %s: %v\n", primaryLocale, err)
		return 1
	}
	fmt.Printf("✅ %d keys in primary locale (%s).\n\n", len(primaryKeys), primaryLocale)

	localeFiles, err := filepath.Glob(filepath.Join(localesDir, "*.yaml"))
	if err != nil {
		fmt.Printf("❌ listing locale files: %v\n", err)
		return 1
	}

	orphaned := reportOrphans(primaryKeys, usedKeys)
	missing := reportSecondaries(localeFiles, primaryKeys)

	untranslated, err := findUntranslatedStrings(projectRoot, usedKeys, primaryKeys)
	if err != nil {
		fmt.Printf("❌ scanning for untranslated strings: %v\n", err)
		return 1
	}
	reportUntranslated(untranslated)

	fmt.Println("\n--- Linter Finished ---")
	switch {
	case missing:
		fmt.Println("❌ Locale files are out of sync.")
		return 1
	case orphaned:
		fmt.Println("⚠️  Orphaned keys found. Consider removing them.")
		return 0
	default:
		fmt.Println("✅ All translation files are consistent!")
		return 0
	}
}

// reportOrphans lists primary-locale keys nothing in the source asks for.
func reportOrphans(primaryKeys, usedKeys map[string]struct{}) bool {
	fmt.Println("--- Orphaned keys (in primary locale, unused in code) ---")
	var orphans []string
	for key := range primaryKeys {
		// language_name is per-locale metadata read by the locale loader,
		// not a translation fetched through i18n.T.
		if key == "language_name" {
			continue
		}
		if _, ok := usedKeys[key]; !ok {
			orphans = append(orphans, key)
		}
	}
	if len(orphans) == 0 {
		fmt.Println("  ✨ None found.")
		fmt.Println()
		return false
	}
	sort.Strings(orphans)
	for _, key := range orphans {
		fmt.Printf("  - Orphaned: %s\n", key)
	}
	fmt.Println()
	return true
}

// reportSecondaries diffs every non-primary locale against the primary key
// set and lists what is missing.
func reportSecondaries(localeFiles []string, primaryKeys map[string]struct{}) bool {
	fmt.Println("--- Missing keys (in primary locale, absent elsewhere) ---")
	anyMissing := false
	for _, file := range localeFiles {
		if filepath.Base(file) == primaryLocale {
			continue
		}
		fmt.Printf("Checking %s:\n", file)
		keys, err := loadKeysFromLocale(file)
		if err != nil {
			fmt.Printf("  - ❌ could not load %s: %v\n", file, err)
			anyMissing = true
			continue
		}
		var missing []string
		for key := range primaryKeys {
			if _, ok := keys[key]; !ok {
				missing = append(missing, key)
			}
		}
		if len(missing) == 0 {
			fmt.Println("  ✨ All keys present.")
			continue
		}
		sort.Strings(missing)
		for _, key := range missing {
			fmt.Printf("  - Missing: %s\n", key)
		}
		anyMissing = true
	}
	return anyMissing
}

// reportUntranslated prints the suspicious literals. Warnings only; tabular
// CLI output and fixed markers are hardcoded on purpose.
func reportUntranslated(untranslated map[string][]Location) {
	fmt.Println("\n--- Potentially untranslated strings ---")
	if len(untranslated) == 0 {
		fmt.Println("  ✨ None found.")
		return
	}
	literals := make([]string, 0, len(untranslated))
	for literal := range untranslated {
		literals = append(literals, literal)
	}
	sort.Strings(literals)
	for _, literal := range literals {
		loc := untranslated[literal][0]
		fmt.Printf("  - Potential: \"%s\" (found in %s:%d)\n", literal, loc.Filepath, loc.Line)
	}
}

// walkGoSources visits every non-test .go file under root, skipping the
// tools directory, and hands the file content to fn.
func walkGoSources(root string, fn func(path string, content []byte) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "tools" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return fn(path, content)
	})
}

// usedKeyRe catches i18n.T("some.key") calls and bare key-shaped literals,
// which cover key tables like the TUI filter helpers and the step titles.
var usedKeyRe = regexp.MustCompile(`i18n\.T\("([^"]+)"|\"([a-z]+\.[a-z\._]+)\"`)

// findUsedKeys collects every translation key the source tree references.
func findUsedKeys(root string) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	err := walkGoSources(root, func(_ string, content []byte) error {
		for _, match := range usedKeyRe.FindAllStringSubmatch(string(content), -1) {
			switch {
			case match[1] != "":
				keys[match[1]] = struct{}{}
			case match[2] != "":
				keys[match[2]] = struct{}{}
			}
		}
		return nil
	})
	return keys, err
}

var (
	// callRe matches name("literal") calls whose argument may be display text.
	callRe = regexp.MustCompile(`([a-zA-Z0-9_]+\.)?([a-zA-Z0-9_]+)\("([^"]+)"`)
	// keyShapedRe matches literals that are translation keys themselves.
	keyShapedRe = regexp.MustCompile(`^[a-z_]+\.[a-z\._]+$`)
	// allCapsRe matches audit action constants like TRUST_HOST.
	allCapsRe = regexp.MustCompile(`^[A-Z_]+$`)
	// formatOnlyRe matches literals that are format plumbing, not prose.
	formatOnlyRe = regexp.MustCompile(`^[\s%.,:;()#\d\w-]*%[\s\w-]*$`)
)

// sqlPrefixes marks literals that are queries, not display text.
var sqlPrefixes = []string{"SELECT ", "INSERT ", "UPDATE ", "DELETE ", "TRUNCATE ", "PRAGMA ", "CREATE ", "ALTER ", "DROP "}

// noisyCallers produce output that is exempt from translation (debug dumps,
// raw writers).
var noisyCallers = map[string]struct{}{
	"Print": {}, "Println": {}, "Printf": {},
	"Fatal": {}, "Fatalf": {}, "WriteString": {},
}

// skipLiteral filters out literals that only look like display text.
func skipLiteral(literal string, knownKeys map[string]struct{}) bool {
	if _, ok := knownKeys[literal]; ok {
		return true
	}
	if keyShapedRe.MatchString(literal) {
		return true
	}
	if len(literal) < 4 {
		return true
	}
	if strings.HasPrefix(literal, "file:") || strings.HasPrefix(literal, "http") {
		return true
	}
	upper := strings.ToUpper(literal)
	for _, prefix := range sqlPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	// Go time layouts.
	if strings.HasPrefix(literal, "2006-") {
		return true
	}
	if allCapsRe.MatchString(literal) {
		return true
	}
	// Tab-separated literals are tabwriter headers, hardcoded on purpose.
	if strings.Contains(literal, `\t`) {
		return true
	}
	if formatOnlyRe.MatchString(literal) && !strings.Contains(literal, " ") {
		return true
	}
	return false
}

// findUntranslatedStrings flags call-argument literals that read like
// user-facing text but never pass through i18n.T.
func findUntranslatedStrings(root string, usedKeys, allKeys map[string]struct{}) (map[string][]Location, error) {
	untranslated := make(map[string][]Location)
	known := make(map[string]struct{}, len(usedKeys)+len(allKeys))
	for k := range usedKeys {
		known[k] = struct{}{}
	}
	for k := range allKeys {
		known[k] = struct{}{}
	}

	err := walkGoSources(root, func(path string, content []byte) error {
		for i, line := range strings.Split(string(content), "\n") {
			for _, match := range callRe.FindAllStringSubmatch(line, -1) {
				funcName, literal := match[2], match[3]
				if _, noisy := noisyCallers[funcName]; noisy {
					continue
				}
				if skipLiteral(literal, known) {
					continue
				}
				untranslated[literal] = append(untranslated[literal], Location{Filepath: path, Line: i + 1})
			}
		}
		return nil
	})
	return untranslated, err
}

// loadKeysFromLocale reads one locale file into a flat key set. The shipped
// locales are already flat dotted keys; flattenYAML also tolerates nested
// documents so hand-edited files still lint.
func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, err
	}
	keys := make(map[string]struct{})
	flattenYAML("", doc, keys)
	return keys, nil
}

// flattenYAML folds a YAML tree into dot-joined leaf keys. Array elements
// get an index suffix.
func flattenYAML(prefix string, node interface{}, keys map[string]struct{}) {
	switch v := node.(type) {
	case map[string]interface{}:
		for k, val := range v {
			joined := k
			if prefix != "" {
				joined = prefix + "." + k
			}
			flattenYAML(joined, val, keys)
		}
	case []interface{}:
		for i, val := range v {
			flattenYAML(fmt.Sprintf("%s[%d]", prefix, i), val, keys)
		}
	default:
		if prefix != "" {
			keys[prefix] = struct{}{}
		}
	}
}
