// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks the translation catalogues against the source. It
// reports message IDs passed to i18n.T that no catalogue defines, IDs missing
// from a secondary catalogue, catalogue entries nothing references, and
// string literals that look like untranslated user-facing text.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Location stores the file and line number of a found string.
type Location struct {
	Filepath string
	Line     int
}

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "active.en.yaml"
	projectRoot   = "."
)

// Report is the outcome of one lint run.
type Report struct {
	// Used holds every referenced ID; Called only those passed to i18n.T.
	Used   map[string]struct{}
	Called map[string]struct{}
	// Undefined IDs are passed to i18n.T but absent from the primary catalogue.
	Undefined []string
	// Orphaned IDs are in the primary catalogue but never referenced.
	Orphaned []string
	// Missing maps a secondary catalogue to the primary IDs it lacks.
	Missing      map[string][]string
	Untranslated map[string][]Location
}

// Failed reports whether the run found errors rather than warnings.
func (r *Report) Failed() bool {
	if len(r.Undefined) > 0 {
		return true
	}
	for _, keys := range r.Missing {
		if len(keys) > 0 {
			return true
		}
	}
	return false
}

func main() {
	fmt.Println("🔍 Running i18n linter...")
	r, err := lint(projectRoot, localesDir)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	printReport(os.Stdout, r)
	if r.Failed() {
		os.Exit(1)
	}
}

// lint scans the Go sources under root and the catalogues in locales.
func lint(root, locales string) (*Report, error) {
	used, called, err := findUsedKeys(root)
	if err != nil {
		return nil, fmt.Errorf("finding used keys: %w", err)
	}
	primaryKeys, err := loadKeysFromLocale(filepath.Join(locales, primaryLocale))
	if err != nil {
		return nil, fmt.Errorf("loading primary locale %s: %w", primaryLocale, err)
	}
	localeFiles, err := filepath.Glob(filepath.Join(locales, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("finding locale files: %w", err)
	}
	untranslated, err := findUntranslatedStrings(root, primaryKeys)
	if err != nil {
		return nil, fmt.Errorf("finding untranslated strings: %w", err)
	}

	r := &Report{Used: used, Called: called, Missing: map[string][]string{}, Untranslated: untranslated}
	r.Undefined = difference(called, primaryKeys)
	r.Orphaned = difference(primaryKeys, used)
	for _, file := range localeFiles {
		if filepath.Base(file) == primaryLocale {
			continue
		}
		secondary, err := loadKeysFromLocale(file)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", file, err)
		}
		r.Missing[file] = difference(primaryKeys, secondary)
	}
	return r, nil
}

// difference returns the sorted keys of a that are not in b.
func difference(a, b map[string]struct{}) []string {
	var out []string
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func printReport(w io.Writer, r *Report) {
	fmt.Fprintf(w, "✅ Found %d unique translation keys used in source code.\n\n", len(r.Used))

	section := func(title, label string, keys []string) {
		fmt.Fprintf(w, "--- %s ---\n", title)
		if len(keys) == 0 {
			fmt.Fprintln(w, "  ✨ None found.")
		}
		for _, k := range keys {
			fmt.Fprintf(w, "  - %s: %s\n", label, k)
		}
		fmt.Fprintln(w)
	}
	section("Checking for Undefined Keys (used in code but not in primary locale)", "Undefined", r.Undefined)
	section("Checking for Orphaned Keys (in primary locale but not used in code)", "Orphaned", r.Orphaned)

	files := make([]string, 0, len(r.Missing))
	for f := range r.Missing {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		section("Checking "+f+" for Missing Keys", "Missing", r.Missing[f])
	}

	fmt.Fprintln(w, "--- Checking for Potentially Untranslated Strings ---")
	if len(r.Untranslated) == 0 {
		fmt.Fprintln(w, "  ✨ None found.")
	}
	literals := make([]string, 0, len(r.Untranslated))
	for l := range r.Untranslated {
		literals = append(literals, l)
	}
	sort.Strings(literals)
	for _, l := range literals {
		loc := r.Untranslated[l][0]
		fmt.Fprintf(w, "  - Potential: %q (found in %s:%d)\n", l, loc.Filepath, loc.Line)
	}

	fmt.Fprintln(w, "\n--- Linter Finished ---")
	switch {
	case r.Failed():
		fmt.Fprintln(w, "❌ Found issues that need to be addressed.")
	case len(r.Orphaned) > 0:
		fmt.Fprintln(w, "⚠️  Found orphaned keys. Please consider removing them.")
	default:
		fmt.Fprintln(w, "✅ All translation files are consistent!")
	}
}

// walkSources calls fn for every non-test Go file under root, skipping
// tools, hidden and underscore directories.
func walkSources(root string, fn func(path, content string) error) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if path != root && (name == "tools" || name == "testdata" || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
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
		return fn(path, string(content))
	})
}

// findUsedKeys returns every ID referenced in source and, separately, those
// passed directly to i18n.T. Quoted dotted literals count as references so
// IDs kept in tables are not reported as orphaned.
func findUsedKeys(root string) (used, called map[string]struct{}, err error) {
	used = make(map[string]struct{})
	called = make(map[string]struct{})
	re := regexp.MustCompile(`i18n\.T\("([^"]+)"|"([a-z_]+\.[a-z_.]+)"`)

	err = walkSources(root, func(_, content string) error {
		for _, match := range re.FindAllStringSubmatch(content, -1) {
			if match[1] != "" {
				used[match[1]] = struct{}{}
				called[match[1]] = struct{}{}
			} else if match[2] != "" {
				used[match[2]] = struct{}{}
			}
		}
		return nil
	})
	return used, called, err
}

// findUntranslatedStrings scans for hardcoded strings that might need translation.
func findUntranslatedStrings(root string, allKeys map[string]struct{}) (map[string][]Location, error) {
	untranslated := make(map[string][]Location)
	re := regexp.MustCompile(`([a-zA-Z0-9_]+\.)?([a-zA-Z0-9_]+)\("([^"]+)"`)
	// Calls whose literals are not user-facing messages.
	ignoredFuncs := map[string]struct{}{
		"Print": {}, "Println": {}, "Printf": {}, "Fatal": {}, "Fatalf": {}, "WriteString": {},
		"Errorf": {}, "New": {}, "Debugf": {}, "Infof": {}, "Warnf": {}, "Sprintf": {},
		"Fprintf": {}, "Fprintln": {}, "ExecContext": {}, "OrderExpr": {}, "Where": {},
	}
	keyRe := regexp.MustCompile(`^[a-z_]+\.[a-z_.]+$`)
	reAllCaps := regexp.MustCompile(`^[A-Z_]+$`)
	reFormatString := regexp.MustCompile(`^[\s%.,:;()#\d\w-]*%[\s\w-]*$`)
	sqlKeywords := []string{"SELECT ", "INSERT ", "UPDATE ", "DELETE ", "PRAGMA ", "CREATE ", "ALTER ", "DROP ", "VACUUM", "OPTIMIZE "}

	err := walkSources(root, func(path, content string) error {
		for i, line := range strings.Split(content, "\n") {
			for _, match := range re.FindAllStringSubmatch(line, -1) {
				funcName, literal := match[2], match[3]
				if _, ignored := ignoredFuncs[funcName]; ignored {
					continue
				}
				if _, exists := allKeys[literal]; exists || keyRe.MatchString(literal) {
					continue
				}
				if len(literal) < 4 || strings.HasPrefix(literal, "file:") || strings.HasPrefix(literal, "http") {
					continue
				}
				upper := strings.ToUpper(literal)
				isSQL := false
				for _, kw := range sqlKeywords {
					if strings.HasPrefix(upper, kw) {
						isSQL = true
						break
					}
				}
				if isSQL || strings.HasPrefix(literal, "2006-") || reAllCaps.MatchString(literal) {
					continue
				}
				if reFormatString.MatchString(literal) && !strings.Contains(literal, " ") {
					continue
				}
				untranslated[literal] = append(untranslated[literal], Location{Filepath: path, Line: i + 1})
			}
		}
		return nil
	})
	return untranslated, err
}

// loadKeysFromLocale reads a YAML catalogue and returns its message IDs.
// Nested maps are flattened with dots.
func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}
	keys := make(map[string]struct{})
	flattenYAML("", data, keys)
	return keys, nil
}

// flattenYAML converts a nested map into a flat set of dot-separated keys.
func flattenYAML(prefix string, node interface{}, keys map[string]struct{}) {
	switch v := node.(type) {
	case map[string]interface{}:
		for k, val := range v {
			newPrefix := k
			if prefix != "" {
				newPrefix = prefix + "." + k
			}
			flattenYAML(newPrefix, val, keys)
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
