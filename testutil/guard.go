// Package testutil provides test helpers that keep package layering honest.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// AssertNoDirectImports scans the non-test .go files in dir and fails if any
// import path satisfies forbidden. Build tags are not evaluated.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("scan imports: %v", err)
	}
	if len(viols) > 0 {
		t.Fatalf("forbidden imports (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}

// InternalImport matches any path under an internal/ directory.
func InternalImport(path string) bool {
	return strings.Contains(path, "/internal/") || strings.HasSuffix(path, "/internal")
}

// ThirdPartyImport matches module paths outside the standard library and
// this module.
func ThirdPartyImport(path string) bool {
	first := strings.SplitN(path, "/", 2)[0]
	return strings.Contains(first, ".")
}

// PersistenceImport matches the store implementations and the registry.
func PersistenceImport(path string) bool {
	return strings.Contains(path, "/internal/infra/persistence") || strings.HasSuffix(path, "/internal/core")
}

// AnyOf combines predicates.
func AnyOf(preds ...func(string) bool) func(string) bool {
	return func(path string) bool {
		for _, p := range preds {
			if p(path) {
				return true
			}
		}
		return false
	}
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range f.Imports {
			ip, _ := strconv.Unquote(imp.Path.Value)
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	return viols, nil
}
