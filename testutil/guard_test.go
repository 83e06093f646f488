package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func writeGo(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "a.go", "package p\n\nimport (\n\t\"fmt\"\n\t\"specimencore/internal/core\"\n)\n\nvar _ = fmt.Sprint\nvar _ core.Registry\n")
	writeGo(t, dir, "b_test.go", "package p\n\nimport \"github.com/stretchr/testify/assert\"\n\nvar _ = assert.True\n")
	writeGo(t, dir, "c.go", "package p\n\nimport \"github.com/google/uuid\"\n\nvar _ = uuid.New\n")

	viols, err := directImportViolations(dir, InternalImport)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "specimencore/internal/core (in a.go)" {
		t.Fatalf("unexpected internal violations %v", viols)
	}
	viols, err = directImportViolations(dir, ThirdPartyImport)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "github.com/google/uuid (in c.go)" {
		t.Fatalf("test files must be skipped, got %v", viols)
	}
}

func TestPredicates(t *testing.T) {
	cases := []struct {
		path string
		pred func(string) bool
		want bool
	}{
		{"specimencore/internal/search", InternalImport, true},
		{"specimencore/pkg/domain", InternalImport, false},
		{"golang.org/x/text/cases", ThirdPartyImport, true},
		{"encoding/json", ThirdPartyImport, false},
		{"specimencore/internal/core", PersistenceImport, true},
		{"specimencore/internal/infra/persistence/sqlite", PersistenceImport, true},
		{"specimencore/internal/export", PersistenceImport, false},
		{"net/http", AnyOf(InternalImport, ThirdPartyImport), false},
		{"github.com/spf13/cobra", AnyOf(InternalImport, ThirdPartyImport), true},
	}
	for _, c := range cases {
		if got := c.pred(c.path); got != c.want {
			t.Errorf("%s: got %v want %v", c.path, got, c.want)
		}
	}
}

func TestAssertNoDirectImportsPassesCleanDir(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "a.go", "package p\n\nimport \"strings\"\n\nvar _ = strings.ToLower\n")
	AssertNoDirectImports(t, dir, AnyOf(InternalImport, ThirdPartyImport), "clean")
}
