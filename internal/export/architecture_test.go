package export_test

import (
	"testing"

	"specimencore/testutil"
)

// Exports read collections handed to them and never reach into the stores.
func TestExportDoesNotImportStores(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.PersistenceImport, "export works on collection values")
}
