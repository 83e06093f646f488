package capture_test

import (
	"strings"
	"testing"

	"specimencore/testutil"
)

func TestCollaboratorsStayIndependent(t *testing.T) {
	thirdParty := func(path string) bool {
		return testutil.ThirdPartyImport(path) && !strings.HasPrefix(path, "github.com/go-audio/")
	}
	testutil.AssertNoDirectImports(t, ".", testutil.AnyOf(testutil.InternalImport, thirdParty),
		"collaborator contracts must not depend on the core; only audio decoding libraries are allowed")
}
