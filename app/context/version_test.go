package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionInfoString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		vi   VersionInfo
		exp  string
	}{
		{name: "no_vcs", vi: VersionInfo{Semantic: "1.0.0", goInfo: "go1.23"}, exp: "v1.0.0 (go1.23)"},
		{name: "commit", vi: VersionInfo{Semantic: "1.0.0", Commit: "abcdef1234", goInfo: "go1.23"}, exp: "v1.0.0 (commit/abcdef1234, go1.23)"},
		{name: "dirty", vi: VersionInfo{Semantic: "0.1.0", Commit: "abc", Dirty: true, goInfo: "go1.23"}, exp: "v0.1.0 (commit/abc-dirty, go1.23)"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.exp, tc.vi.String())
		})
	}

	assert.NotEmpty(t, GetVersion().Semantic)
}
