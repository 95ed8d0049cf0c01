package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPath(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"docs/report.txt", "docs/report.txt"},
		{"/docs/report.txt", "docs/report.txt"},
		{"docs/report.txt/", "docs/report.txt"},
		{"//docs//report.txt", "docs/report.txt"},
		{"docs/./report.txt", "docs/report.txt"},
		{"docs/tmp/../report.txt", "docs/report.txt"},
		{"report.txt", "report.txt"},
	}
	for _, tc := range cases {
		got, err := CanonicalPath(tc.raw)
		require.NoError(t, err, "path %q", tc.raw)
		assert.Equal(t, tc.want, got, "path %q", tc.raw)
	}
}

func TestCanonicalPathRejected(t *testing.T) {
	for _, raw := range []string{"", "/", "///", ".", "..", "../etc/passwd", "a/../../etc"} {
		_, err := CanonicalPath(raw)
		require.Error(t, err, "path %q", raw)
		assert.Equal(t, ErrBadRequest, CodeOf(err), "path %q", raw)
	}
}

func TestCanonicalPathEquivalentSpellings(t *testing.T) {
	// Different spellings of the same file must collapse to one index key.
	a, err := CanonicalPath("/docs/report.txt")
	require.NoError(t, err)
	b, err := CanonicalPath("docs//report.txt/")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
