package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"", "/"},
		{"docs", "/docs"},
		{"/docs/", "/docs"},
		{"//docs//a.txt", "/docs/a.txt"},
		{`\docs\a.txt`, "/docs/a.txt"},
		{"/docs/./a.txt", "/docs/a.txt"},
		{"  /docs  ", "/docs"},
	}
	for _, tc := range cases {
		got, err := NormalizePath(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestNormalizePathRejectsTraversal(t *testing.T) {
	for _, in := range []string{"/docs/../etc", "..", "/..", "a/../../b", "/docs/\x00"} {
		_, err := NormalizePath(in)
		assert.True(t, errors.Is(err, ErrInvalidPath), "input %q should be rejected", in)
	}
}

func TestSplitPath(t *testing.T) {
	parent, name := SplitPath("/docs/a.txt")
	assert.Equal(t, "/docs", parent)
	assert.Equal(t, "a.txt", name)

	parent, name = SplitPath("/docs")
	assert.Equal(t, "/", parent)
	assert.Equal(t, "docs", name)
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "/docs/a.txt", JoinPath("/docs", "a.txt"))
	assert.Equal(t, "/a.txt", JoinPath("/", "a.txt"))
}

func TestDirKey(t *testing.T) {
	assert.Equal(t, "", DirKey("/"))
	assert.Equal(t, "/docs", DirKey("/docs"))
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "a.txt", SanitizeName("a.txt"))
	assert.Equal(t, "a.txt", SanitizeName("evil/../a.txt"))
	assert.Equal(t, "", SanitizeName(".."))
	assert.Equal(t, "", SanitizeName("   "))
}
