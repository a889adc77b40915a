package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchGlob(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"bench/*.js", "bench/map.js", true},
		{"bench/*.js", "bench/sub/map.js", false},
		{"bench/**/*.js", "bench/sub/map.js", true},
		{"bench/**/*.js", "bench/map.js", true},
		{"**/*.bench.js", "deep/nested/list.bench.js", true},
		{"**", "anything/at/all", true},
		{"*.js", "bench/map.js", false},
		{"bench/map.js", "bench/map.js", true},
		{"bench/map.js", "bench/set.js", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchGlob(tt.pattern, tt.name), "pattern %q against %q", tt.pattern, tt.name)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "bench/map.js", Normalize("./bench/map.js"))
	assert.Equal(t, "bench/map.js", Normalize("bench/map.js"))
}

func TestResolveIsSortedAndFiltered(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{"bench/b.js", "bench/a.js", "bench/deep/c.js", "other/d.txt"} {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	files, err := Resolve(root, []string{"bench/**/*.js"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bench/a.js", "bench/b.js", "bench/deep/c.js"}, files)
}

func TestParseShared(t *testing.T) {
	s, err := ParseShared("2/3")
	require.NoError(t, err)
	assert.Equal(t, &Shared{Index: 2, Count: 3}, s)

	for _, bad := range []string{"", "3", "0/3", "4/3", "a/b"} {
		_, err := ParseShared(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestPartitionsAreDisjointAndCover(t *testing.T) {
	files := []string{"a", "b", "c", "d", "e", "f", "g"}

	var all []string
	for i := 1; i <= 3; i++ {
		s := &Shared{Index: i, Count: 3}
		all = append(all, s.Partition(files)...)
	}

	assert.ElementsMatch(t, files, all)
}
