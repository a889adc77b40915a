// Package fsutil provides file discovery for suite include patterns and the
// shared-partition filter used to shard a run across parallel workers.
package fsutil

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Resolve walks root and returns the slash-separated, root-relative paths of
// all files matching at least one of the include patterns. Patterns use glob
// syntax; a `**` segment matches any number of directories. The result is
// sorted so that job generation is deterministic for a given input.
func Resolve(root string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		panic("fsutil: patterns must not be empty")
	}
	normalized := make([]string, len(patterns))
	for i, p := range patterns {
		normalized[i] = Normalize(p)
	}

	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, pattern := range normalized {
			if MatchGlob(pattern, rel) {
				files = append(files, rel)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// Normalize converts a pattern or file identifier to the canonical form used
// as a result-set key: slash separators, no leading "./".
func Normalize(p string) string {
	p = filepath.ToSlash(p)
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return p
}

// MatchGlob reports whether name matches pattern. Both must be slash
// separated. Within a segment, path.Match syntax applies; a bare `**`
// segment matches zero or more whole segments.
func MatchGlob(pattern, name string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(name, "/"))
}

func matchSegments(pat, segs []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			if len(pat) == 1 {
				return true
			}
			for i := 0; i <= len(segs); i++ {
				if matchSegments(pat[1:], segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		ok, err := path.Match(pat[0], segs[0])
		if err != nil || !ok {
			return false
		}
		pat, segs = pat[1:], segs[1:]
	}
	return len(segs) == 0
}

// Shared selects one disjoint slice of a file set, written "index/count"
// with a 1-based index, e.g. "1/3". Partitions for all indices of the same
// count are disjoint and together cover the whole set.
type Shared struct {
	Index int
	Count int
}

// ParseShared parses the "index/count" shard syntax.
func ParseShared(s string) (*Shared, error) {
	var index, count int
	if _, err := fmt.Sscanf(s, "%d/%d", &index, &count); err != nil {
		return nil, fmt.Errorf("invalid shared filter %q, expected \"index/count\": %w", s, err)
	}
	if count < 1 || index < 1 || index > count {
		return nil, fmt.Errorf("invalid shared filter %q: index must be within 1..count", s)
	}
	return &Shared{Index: index, Count: count}, nil
}

// Partition returns the subset of files belonging to this shard, selected
// round-robin over the (already sorted) input.
func (s *Shared) Partition(files []string) []string {
	var out []string
	for i := s.Index - 1; i < len(files); i += s.Count {
		out = append(out, files[i])
	}
	return out
}
