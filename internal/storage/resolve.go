package storage

import (
	"os"
	"path"
	"strings"
)

// ResolvePath maps a caller-supplied logical name onto basePath.
//
// The name is cleaned with forward-slash semantics, which moves any
// unresolvable ".." segments to the front; those leading segments are then
// dropped so the result cannot climb above basePath. The joined path uses
// the native separator. ResolvePath never touches the filesystem.
func ResolvePath(basePath, name string) string {
	joined := path.Join(basePath, CleanName(name))
	if os.PathSeparator != '/' {
		joined = strings.ReplaceAll(joined, "/", string(os.PathSeparator))
	}
	return joined
}

// CleanName returns the confined, slash-separated form of name relative to
// the base directory. The base itself is "".
func CleanName(name string) string {
	rel := strings.TrimPrefix(stripParents(path.Clean(name)), "/")
	if rel == "." {
		return ""
	}
	return rel
}

// stripParents removes leading "../" and "..\" segments, and a lone "..".
func stripParents(p string) string {
	for {
		switch {
		case p == "..":
			return ""
		case strings.HasPrefix(p, "../"), strings.HasPrefix(p, `..\`):
			p = p[3:]
		default:
			return p
		}
	}
}
