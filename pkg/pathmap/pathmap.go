// Package pathmap decides where a local source lands on the remote side.
//
// Both the SSH and the object-storage transports use the same rules so a
// destination string means the same thing regardless of where it points.
package pathmap

import (
	"path"
	"strings"
)

// Map returns the remote path for source given the destination specifier.
//
// Rules, in order:
//  1. destination ends with "/": destination + basename(source)
//  2. more than one source: destination + "/" + basename(source)
//  3. otherwise destination is used verbatim
//
// The rules are the same for files and directories; sourceIsDir does not
// change the result.
func Map(source, destination string, sourceIsDir, multiSource bool) string {
	var out string
	switch {
	case IsDir(destination):
		out = destination + Base(source)
	case multiSource:
		out = strings.TrimRight(destination, "/") + "/" + Base(source)
	default:
		out = destination
	}
	return ToSlash(out)
}

// IsDir reports whether the destination names a directory.
func IsDir(destination string) bool {
	return strings.HasSuffix(destination, "/")
}

// Join appends a walker-relative path to a mapped directory.
func Join(dir, relPath string) string {
	rel := ToSlash(relPath)
	if dir == "" {
		return rel
	}
	return strings.TrimRight(ToSlash(dir), "/") + "/" + strings.TrimLeft(rel, "/")
}

// Base returns the last element of a local path, ignoring trailing separators.
func Base(source string) string {
	cleaned := strings.TrimRight(ToSlash(source), "/")
	if cleaned == "" {
		return path.Base(ToSlash(source))
	}
	return path.Base(cleaned)
}

// ToSlash normalizes Windows separators so remote paths always use "/".
func ToSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
