package walker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/karrick/godirwalk"

	"github.com/corkine/cloud-native-tools/internal/xerr"
)

// FileInfo represents a local file
type FileInfo struct {
	Path    string // OS path, usable with os.Open
	RelPath string // Slash-separated path relative to the walk root
	Size    int64
	ModTime int64 // Unix timestamp
	Mode    os.FileMode
}

// Walker lists the regular files below a directory with exclude pattern support
type Walker struct {
	root     string
	excludes []string
}

// New creates a walker rooted at root, which must be a directory
func New(root string, excludes []string) (*Walker, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, xerr.New(xerr.KindSourceNotFound, "stat", root, err)
		}
		return nil, xerr.New(xerr.KindIO, "stat", root, err)
	}
	if !info.IsDir() {
		return nil, xerr.New(xerr.KindInvalidInput, "walk", root, fmt.Errorf("not a directory"))
	}

	return &Walker{
		root:     filepath.Clean(root),
		excludes: excludes,
	}, nil
}

// Walk calls fn for every file in depth-first, lexical order. Symlinks to
// regular files are reported with their target's size; symlinks to
// directories are not descended. An error from fn stops the walk and is
// returned unchanged.
func (w *Walker) Walk(fn func(FileInfo) error) error {
	var cbErr error

	callback := func(osPath string, de *godirwalk.Dirent) error {
		if osPath == w.root {
			return nil
		}

		rel, err := filepath.Rel(w.root, osPath)
		if err != nil {
			return xerr.New(xerr.KindIO, "relpath", osPath, err)
		}
		rel = filepath.ToSlash(rel)

		if de.IsDir() {
			if w.isExcludedDir(rel) {
				return godirwalk.SkipThis
			}
			return nil
		}

		if !de.IsRegular() && !de.IsSymlink() {
			return nil
		}
		if w.isExcluded(rel) {
			return nil
		}

		// os.Stat follows links, giving the size that will actually be copied.
		info, err := os.Stat(osPath)
		if err != nil {
			return xerr.New(xerr.KindIO, "stat", osPath, err)
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		if err := fn(FileInfo{
			Path:    osPath,
			RelPath: rel,
			Size:    info.Size(),
			ModTime: info.ModTime().Unix(),
			Mode:    info.Mode(),
		}); err != nil {
			cbErr = err
			return err
		}
		return nil
	}

	err := godirwalk.Walk(w.root, &godirwalk.Options{
		Callback: callback,
		ErrorCallback: func(string, error) godirwalk.ErrorAction {
			return godirwalk.Halt
		},
		FollowSymbolicLinks: false,
		Unsorted:            false,
	})
	if err == nil {
		return nil
	}
	if cbErr != nil {
		return cbErr
	}
	var xe *xerr.Error
	if errors.As(err, &xe) {
		return err
	}
	return xerr.New(xerr.KindIO, "walk", w.root, err)
}

// Files collects the walk into a slice
func (w *Walker) Files() ([]FileInfo, error) {
	var files []FileInfo
	err := w.Walk(func(fi FileInfo) error {
		files = append(files, fi)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// isExcluded checks if a file path matches any exclude pattern
func (w *Walker) isExcluded(path string) bool {
	for _, pattern := range w.excludes {
		if strings.HasSuffix(pattern, "/") {
			// Check if any parent directory matches
			dirPattern := strings.TrimSuffix(pattern, "/")
			parts := strings.Split(path, "/")
			for i := 1; i < len(parts); i++ {
				if matched, _ := doublestar.Match(dirPattern, strings.Join(parts[:i], "/")); matched {
					return true
				}
			}
			continue
		}
		if matched, _ := doublestar.Match(pattern, path); matched {
			return true
		}
	}
	return false
}

// isExcludedDir reports whether a whole subtree can be pruned
func (w *Walker) isExcludedDir(path string) bool {
	for _, pattern := range w.excludes {
		if !strings.HasSuffix(pattern, "/") {
			continue
		}
		if matched, _ := doublestar.Match(strings.TrimSuffix(pattern, "/"), path); matched {
			return true
		}
	}
	return false
}

// ValidatePatterns rejects malformed exclude patterns up front
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(strings.TrimSuffix(p, "/")) {
			return xerr.New(xerr.KindInvalidInput, "exclude", p, doublestar.ErrBadPattern)
		}
	}
	return nil
}
