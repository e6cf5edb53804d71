// Package archive expands zip archives whose entry names may be in a legacy
// code page.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/sirupsen/logrus"

	"github.com/corkine/cloud-native-tools/internal/logging"
	"github.com/corkine/cloud-native-tools/internal/namedecode"
	"github.com/corkine/cloud-native-tools/internal/xerr"
	"github.com/corkine/cloud-native-tools/pkg/pathmap"
)

// creatorUnix is the "version made by" host byte for Unix.
const creatorUnix = 3

// Entry describes one archive member.
type Entry struct {
	RawName []byte
	Name    string
	IsDir   bool
	Size    uint64
	Mode    os.FileMode
	// HasMode is set when the archive was written on Unix, so Mode is meaningful.
	HasMode bool
}

func entryOf(f *zip.File) Entry {
	raw := []byte(f.Name)
	name := pathmap.ToSlash(namedecode.Decode(raw))
	e := Entry{
		RawName: raw,
		Name:    name,
		IsDir:   strings.HasSuffix(name, "/"),
		Size:    f.UncompressedSize64,
	}
	if f.CreatorVersion>>8 == creatorUnix {
		e.HasMode = true
		e.Mode = f.Mode().Perm()
	}
	return e
}

// Extractor writes archive members to disk.
type Extractor struct {
	log *logrus.Entry
}

// New returns an extractor logging to log.
func New(log *logrus.Entry) *Extractor {
	return &Extractor{log: log}
}

// Extract expands archivePath into outputDir without logging.
func Extract(archivePath, outputDir string) error {
	_, err := New(logging.Discard()).Extract(archivePath, outputDir)
	return err
}

// List returns the decoded entries of archivePath.
func List(archivePath string) ([]Entry, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, xerr.New(xerr.KindIO, "open archive", archivePath, err)
	}
	defer r.Close()

	entries := make([]Entry, 0, len(r.File))
	for _, f := range r.File {
		entries = append(entries, entryOf(f))
	}
	return entries, nil
}

// Extract expands every member of archivePath under outputDir and returns the
// number of files written. Any failure aborts; members already written stay.
func (x *Extractor) Extract(archivePath, outputDir string) (int, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, xerr.New(xerr.KindIO, "open archive", archivePath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, xerr.New(xerr.KindIO, "mkdir", outputDir, err)
	}

	// Directory modes are applied last so a read-only directory does not
	// block its own children.
	dirModes := map[string]os.FileMode{}
	files := 0

	for _, f := range r.File {
		e := entryOf(f)
		target, err := safeJoin(outputDir, e.Name)
		if err != nil {
			return files, err
		}

		if e.IsDir {
			if err := os.MkdirAll(target, 0755); err != nil {
				return files, xerr.New(xerr.KindIO, "mkdir", target, err)
			}
			if e.HasMode {
				dirModes[target] = e.Mode
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return files, xerr.New(xerr.KindIO, "mkdir", filepath.Dir(target), err)
		}
		if err := writeFile(f, target); err != nil {
			return files, err
		}
		if e.HasMode {
			if err := os.Chmod(target, e.Mode); err != nil {
				return files, xerr.New(xerr.KindIO, "chmod", target, err)
			}
		}
		files++
		x.log.WithField("size", e.Size).Debugf("Extracted %s", e.Name)
	}

	// Deepest first.
	dirs := make([]string, 0, len(dirModes))
	for d := range dirModes {
		dirs = append(dirs, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	for _, d := range dirs {
		if err := os.Chmod(d, dirModes[d]); err != nil {
			return files, xerr.New(xerr.KindIO, "chmod", d, err)
		}
	}

	x.log.Infof("Extracted %d files from %s", files, filepath.Base(archivePath))
	return files, nil
}

func writeFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return xerr.New(xerr.KindIO, "read entry", target, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return xerr.New(xerr.KindIO, "create", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return xerr.New(xerr.KindIO, "write", target, err)
	}
	if err := out.Close(); err != nil {
		return xerr.New(xerr.KindIO, "close", target, err)
	}
	return nil
}

var errEscapes = errors.New("entry escapes output directory")

// safeJoin resolves name under root and rejects names that climb out of it.
func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", xerr.New(xerr.KindInvalidInput, "extract", name, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", xerr.New(xerr.KindInvalidInput, "extract", name, fmt.Errorf("%w: %s", errEscapes, root))
	}
	return target, nil
}
