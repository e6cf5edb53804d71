package transfer

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/corkine/cloud-native-tools/internal/walker"
	"github.com/corkine/cloud-native-tools/internal/xerr"
	"github.com/corkine/cloud-native-tools/pkg/pathmap"
)

type Action string

const (
	ActionMkdir  Action = "mkdir"
	ActionUpload Action = "upload"
)

// Item is one step of a transfer. Mkdir items always precede the uploads
// that need them.
type Item struct {
	Action     Action `json:"action"`
	LocalPath  string `json:"source,omitempty"`
	RemotePath string `json:"target"`
	Size       int64  `json:"size,omitempty"`
}

// Plan is the complete, validated list of steps for one invocation.
type Plan struct {
	Destination string `json:"destination"`
	Items       []Item `json:"items"`
}

// Files returns the upload items.
func (p *Plan) Files() []Item {
	var out []Item
	for _, it := range p.Items {
		if it.Action == ActionUpload {
			out = append(out, it)
		}
	}
	return out
}

// Dirs returns the remote directories the plan creates.
func (p *Plan) Dirs() []string {
	var out []string
	for _, it := range p.Items {
		if it.Action == ActionMkdir {
			out = append(out, it.RemotePath)
		}
	}
	return out
}

// TotalBytes is the sum of all upload sizes.
func (p *Plan) TotalBytes() int64 {
	var n int64
	for _, it := range p.Items {
		n += it.Size
	}
	return n
}

type planBuilder struct {
	plan  *Plan
	dirs  map[string]bool
	files map[string]string // remote -> local
}

func (b *planBuilder) mkdir(remote string) error {
	if remote == "" || remote == "." || remote == "/" || b.dirs[remote] {
		return nil
	}
	if local, ok := b.files[remote]; ok {
		return xerr.Errorf(xerr.KindInvalidInput, "plan", "%s maps to %s, which is also a directory", local, remote)
	}
	b.dirs[remote] = true
	b.plan.Items = append(b.plan.Items, Item{Action: ActionMkdir, RemotePath: remote})
	return nil
}

func (b *planBuilder) upload(local, remote string, size int64) error {
	if prev, ok := b.files[remote]; ok {
		return xerr.Errorf(xerr.KindInvalidInput, "plan", "%s and %s both map to %s", prev, local, remote)
	}
	if b.dirs[remote] {
		return xerr.Errorf(xerr.KindInvalidInput, "plan", "%s maps to %s, which is also a directory", local, remote)
	}
	if err := b.mkdir(path.Dir(remote)); err != nil {
		return err
	}
	b.files[remote] = local
	b.plan.Items = append(b.plan.Items, Item{
		Action:     ActionUpload,
		LocalPath:  local,
		RemotePath: remote,
		Size:       size,
	})
	return nil
}

// BuildPlan resolves every source against destination before anything is
// transferred. A missing source or two sources landing on the same remote
// path fail the whole plan.
func BuildPlan(sources []string, destination string, excludes []string) (*Plan, error) {
	if err := walker.ValidatePatterns(excludes); err != nil {
		return nil, err
	}

	b := &planBuilder{
		plan:  &Plan{Destination: destination},
		dirs:  map[string]bool{},
		files: map[string]string{},
	}
	multi := len(sources) > 1

	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, xerr.New(xerr.KindSourceNotFound, "stat", src, err)
			}
			return nil, xerr.New(xerr.KindIO, "stat", src, err)
		}

		// "." and "src/.." have no usable basename of their own; map the
		// directory they resolve to.
		abs, err := filepath.Abs(src)
		if err != nil {
			return nil, xerr.New(xerr.KindIO, "abs", src, err)
		}
		if base := pathmap.Base(abs); base == "/" || base == "." {
			return nil, xerr.Errorf(xerr.KindInvalidInput, "plan", "%s has no name to map onto %s", src, destination)
		}
		remote := pathmap.Map(abs, destination, info.IsDir(), multi)

		if !info.IsDir() {
			if err := b.upload(src, remote, info.Size()); err != nil {
				return nil, err
			}
			continue
		}

		if err := b.mkdir(remote); err != nil {
			return nil, err
		}
		w, err := walker.New(src, excludes)
		if err != nil {
			return nil, err
		}
		err = w.Walk(func(fi walker.FileInfo) error {
			return b.upload(fi.Path, pathmap.Join(remote, fi.RelPath), fi.Size)
		})
		if err != nil {
			return nil, fmt.Errorf("plan %s: %w", src, err)
		}
	}

	return b.plan, nil
}
