// Package fetch downloads a single object, skipping the download when a
// cached local copy matches the digest published next to it.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/corkine/cloud-native-tools/internal/archive"
	"github.com/corkine/cloud-native-tools/internal/checksum"
	"github.com/corkine/cloud-native-tools/internal/progress"
	"github.com/corkine/cloud-native-tools/internal/xerr"
	"github.com/corkine/cloud-native-tools/pkg/transport"
)

// SidecarSuffix names the digest object stored next to an artifact.
const SidecarSuffix = ".md5"

// Decision says whether to download and why.
type Decision struct {
	Download     bool
	Reason       string
	RemoteDigest string
}

// Request describes one download.
type Request struct {
	Key       string
	OutputDir string
	Unzip     bool
	Cache     bool
}

// Result describes what Fetch did.
type Result struct {
	LocalPath  string
	Downloaded bool
	Reason     string
	Bytes      int64
	Extracted  int
}

// Fetcher downloads objects through a transport.
type Fetcher struct {
	t         transport.Transport
	log       *logrus.Entry
	progress  *progress.Reporter
	extractor *archive.Extractor
}

// New returns a fetcher. pr may be nil.
func New(t transport.Transport, log *logrus.Entry, pr *progress.Reporter) *Fetcher {
	if pr == nil {
		pr = progress.New(log, false)
	}
	return &Fetcher{
		t:         t,
		log:       log,
		progress:  pr,
		extractor: archive.New(log),
	}
}

// LocalPath is where key lands inside outputDir.
func LocalPath(outputDir, key string) string {
	return filepath.Join(outputDir, path.Base(key))
}

// ShouldDownload decides whether key must be fetched to localPath. Any doubt
// (no cache, no local file, unreadable sidecar) resolves to downloading.
func (f *Fetcher) ShouldDownload(ctx context.Context, localPath, key string, cacheEnabled bool) Decision {
	if !cacheEnabled {
		return Decision{Download: true, Reason: "cache disabled"}
	}
	if _, err := os.Stat(localPath); err != nil {
		return Decision{Download: true, Reason: "no local copy"}
	}

	local, err := checksum.CalculateFileMD5(localPath)
	if err != nil {
		return Decision{Download: true, Reason: "local digest failed"}
	}

	remote, err := f.remoteDigest(ctx, key)
	if err != nil {
		f.log.WithError(err).Debugf("No digest for %s", key)
		return Decision{Download: true, Reason: "remote digest unavailable"}
	}

	if checksum.CompareChecksums(local, remote) {
		return Decision{Download: false, Reason: "digest matches", RemoteDigest: remote}
	}
	return Decision{Download: true, Reason: "digest differs", RemoteDigest: remote}
}

func (f *Fetcher) remoteDigest(ctx context.Context, key string) (string, error) {
	rc, err := f.t.Get(ctx, key+SidecarSuffix)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	// A digest line is tiny; cap the read in case the key is wrong.
	body, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil {
		return "", err
	}
	digest := checksum.Normalize(string(body))
	if digest == "" {
		return "", errors.New("empty digest")
	}
	return digest, nil
}

// Fetch downloads req.Key into req.OutputDir unless the cache is current,
// then optionally extracts it in place. Without caching the archive is
// removed after extraction.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		return nil, xerr.New(xerr.KindIO, "mkdir", req.OutputDir, err)
	}

	localPath := LocalPath(req.OutputDir, req.Key)
	res := &Result{LocalPath: localPath}

	d := f.ShouldDownload(ctx, localPath, req.Key, req.Cache)
	res.Reason = d.Reason
	if !d.Download {
		f.log.Infof("Skipping %s: %s", req.Key, d.Reason)
		return res, nil
	}

	f.log.WithField("reason", d.Reason).Infof("Downloading %s", req.Key)
	n, digest, err := f.download(ctx, req.Key, localPath)
	if err != nil {
		return res, err
	}
	res.Downloaded = true
	res.Bytes = n

	if d.RemoteDigest != "" && !checksum.CompareChecksums(digest, d.RemoteDigest) {
		f.log.Warnf("Downloaded %s has digest %s, sidecar says %s", req.Key, digest, d.RemoteDigest)
	}

	if !req.Unzip {
		return res, nil
	}

	count, err := f.extractor.Extract(localPath, filepath.Dir(localPath))
	res.Extracted = count
	if err != nil {
		return res, fmt.Errorf("unzip %s: %w", localPath, err)
	}
	if !req.Cache {
		if err := os.Remove(localPath); err != nil {
			return res, xerr.New(xerr.KindIO, "remove", localPath, err)
		}
	}
	return res, nil
}

// download streams key into a temporary file next to localPath and renames
// it into place, so an interrupted download never looks like a cached copy.
func (f *Fetcher) download(ctx context.Context, key, localPath string) (int64, string, error) {
	rc, err := f.t.Get(ctx, key)
	if err != nil {
		return 0, "", err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(filepath.Dir(localPath), "."+filepath.Base(localPath)+".*")
	if err != nil {
		return 0, "", xerr.New(xerr.KindIO, "create", localPath, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	tracker := f.progress.Track(path.Base(key), -1)
	tee := checksum.NewTeeReaderWithChecksum(progress.NewReader(rc, tracker))

	n, err := io.Copy(tmp, tee)
	if err != nil {
		tmp.Close()
		return n, "", xerr.New(xerr.KindTransport, "read", key, err)
	}
	tracker.Finish()
	if err := tmp.Close(); err != nil {
		return n, "", xerr.New(xerr.KindIO, "close", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return n, "", xerr.New(xerr.KindIO, "chmod", tmpName, err)
	}
	if err := os.Rename(tmpName, localPath); err != nil {
		return n, "", xerr.New(xerr.KindIO, "rename", localPath, err)
	}

	digest, err := tee.Checksum()
	if err != nil {
		return n, "", err
	}
	return n, digest, nil
}
