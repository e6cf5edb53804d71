package job

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/corkine/cloud-native-tools/internal/config"
	"github.com/corkine/cloud-native-tools/internal/fetch"
	"github.com/corkine/cloud-native-tools/internal/logging"
	"github.com/corkine/cloud-native-tools/internal/progress"
)

// DownloadRequest is one oss-res invocation.
type DownloadRequest struct {
	// Config is base64 JSON, a path to a JSON file, or literal JSON.
	Config    string
	Key       string
	OutputDir string
	Unzip     bool
	Cache     bool
}

// Download fetches a single object from object storage.
type Download struct {
	log      *logrus.Entry
	progress *progress.Reporter
	openOSS  OSSOpener
}

// NewDownload returns a job using the real object storage client. pr may be
// nil.
func NewDownload(log *logrus.Entry, pr *progress.Reporter) *Download {
	return &Download{log: log, progress: pr, openOSS: OpenOSS}
}

// Run loads the storage configuration and fetches req.Key.
func (d *Download) Run(ctx context.Context, req DownloadRequest) (*fetch.Result, error) {
	if req.Key == "" {
		return nil, fmt.Errorf("file cannot be empty")
	}
	cfg, err := config.LoadOSSConfig(req.Config)
	if err != nil {
		return nil, err
	}
	log := d.log.WithField("bucket", cfg.Bucket)

	t, err := d.openOSS(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	start := time.Now()
	res, err := fetch.New(t, log, d.progress).Fetch(ctx, fetch.Request{
		Key:       req.Key,
		OutputDir: req.OutputDir,
		Unzip:     req.Unzip,
		Cache:     req.Cache,
	})
	if err != nil {
		return res, err
	}

	if res.Downloaded {
		logging.PrintSummary(log, logging.Summary{
			Target:   res.LocalPath,
			Files:    1,
			Bytes:    res.Bytes,
			Duration: time.Since(start),
		})
	}
	if res.Extracted > 0 {
		log.Infof("Extracted %d entries next to %s", res.Extracted, res.LocalPath)
	}
	return res, nil
}
