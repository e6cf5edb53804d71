// Package transfer plans and performs one-shot uploads of local files and
// directories through a transport.Transport.
package transfer

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/larrabee/ratelimit"
	"github.com/sirupsen/logrus"

	"github.com/corkine/cloud-native-tools/internal/progress"
	"github.com/corkine/cloud-native-tools/internal/xerr"
	"github.com/corkine/cloud-native-tools/pkg/transport"
)

// Options tunes an Engine.
type Options struct {
	Excludes []string
	// RateLimit caps upload bandwidth in bytes per second; zero means
	// unlimited.
	RateLimit int64
	// Progress receives per-file progress. A log-only reporter is used when
	// nil.
	Progress *progress.Reporter
}

// Stats summarizes a finished transfer.
type Stats struct {
	Files    int64
	Bytes    int64
	Dirs     int
	Duration time.Duration
}

// Engine moves files through one transport, sequentially.
type Engine struct {
	t        transport.Transport
	log      *logrus.Entry
	excludes []string
	bucket   ratelimit.Bucket
	progress *progress.Reporter
}

// NewEngine creates an engine for t.
func NewEngine(t transport.Transport, log *logrus.Entry, opts Options) (*Engine, error) {
	var bucket ratelimit.Bucket = ratelimit.NewFakeBucket()
	if opts.RateLimit > 0 {
		b, err := ratelimit.NewBucketWithRate(float64(opts.RateLimit), opts.RateLimit)
		if err != nil {
			return nil, xerr.New(xerr.KindInvalidInput, "rate limit", fmt.Sprint(opts.RateLimit), err)
		}
		bucket = b
	}

	pr := opts.Progress
	if pr == nil {
		pr = progress.New(log, false)
	}

	return &Engine{
		t:        t,
		log:      log.WithField("transport", t.Name()),
		excludes: opts.Excludes,
		bucket:   bucket,
		progress: pr,
	}, nil
}

// Transfer plans sources against destination and executes the plan. No
// sources is a valid, side-effect-only invocation.
func (e *Engine) Transfer(ctx context.Context, sources []string, destination string) (Stats, error) {
	if len(sources) == 0 {
		e.log.Info("No sources given, nothing to transfer")
		return Stats{}, nil
	}

	plan, err := BuildPlan(sources, destination, e.excludes)
	if err != nil {
		return Stats{}, err
	}
	return e.Execute(ctx, plan)
}

// Execute performs plan in order and stops at the first failure. Items
// completed before the failure are not rolled back.
func (e *Engine) Execute(ctx context.Context, plan *Plan) (Stats, error) {
	start := time.Now()
	stats := Stats{}

	files := plan.Files()
	e.log.WithFields(logrus.Fields{
		"files": len(files),
		"dirs":  len(plan.Items) - len(files),
	}).Infof("Transferring to %s", plan.Destination)

	for _, item := range plan.Items {
		switch item.Action {
		case ActionMkdir:
			if err := e.t.Mkdir(ctx, item.RemotePath); err != nil {
				return stats, fmt.Errorf("create %s: %w", item.RemotePath, err)
			}
			stats.Dirs++
		case ActionUpload:
			n, err := e.upload(ctx, item)
			stats.Bytes += n
			if err != nil {
				return stats, fmt.Errorf("upload %s: %w", item.LocalPath, err)
			}
			stats.Files++
		}
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

func (e *Engine) upload(ctx context.Context, item Item) (int64, error) {
	f, err := os.Open(item.LocalPath)
	if err != nil {
		return 0, xerr.New(xerr.KindIO, "open", item.LocalPath, err)
	}
	defer f.Close()

	tracker := e.progress.Track(path.Base(item.RemotePath), item.Size)
	body := progress.NewReader(ratelimit.NewReader(f, e.bucket), tracker)

	n, err := e.t.Put(ctx, item.RemotePath, body, item.Size)
	if err != nil {
		return n, err
	}
	tracker.Finish()

	e.log.WithField("size", item.Size).Debugf("%s -> %s", item.LocalPath, item.RemotePath)
	return n, nil
}
