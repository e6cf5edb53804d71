// Package logging builds the logrus logger shared by both commands and prints
// the end-of-run summary.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Options configures the logger
type Options struct {
	Quiet bool
	Debug bool
	// Output defaults to os.Stderr.
	Output io.Writer
	// ForceColors is set when log lines are interleaved with a live
	// progress writer.
	ForceColors bool
}

// New creates a logger tagged with a fresh run id
func New(opts Options) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if opts.Output != nil {
		log.SetOutput(opts.Output)
	}
	log.SetFormatter(&logrus.TextFormatter{
		ForceColors:   opts.ForceColors,
		FullTimestamp: true,
	})

	switch {
	case opts.Debug:
		log.SetLevel(logrus.DebugLevel)
	case opts.Quiet:
		log.SetLevel(logrus.WarnLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	return log.WithField("run", uuid.NewString()[:8])
}

// Discard returns a logger that drops everything, for tests and library use
func Discard() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// Summary is what one invocation moved
type Summary struct {
	Target   string
	Files    int64
	Bytes    int64
	Commands int
	Failed   int
	Duration time.Duration
}

// PrintSummary logs a summary of the run
func PrintSummary(log *logrus.Entry, s Summary) {
	fields := logrus.Fields{
		"target":   s.Target,
		"files":    s.Files,
		"size":     humanize.IBytes(uint64(s.Bytes)),
		"duration": s.Duration.Round(time.Millisecond).String(),
	}
	if s.Commands > 0 {
		fields["commands"] = s.Commands
	}
	if s.Duration > 0 && s.Bytes > 0 {
		fields["rate"] = humanize.IBytes(uint64(float64(s.Bytes)/s.Duration.Seconds())) + "/s"
	}

	entry := log.WithFields(fields)
	if s.Failed > 0 {
		entry.WithField("failed", s.Failed).Warn("Transfer finished with errors")
		return
	}
	entry.Info("Transfer finished")
}
