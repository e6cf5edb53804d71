// Package progress reports transfer progress at a bounded rate: a live line
// when attached to a terminal, plain log lines otherwise.
package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uilive"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// DefaultInterval is the minimum time between two reports for one file.
const DefaultInterval = time.Second

// Report is a single progress sample.
type Report struct {
	Name string
	Done int64
	// Total is negative when the size is not known up front.
	Total   int64
	Percent float64
	// Rate is bytes/s since the previous report.
	Rate float64
}

func (r Report) String() string {
	if r.Total < 0 {
		return fmt.Sprintf("%s %s %s/s", r.Name, humanize.IBytes(uint64(r.Done)), humanize.IBytes(uint64(r.Rate)))
	}
	return fmt.Sprintf("%s %5.1f%% %s/%s %s/s", r.Name, r.Percent,
		humanize.IBytes(uint64(r.Done)), humanize.IBytes(uint64(r.Total)),
		humanize.IBytes(uint64(r.Rate)))
}

// Reporter emits Reports.
type Reporter struct {
	log      *logrus.Entry
	live     *uilive.Writer
	interval time.Duration
	now      func() time.Time
	emit     func(Report)
}

// New returns a reporter. When live is true a uilive writer redraws a single
// line on stdout and the logger output is routed through its bypass writer so
// log lines do not tear the progress line.
func New(log *logrus.Entry, live bool) *Reporter {
	r := &Reporter{
		log:      log,
		interval: DefaultInterval,
		now:      time.Now,
	}
	if live {
		r.live = uilive.New()
		r.live.Out = os.Stdout
		log.Logger.SetOutput(r.live.Bypass())
		r.emit = func(rep Report) {
			fmt.Fprintln(r.live, rep.String())
		}
	} else {
		r.emit = func(rep Report) {
			fields := logrus.Fields{
				"file":  rep.Name,
				"bytes": humanize.IBytes(uint64(rep.Done)),
				"rate":  humanize.IBytes(uint64(rep.Rate)) + "/s",
			}
			if rep.Total >= 0 {
				fields["percent"] = fmt.Sprintf("%.1f", rep.Percent)
			}
			r.log.WithFields(fields).Info("Progress")
		}
	}
	return r
}

// IsTerminal reports whether stdout can host a live progress line.
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// Start begins redrawing the live line, if any.
func (r *Reporter) Start() {
	if r.live != nil {
		r.live.Start()
	}
}

// Stop flushes and stops the live line.
func (r *Reporter) Stop() {
	if r.live != nil {
		r.live.Stop()
	}
}

// Track starts tracking a transfer of total bytes.
func (r *Reporter) Track(name string, total int64) *Tracker {
	now := r.now()
	return &Tracker{r: r, name: name, total: total, lastAt: now}
}

// Tracker accumulates bytes for one file.
type Tracker struct {
	r        *Reporter
	name     string
	total    int64
	done     int64
	lastAt   time.Time
	lastDone int64
	reported bool
}

// Add records n more bytes and reports if the interval has elapsed.
func (t *Tracker) Add(n int64) {
	t.done += n
	now := t.r.now()
	if now.Sub(t.lastAt) < t.r.interval {
		return
	}
	t.report(now)
}

// Finish emits a final report unless one was just sent for the same count.
func (t *Tracker) Finish() {
	if t.reported && t.lastDone == t.done {
		return
	}
	t.report(t.r.now())
}

func (t *Tracker) report(now time.Time) {
	elapsed := now.Sub(t.lastAt).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(t.done-t.lastDone) / elapsed
	}
	percent := 100.0
	switch {
	case t.total < 0:
		percent = -1
	case t.total > 0:
		percent = float64(t.done) * 100 / float64(t.total)
	}

	t.r.emit(Report{
		Name:    t.name,
		Done:    t.done,
		Total:   t.total,
		Percent: percent,
		Rate:    rate,
	})
	t.lastAt = now
	t.lastDone = t.done
	t.reported = true
}

// Reader counts bytes flowing through an io.Reader.
type Reader struct {
	io.Reader
	t *Tracker
}

// NewReader wraps r so reads are reported to t.
func NewReader(r io.Reader, t *Tracker) *Reader {
	return &Reader{Reader: r, t: t}
}

func (pr *Reader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	if n > 0 {
		pr.t.Add(int64(n))
	}
	return n, err
}
