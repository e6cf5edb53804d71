package progress

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/corkine/cloud-native-tools/internal/logging"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestReporter() (*Reporter, *fakeClock, *[]Report) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	var got []Report
	r := New(logging.Discard(), false)
	r.now = clock.now
	r.emit = func(rep Report) { got = append(got, rep) }
	return r, clock, &got
}

func TestTrackerRateLimit(t *testing.T) {
	r, clock, got := newTestReporter()
	tr := r.Track("a.bin", 1000)

	// Ten chunks within the same second produce no report.
	for i := 0; i < 10; i++ {
		clock.advance(50 * time.Millisecond)
		tr.Add(10)
	}
	if len(*got) != 0 {
		t.Fatalf("got %d reports before interval elapsed, want 0", len(*got))
	}

	clock.advance(600 * time.Millisecond)
	tr.Add(100)
	if len(*got) != 1 {
		t.Fatalf("got %d reports, want 1", len(*got))
	}

	rep := (*got)[0]
	if rep.Done != 200 || rep.Percent != 20 {
		t.Errorf("report = %+v, want done=200 percent=20", rep)
	}
	if rep.Rate < 180 || rep.Rate > 200 {
		t.Errorf("rate = %.1f, want about 200 B/s", rep.Rate)
	}

	clock.advance(100 * time.Millisecond)
	tr.Add(10)
	if len(*got) != 1 {
		t.Errorf("second report within interval: %d reports", len(*got))
	}
}

func TestTrackerFinish(t *testing.T) {
	r, clock, got := newTestReporter()
	tr := r.Track("small.txt", 5)

	tr.Add(5)
	tr.Finish()
	if len(*got) != 1 || (*got)[0].Percent != 100 {
		t.Fatalf("reports = %+v, want single 100%% report", *got)
	}

	clock.advance(2 * time.Second)
	tr.Finish()
	if len(*got) != 1 {
		t.Errorf("Finish repeated an identical report: %+v", *got)
	}
}

func TestTrackerEmptyFile(t *testing.T) {
	r, _, got := newTestReporter()
	r.Track("empty", 0).Finish()
	if len(*got) != 1 || (*got)[0].Percent != 100 {
		t.Errorf("empty file report = %+v", *got)
	}
}

func TestReader(t *testing.T) {
	r, clock, got := newTestReporter()
	tr := r.Track("stream", 11)

	pr := NewReader(strings.NewReader("hello world"), tr)
	buf := make([]byte, 4)
	for {
		clock.advance(time.Second)
		_, err := pr.Read(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	if tr.done != 11 {
		t.Errorf("tracked %d bytes, want 11", tr.done)
	}
	if len(*got) != 3 {
		t.Errorf("got %d reports, want one per chunk (3)", len(*got))
	}
}

func TestReportString(t *testing.T) {
	s := Report{Name: "x", Done: 1024, Total: 2048, Percent: 50, Rate: 512}.String()
	for _, want := range []string{"x", "50.0%", "1.0 KiB/2.0 KiB", "512 B/s"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q missing %q", s, want)
		}
	}
}

func TestUnknownTotal(t *testing.T) {
	r, _, got := newTestReporter()
	tr := r.Track("download.zip", -1)
	tr.Add(2048)
	tr.Finish()

	if len(*got) != 1 {
		t.Fatalf("got %d reports, want 1", len(*got))
	}
	rep := (*got)[0]
	if rep.Percent != -1 {
		t.Errorf("Percent = %v, want -1 for unknown size", rep.Percent)
	}
	if s := rep.String(); strings.Contains(s, "%") || !strings.Contains(s, "2.0 KiB") {
		t.Errorf("String() = %q", s)
	}
}
