package telemetry

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestDisplay(total int) (*Display, *fakeClock, *bytes.Buffer) {
	clock := newFakeClock()
	buf := &bytes.Buffer{}
	d := New(total, WithOutput(buf), WithClock(clock.Now), WithoutColor())
	return d, clock, buf
}

func TestRate_NeedsTwoSamples(t *testing.T) {
	d, clock, _ := newTestDisplay(10)
	defer d.Finalize()

	assert.Zero(t, d.Rate())
	d.RecordAttempt("a")
	assert.Zero(t, d.Rate())

	clock.Advance(500 * time.Millisecond)
	d.RecordAttempt("b")
	assert.InDelta(t, 2.0, d.Rate(), 1e-9)
}

func TestRate_SlidingWindow(t *testing.T) {
	d, clock, _ := newTestDisplay(20)
	defer d.Finalize()

	// Slow start, then a fast burst: only the last five samples count.
	for i := 0; i < 5; i++ {
		d.RecordAttempt("slow")
		clock.Advance(10 * time.Second)
	}
	for i := 0; i < 5; i++ {
		clock.Advance(100 * time.Millisecond)
		d.RecordAttempt("fast")
	}
	assert.InDelta(t, 10.0, d.Rate(), 1e-6)
	assert.Len(t, d.window, WindowSize)
}

func TestRate_ZeroSpan(t *testing.T) {
	d, _, _ := newTestDisplay(2)
	defer d.Finalize()

	d.RecordAttempt("a")
	d.RecordAttempt("b")
	assert.Zero(t, d.Rate())
}

func TestRecord_Counters(t *testing.T) {
	d, clock, buf := newTestDisplay(3)

	d.RecordAttempt("admin:admin")
	d.RecordSuccess("admin:admin uid=2")
	clock.Advance(time.Second)
	d.RecordAttempt("admin:wrong")
	d.RecordError("connection reset")
	d.RecordError("")

	stats := d.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Attempts)
	assert.Equal(t, 2, stats.Errors)
	assert.Equal(t, []string{"admin:admin uid=2"}, stats.Successes)

	d.Finalize()
	out := buf.String()
	assert.Contains(t, out, "admin:admin uid=2\n")
	assert.Contains(t, out, "connection reset\n")
	assert.Contains(t, out, "Finished 2/3 attempts in 1s: 1 successes, 2 errors")
}

func TestFinalize_Idempotent(t *testing.T) {
	d, _, buf := newTestDisplay(1)
	d.Finalize()
	d.Finalize()
	assert.Equal(t, 1, strings.Count(buf.String(), "Finished"))

	before := buf.Len()
	d.RecordAttempt("late")
	assert.Equal(t, before, buf.Len())
}

func TestRecordNotice_NotCountedAsError(t *testing.T) {
	d, _, buf := newTestDisplay(2)

	d.RecordAttempt("admin:admin")
	d.RecordNotice(`database "ghost" does not exist`)
	d.RecordAttempt("admin:wrong")
	d.RecordNotice("")

	stats := d.Stats()
	assert.Zero(t, stats.Errors)
	assert.Equal(t, 2, stats.Notices)

	d.Finalize()
	assert.Contains(t, buf.String(), `database "ghost" does not exist`+"\n")
	assert.Contains(t, buf.String(), "0 successes, 0 errors")
}

func TestRecordAttempt_RendersProgressLine(t *testing.T) {
	d, clock, buf := newTestDisplay(4)
	defer d.Finalize()

	d.RecordAttempt("admin:admin")
	clock.Advance(500 * time.Millisecond)
	d.RecordAttempt("admin:secret")

	out := buf.String()
	assert.Contains(t, out, "2/4")
	assert.Contains(t, out, "admin:secret")
	assert.Contains(t, out, "2.00/s")
}

func TestFinalize_ReleasedOnPanic(t *testing.T) {
	d, _, buf := newTestDisplay(5)
	func() {
		defer func() { _ = recover() }()
		defer d.Finalize()
		d.RecordAttempt("a")
		panic("loop failed")
	}()
	assert.Contains(t, buf.String(), "Finished 1/5")
}
