package telemetry

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// WindowSize is the number of recent attempt timestamps kept for the rate
// estimate.
const WindowSize = 5

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed)
	noticeColor  = color.New(color.Faint)
)

// Stats is a point-in-time copy of the counters.
type Stats struct {
	Total     int
	Attempts  int
	Errors    int
	Notices   int
	Successes []string
	Rate      float64
	Elapsed   time.Duration
}

// Display renders a single live progress line for an enumeration and keeps
// successes and errors as durable lines above it.
//
// The bar is created in New and released by Finalize, which is safe to call
// more than once.
type Display struct {
	mu        sync.Mutex
	out       io.Writer
	now       func() time.Time
	title     string
	plain     bool
	total     int
	attempts  int
	errors    int
	notices   int
	successes []string
	window    []time.Time
	label     string
	started   time.Time
	finished  time.Time
	closed    bool

	bar  *progressbar.ProgressBar
	once sync.Once
}

// Option configures a Display.
type Option func(*Display)

// WithOutput redirects rendering, stdout by default.
func WithOutput(w io.Writer) Option {
	return func(d *Display) { d.out = w }
}

// WithClock replaces time.Now for the rate window and the summary.
func WithClock(now func() time.Time) Option {
	return func(d *Display) { d.now = now }
}

// WithoutColor prints durable lines without color codes.
func WithoutColor() Option {
	return func(d *Display) { d.plain = true }
}

// WithTitle prefixes the progress description.
func WithTitle(title string) Option {
	return func(d *Display) { d.title = title }
}

// New starts a display for total planned attempts.
func New(total int, opts ...Option) *Display {
	d := &Display{
		out:    os.Stdout,
		now:    time.Now,
		total:  total,
		window: make([]time.Time, 0, WindowSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.started = d.now()

	d.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(d.out),
		progressbar.OptionSetDescription(d.describeLocked()),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetWidth(20),
	)
	return d
}

// RecordAttempt counts one completed attempt and redraws the line.
func (d *Display) RecordAttempt(label string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.attempts++
	d.label = label
	if len(d.window) == WindowSize {
		copy(d.window, d.window[1:])
		d.window = d.window[:WindowSize-1]
	}
	d.window = append(d.window, d.now())

	d.bar.Describe(d.describeLocked())
	d.bar.Add(1)
}

// RecordSuccess keeps msg and prints it as a durable line.
func (d *Display) RecordSuccess(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.successes = append(d.successes, msg)
	d.printLocked(d.paint(successColor, "[+] ") + msg)
}

// RecordError counts an error. A non-empty msg is printed as a durable line.
func (d *Display) RecordError(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errors++
	if msg != "" {
		d.printLocked(d.paint(errorColor, "[!] ") + msg)
	}
}

// RecordNotice prints msg as a durable line without counting it as an
// error. It is meant for expected outcomes such as a missing database.
func (d *Display) RecordNotice(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices++
	if msg != "" {
		d.printLocked(d.paint(noticeColor, "[-] "+msg))
	}
}

// Rate is the attempts per second over the sliding window. It is 0 until
// two samples exist.
func (d *Display) Rate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rateLocked()
}

func (d *Display) rateLocked() float64 {
	if len(d.window) < 2 {
		return 0
	}
	span := d.window[len(d.window)-1].Sub(d.window[0]).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(len(d.window)-1) / span
}

// Stats returns a copy of the counters.
func (d *Display) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	end := d.finished
	if end.IsZero() {
		end = d.now()
	}
	return Stats{
		Total:     d.total,
		Attempts:  d.attempts,
		Errors:    d.errors,
		Notices:   d.notices,
		Successes: append([]string(nil), d.successes...),
		Rate:      d.rateLocked(),
		Elapsed:   end.Sub(d.started),
	}
}

// Finalize clears the progress line and prints a summary. Calls after the
// first are no-ops.
func (d *Display) Finalize() {
	d.once.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.closed = true
		d.finished = d.now()
		d.bar.Clear()

		elapsed := d.finished.Sub(d.started).Round(time.Millisecond)
		fmt.Fprintf(d.out, "Finished %d/%d attempts in %s: %d successes, %d errors\n",
			d.attempts, d.total, elapsed, len(d.successes), d.errors)
	})
}

func (d *Display) printLocked(line string) {
	if d.closed {
		return
	}
	d.bar.Describe(d.describeLocked())
	progressbar.Bprintln(d.bar, line)
}

func (d *Display) paint(c *color.Color, s string) string {
	if d.plain {
		return s
	}
	return c.Sprint(s)
}

func (d *Display) describeLocked() string {
	prefix := ""
	if d.title != "" {
		prefix = d.title + " "
	}
	return fmt.Sprintf("%s%s | errors: %d | hits: %d | %.2f/s",
		prefix, d.label, d.errors, len(d.successes), d.rateLocked())
}
