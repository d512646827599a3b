package telemetry

// Recorder receives one event per attempt. Display implements it.
type Recorder interface {
	RecordAttempt(label string)
	RecordSuccess(msg string)
	RecordError(msg string)
	// RecordNotice reports an expected non-success that is not an error.
	RecordNotice(msg string)
	Finalize()
}

// Factory builds the Recorder for a run of total attempts.
type Factory func(title string, total int) Recorder

var _ Recorder = (*Display)(nil)

// Live renders a Display on stdout.
func Live(title string, total int) Recorder {
	return New(total, WithTitle(title))
}

type silent struct{}

func (silent) RecordAttempt(string) {}
func (silent) RecordSuccess(string) {}
func (silent) RecordError(string)   {}
func (silent) RecordNotice(string)  {}
func (silent) Finalize()            {}

// Silent discards every event.
func Silent(string, int) Recorder { return silent{} }
