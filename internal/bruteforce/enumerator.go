package bruteforce

import (
	"context"
	"fmt"

	"bytemomo/oarfish/internal/domain"
	"bytemomo/oarfish/internal/modules/dictionary"
	"bytemomo/oarfish/internal/telemetry"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Report summarises one credential run.
type Report struct {
	Database  string       `json:"database"`
	Attempts  int          `json:"attempts"`
	Rejected  int          `json:"rejected"`
	Transient int          `json:"transient"`
	Errors    int          `json:"errors"`
	Hits      []domain.Hit `json:"hits"`
}

// Found reports whether at least one credential was accepted.
func (r Report) Found() bool { return len(r.Hits) > 0 }

type options struct {
	limiter  *rate.Limiter
	progress telemetry.Factory
}

// Option configures an Enumerator or DatabaseProber.
type Option func(*options)

// WithLimiter throttles attempts. A nil limiter means unlimited.
func WithLimiter(l *rate.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithProgress replaces the live display.
func WithProgress(f telemetry.Factory) Option {
	return func(o *options) { o.progress = f }
}

// NewLimiter returns a limiter for perSecond attempts, or nil when
// perSecond is not positive.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

func buildOptions(opts []Option) options {
	o := options{progress: telemetry.Live}
	for _, opt := range opts {
		opt(&o)
	}
	if o.progress == nil {
		o.progress = telemetry.Silent
	}
	return o
}

// Enumerator drives credential attempts against one database, one at a time.
type Enumerator struct {
	auth     domain.Authenticator
	database string
	opts     options
	log      *logrus.Entry
}

// NewEnumerator builds an Enumerator for database.
func NewEnumerator(auth domain.Authenticator, database string, opts ...Option) *Enumerator {
	return &Enumerator{
		auth:     auth,
		database: database,
		opts:     buildOptions(opts),
		log:      logrus.WithFields(logrus.Fields{"module": "bruteforce", "database": database}),
	}
}

// Run tries creds in order. It fails fast on an empty sequence and stops
// early only when ctx is cancelled, returning what was gathered so far.
func (e *Enumerator) Run(ctx context.Context, creds []domain.Credential) (Report, error) {
	report := Report{Database: e.database, Hits: []domain.Hit{}}
	if len(creds) == 0 {
		return report, dictionary.ErrNoCredentials
	}

	progress := e.opts.progress("login "+e.database, len(creds))
	defer progress.Finalize()

	e.log.WithField("candidates", len(creds)).Info("Starting credential enumeration")
	for _, cred := range creds {
		if err := wait(ctx, e.opts.limiter); err != nil {
			return report, err
		}

		res := e.auth.Authenticate(ctx, e.database, cred.Username, cred.Password)
		report.Attempts++
		progress.RecordAttempt(cred.String())

		switch res.Outcome {
		case domain.AttemptSuccess:
			report.Hits = append(report.Hits, domain.Hit{Database: e.database, Credential: cred, UID: res.UID})
			progress.RecordSuccess(fmt.Sprintf("%s (uid %d)", cred, res.UID))
			e.log.WithFields(logrus.Fields{"username": cred.Username, "uid": res.UID}).Info("Credential accepted")
		case domain.AttemptRejected:
			report.Rejected++
		case domain.AttemptTransient:
			report.Transient++
			progress.RecordNotice(res.Reason)
		default:
			report.Errors++
			progress.RecordError(fmt.Sprintf("%s: %s", cred.Username, res.Reason))
			e.log.WithField("username", cred.Username).Debug(res.Reason)
		}
	}

	e.log.WithFields(logrus.Fields{
		"attempts": report.Attempts,
		"hits":     len(report.Hits),
		"errors":   report.Errors,
	}).Info("Credential enumeration finished")
	return report, nil
}

func wait(ctx context.Context, l *rate.Limiter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l == nil {
		return nil
	}
	return l.Wait(ctx)
}
