package bruteforce

import (
	"context"
	"fmt"

	"bytemomo/oarfish/internal/domain"
	"bytemomo/oarfish/internal/modules/dictionary"

	"github.com/sirupsen/logrus"
)

// Placeholder credentials used to probe database names. Only the kind of
// rejection matters.
const (
	PlaceholderUser     = "test_user"
	PlaceholderPassword = "test_pass"
)

// DatabaseReport summarises a database-name run.
type DatabaseReport struct {
	Probed int      `json:"probed"`
	Errors int      `json:"errors"`
	Found  []string `json:"found"`
}

// DatabaseProber tests candidate database names by authenticating with
// placeholder credentials. A "database does not exist" answer means absent;
// any other answer from the target means the database exists.
type DatabaseProber struct {
	auth domain.Authenticator
	opts options
	log  *logrus.Entry
}

// NewDatabaseProber builds a DatabaseProber.
func NewDatabaseProber(auth domain.Authenticator, opts ...Option) *DatabaseProber {
	return &DatabaseProber{
		auth: auth,
		opts: buildOptions(opts),
		log:  logrus.WithField("module", "dbnames"),
	}
}

// Run probes candidates in order.
func (p *DatabaseProber) Run(ctx context.Context, candidates []string) (DatabaseReport, error) {
	report := DatabaseReport{Found: []string{}}
	if len(candidates) == 0 {
		return report, dictionary.ErrNoCandidates
	}

	progress := p.opts.progress("databases", len(candidates))
	defer progress.Finalize()

	for _, name := range candidates {
		if err := wait(ctx, p.opts.limiter); err != nil {
			return report, err
		}

		res := p.auth.Authenticate(ctx, name, PlaceholderUser, PlaceholderPassword)
		report.Probed++
		progress.RecordAttempt(name)

		switch res.Outcome {
		case domain.AttemptSuccess, domain.AttemptRejected:
			report.Found = append(report.Found, name)
			progress.RecordSuccess(fmt.Sprintf("database %q exists", name))
		case domain.AttemptTransient:
			p.log.WithField("database", name).Debug("Database does not exist")
		default:
			report.Errors++
			progress.RecordError(fmt.Sprintf("%s: %s", name, res.Reason))
		}
	}
	return report, nil
}
