package bruteforce

import (
	"context"
	"fmt"

	"bytemomo/oarfish/internal/domain"
	"bytemomo/oarfish/internal/modules/dictionary"

	"github.com/sirupsen/logrus"
)

// MasterReport summarises a master-password run.
type MasterReport struct {
	Attempts int    `json:"attempts"`
	Rejected int    `json:"rejected"`
	Errors   int    `json:"errors"`
	Found    bool   `json:"found"`
	Password string `json:"password,omitempty"`
}

// MasterProber tries candidate master passwords until one is accepted.
type MasterProber struct {
	checker domain.MasterChecker
	opts    options
	log     *logrus.Entry
}

// NewMasterProber builds a MasterProber.
func NewMasterProber(checker domain.MasterChecker, opts ...Option) *MasterProber {
	return &MasterProber{
		checker: checker,
		opts:    buildOptions(opts),
		log:     logrus.WithField("module", "master"),
	}
}

// Run tries passwords in order and stops at the first accepted one.
func (p *MasterProber) Run(ctx context.Context, passwords []string) (MasterReport, error) {
	var report MasterReport
	if len(passwords) == 0 {
		return report, dictionary.ErrNoCandidates
	}

	progress := p.opts.progress("master", len(passwords))
	defer progress.Finalize()

	for _, password := range passwords {
		if err := wait(ctx, p.opts.limiter); err != nil {
			return report, err
		}

		res := p.checker.CheckMasterPassword(ctx, password)
		report.Attempts++
		progress.RecordAttempt(password)

		switch res.Outcome {
		case domain.AttemptSuccess:
			report.Found = true
			report.Password = password
			progress.RecordSuccess(fmt.Sprintf("master password %q (%s)", password, res.Reason))
			p.log.WithField("attempts", report.Attempts).Info("Master password found")
			return report, nil
		case domain.AttemptRejected:
			report.Rejected++
		default:
			report.Errors++
			progress.RecordError(res.Reason)
		}
	}
	return report, nil
}
