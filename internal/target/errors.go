package target

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"bytemomo/oarfish/internal/domain"
	"bytemomo/oarfish/internal/transport"
)

var (
	// ErrNotAuthenticated is returned by Call when no session is active.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrTransport wraps failures below the RPC layer (dial, TLS, HTTP).
	ErrTransport = errors.New("transport failure")
)

// accessDeniedCode is the fault code the server uses for AccessDenied.
const accessDeniedCode = "3"

var (
	accessDeniedRx = regexp.MustCompile(`(?i)access\s*denied`)
	dbBlockedRx    = regexp.MustCompile(`(?i)database management functions blocked`)
	dbMissingRx    = regexp.MustCompile(`(?i)database\s+"?([^"\s]*)"?\s+does not exist`)
	modelMissingRx = regexp.MustCompile(`(?i)object\s+\S+\s+doesn't exist|model\s+\S+\s+does not exist|KeyError: '[^']+'`)
)

// RemoteError is a fault raised by the target while serving a call.
type RemoteError struct {
	Op      string
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, (&transport.Fault{Code: e.Code, Message: e.Message}).Error())
}

// IsMissingModel reports whether err says the called model does not exist
// on the target.
func IsMissingModel(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && modelMissingRx.MatchString(re.Message)
}

// translate maps transport errors onto the errors exported by this package.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var fault *transport.Fault
	if errors.As(err, &fault) {
		return &RemoteError{Op: op, Code: fault.Code, Message: fault.Message}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrTransport, err)
}

// classify turns an authenticate failure into an attempt result. The
// server has no dedicated fault code for a missing database, so that case
// is recognised from the fault text.
func classify(err error) domain.AttemptResult {
	var re *RemoteError
	if !errors.As(err, &re) {
		return domain.AttemptResult{Outcome: domain.AttemptError, Reason: err.Error()}
	}
	if re.Code == accessDeniedCode {
		return domain.AttemptResult{Outcome: domain.AttemptRejected, Reason: "access denied"}
	}
	if m := dbMissingRx.FindStringSubmatch(re.Message); m != nil {
		return domain.AttemptResult{
			Outcome: domain.AttemptTransient,
			Reason:  fmt.Sprintf("database %q does not exist", m[1]),
		}
	}
	return domain.AttemptResult{Outcome: domain.AttemptRejected, Reason: re.Error()}
}

// classifyMaster turns the reply of a database-manager call into a master
// password verdict. The server checks the password before anything else, so
// only AccessDenied means the candidate was refused. The "functions blocked"
// denial is raised after that check and therefore confirms the password.
func classifyMaster(err error) domain.AttemptResult {
	if err == nil {
		return domain.AttemptResult{Outcome: domain.AttemptSuccess}
	}
	var re *RemoteError
	if !errors.As(err, &re) {
		return domain.AttemptResult{Outcome: domain.AttemptError, Reason: err.Error()}
	}
	if dbBlockedRx.MatchString(re.Message) {
		return domain.AttemptResult{Outcome: domain.AttemptSuccess, Reason: "accepted, database manager disabled"}
	}
	if re.Code == accessDeniedCode || accessDeniedRx.MatchString(re.Message) {
		return domain.AttemptResult{Outcome: domain.AttemptRejected, Reason: "access denied"}
	}
	return domain.AttemptResult{Outcome: domain.AttemptSuccess, Reason: "accepted"}
}
