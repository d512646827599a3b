package domain

import "fmt"

// Credential is a username/password candidate.
type Credential struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credential) String() string { return c.Username + ":" + c.Password }

// Key identifies the pair for deduplication.
func (c Credential) Key() string { return c.Username + "\x00" + c.Password }

// AttemptOutcome classifies a single authentication attempt.
type AttemptOutcome int

const (
	// AttemptSuccess means the target returned a user handle.
	AttemptSuccess AttemptOutcome = iota
	// AttemptRejected means the target answered and refused the credential.
	AttemptRejected
	// AttemptTransient means the attempt was refused because of the database
	// parameter, not the credential (the database does not exist).
	AttemptTransient
	// AttemptError means the transport failed before the target could judge
	// the credential.
	AttemptError
)

func (o AttemptOutcome) String() string {
	switch o {
	case AttemptSuccess:
		return "success"
	case AttemptRejected:
		return "rejected"
	case AttemptTransient:
		return "transient"
	case AttemptError:
		return "error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// AttemptResult is the classified result of one authenticate call.
type AttemptResult struct {
	Outcome AttemptOutcome
	UID     int
	Reason  string
}

// Succeeded reports whether the attempt produced a session.
func (r AttemptResult) Succeeded() bool { return r.Outcome == AttemptSuccess }

// Hit is a credential the target accepted.
type Hit struct {
	Database   string     `json:"database"`
	Credential Credential `json:"credential"`
	UID        int        `json:"uid"`
}
