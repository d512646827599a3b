package plugin

import (
	"context"
	"io"

	"bytemomo/oarfish/internal/domain"

	"github.com/sirupsen/logrus"
)

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(question string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(question string) bool

func (f ConfirmFunc) Confirm(question string) bool { return f(question) }

// Env is everything a plugin may use during a run.
type Env struct {
	Target   domain.Target
	Database string
	Username string
	Password string
	Conn     domain.TargetClient
	Confirm  Confirmer
	Out      io.Writer
	Log      *logrus.Entry
}

// HasCredentials reports whether a database and a full credential pair
// were supplied.
func (e *Env) HasCredentials() bool {
	return e.Database != "" && e.Username != "" && e.Password != ""
}

// Plugin is the contract every registered module implements.
type Plugin interface {
	Metadata() domain.Descriptor
	Run(ctx context.Context, env *Env) domain.PluginResult
}

// Validator is implemented by plugins with preconditions beyond the
// declared requirements.
type Validator interface {
	Validate(env *Env) error
}

// Exploit is the staged check, exploit and cleanup contract driven by
// RunExploit.
type Exploit interface {
	// Check classifies the target without side effects.
	Check(ctx context.Context, env *Env) (domain.VulnerabilityStatus, string, error)
	// Exploit performs the side-effecting sequence.
	Exploit(ctx context.Context, env *Env) (string, error)
	// Cleanup restores whatever Exploit changed. It runs even when Exploit
	// failed partway.
	Cleanup(ctx context.Context, env *Env) error
}
