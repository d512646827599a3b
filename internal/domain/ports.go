package domain

import "context"

// Authenticator performs the authentication handshake against a target.
type Authenticator interface {
	Authenticate(ctx context.Context, database, username, password string) AttemptResult
}

// ObjectCaller issues authenticated remote-object calls.
type ObjectCaller interface {
	Call(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error)
}

// TargetClient is the full surface of a target connection used by plugins
// and enumerators.
type TargetClient interface {
	Authenticator
	ObjectCaller
	MasterChecker
	ProbeVersion(ctx context.Context) *VersionInfo
	ListDatabases(ctx context.Context) []string
	Session() (Session, bool)
	Target() Target
}

// ReportWriter is an interface for writing reports.
type ReportWriter interface {
	// Aggregate aggregates all plugin results into a report.
	Aggregate(all []PluginResult) (string, error)
}

// MasterChecker tests candidate master passwords of the database manager.
type MasterChecker interface {
	CheckMasterPassword(ctx context.Context, password string) AttemptResult
}
