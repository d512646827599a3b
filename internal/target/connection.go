package target

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"bytemomo/oarfish/internal/domain"
	"bytemomo/oarfish/internal/transport"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	commonPath   = "/xmlrpc/2/common"
	databasePath = "/xmlrpc/2/db"
	objectPath   = "/xmlrpc/2/object"
	webDBPath    = "/web/database/list"
)

// Connection owns the network identity to one target and at most one
// authenticated session.
type Connection struct {
	target domain.Target
	http   *http.Client
	common *transport.RPCClient
	db     *transport.RPCClient
	object *transport.RPCClient
	log    *logrus.Entry

	// scratchDB names a database that does not exist on the target. Master
	// password checks dump it so that no real data is touched.
	scratchDB string

	mu      sync.Mutex
	session *domain.Session
}

var _ domain.TargetClient = (*Connection)(nil)

type options struct {
	timeout time.Duration
	client  *http.Client
	tls     map[string]any
}

// Option configures a Connection.
type Option func(*options)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTLSParams passes server_name and min_version overrides to the HTTP
// client. It has no effect together with WithHTTPClient.
func WithTLSParams(params map[string]any) Option {
	return func(o *options) { o.tls = params }
}

// WithHTTPClient replaces the HTTP client built from the target.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// New builds a connection. No network traffic happens until a method is
// called.
func New(t domain.Target, opts ...Option) *Connection {
	o := options{timeout: transport.DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	client := o.client
	if client == nil {
		client = transport.NewHTTPClient(t, o.timeout, o.tls)
	}

	return &Connection{
		target: t,
		http:   client,
		common: transport.NewRPCClient(t.Endpoint(commonPath), client),
		db:     transport.NewRPCClient(t.Endpoint(databasePath), client),
		object: transport.NewRPCClient(t.Endpoint(objectPath), client),
		log:    logrus.WithField("target", t.String()),

		scratchDB: "oarfish_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
	}
}

// Target returns the target this connection talks to.
func (c *Connection) Target() domain.Target { return c.target }

// HTTPClient exposes the underlying client for plain web requests.
func (c *Connection) HTTPClient() *http.Client { return c.http }

// ProbeVersion asks the target for its version. It returns nil when the
// endpoint does not answer like the expected application.
func (c *Connection) ProbeVersion(ctx context.Context) *domain.VersionInfo {
	var raw map[string]any
	if err := c.common.Call(ctx, "version", nil, &raw); err != nil {
		c.log.WithError(err).Debug("version probe failed")
		return nil
	}

	serverVersion, _ := raw["server_version"].(string)
	if serverVersion == "" {
		c.log.Debug("version probe answered without server_version")
		return nil
	}

	info := &domain.VersionInfo{ServerVersion: serverVersion}
	info.ServerSerie, _ = raw["server_serie"].(string)
	info.ServerVersionInfo, _ = raw["server_version_info"].([]any)
	if pv, ok := AsInt(raw["protocol_version"]); ok {
		info.ProtocolVersion = pv
	}
	return info
}

// ListDatabases tries the database service first and falls back to the
// web JSON-RPC listing. It never returns nil.
func (c *Connection) ListDatabases(ctx context.Context) []string {
	var raw []any
	err := c.db.Call(ctx, "list", nil, &raw)
	if err == nil {
		return AsStrings(raw)
	}
	c.log.WithError(err).Info("database listing refused, falling back to JSON-RPC")

	var names []string
	err = transport.CallJSON(ctx, c.http, c.target.Endpoint(webDBPath), nil, &names)
	if err != nil {
		c.log.WithError(err).Info("JSON-RPC database listing failed")
		return []string{}
	}
	if names == nil {
		return []string{}
	}
	return names
}

// Authenticate performs the login handshake. On success the session is
// replaced and the result carries the user handle.
func (c *Connection) Authenticate(ctx context.Context, database, username, password string) domain.AttemptResult {
	var raw any
	err := c.common.Call(ctx, "authenticate", []any{database, username, password, map[string]any{}}, &raw)
	if err != nil {
		res := classify(translate("authenticate", err))
		c.log.WithFields(logrus.Fields{
			"database": database,
			"username": username,
			"outcome":  res.Outcome.String(),
		}).Debug(res.Reason)
		return res
	}

	uid, ok := AsInt(raw)
	if !ok || uid <= 0 {
		return domain.AttemptResult{Outcome: domain.AttemptRejected, Reason: "invalid credentials"}
	}

	c.mu.Lock()
	c.session = &domain.Session{Database: database, UID: uid, Username: username, Password: password}
	c.mu.Unlock()

	return domain.AttemptResult{Outcome: domain.AttemptSuccess, UID: uid}
}

// CheckMasterPassword tests password against the database manager. It asks
// for a dump of a database that does not exist: the password is verified
// before the database is looked up, so a refused candidate fails with
// AccessDenied and an accepted one fails later or not at all.
func (c *Connection) CheckMasterPassword(ctx context.Context, password string) domain.AttemptResult {
	var raw any
	err := c.db.Call(ctx, "dump", []any{password, c.scratchDB, "zip"}, &raw)
	res := classifyMaster(translate("dump", err))
	c.log.WithFields(logrus.Fields{
		"database": c.scratchDB,
		"outcome":  res.Outcome.String(),
	}).Debug("master password attempt")
	return res
}

// Session returns the active session, if any.
func (c *Connection) Session() (domain.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return domain.Session{}, false
	}
	return *c.session, true
}

// Call runs method on model as the authenticated user.
func (c *Connection) Call(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	sess, ok := c.Session()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	var reply any
	err := c.object.Call(ctx, "execute_kw", []any{sess.Database, sess.UID, sess.Password, model, method, args, kwargs}, &reply)
	if err != nil {
		return nil, translate(fmt.Sprintf("%s.%s", model, method), err)
	}
	return reply, nil
}
