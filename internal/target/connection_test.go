package target

import (
	"context"
	"crypto/tls"
	"net/http"
	"testing"
	"time"

	"bytemomo/oarfish/internal/domain"
	"bytemomo/oarfish/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConn(t *testing.T, fake *testutil.FakeOdoo) *Connection {
	t.Helper()
	tgt, err := domain.NewTarget(fake.URL(), false)
	require.NoError(t, err)
	return New(tgt, WithTimeout(5*time.Second))
}

func TestProbeVersion(t *testing.T) {
	fake := testutil.NewFakeOdoo().Start()
	defer fake.Stop()

	info := newConn(t, fake).ProbeVersion(context.Background())
	require.NotNil(t, info)
	assert.Equal(t, "14.0", info.ServerVersion)
	assert.Equal(t, "14.0", info.ServerSerie)
	assert.Equal(t, 1, info.ProtocolVersion)
}

func TestProbeVersion_NotTheApplication(t *testing.T) {
	fake := testutil.NewFakeOdoo()
	fake.NotOdoo = true
	fake.Start()
	defer fake.Stop()

	assert.Nil(t, newConn(t, fake).ProbeVersion(context.Background()))
}

func TestProbeVersion_VerifyTLSRejectsSelfSigned(t *testing.T) {
	fake := testutil.NewFakeOdoo().StartTLS()
	defer fake.Stop()

	insecure, err := domain.NewTarget(fake.URL(), false)
	require.NoError(t, err)
	assert.NotNil(t, New(insecure).ProbeVersion(context.Background()))

	strict, err := domain.NewTarget(fake.URL(), true)
	require.NoError(t, err)
	assert.Nil(t, New(strict).ProbeVersion(context.Background()))
}

func TestListDatabases(t *testing.T) {
	fake := testutil.NewFakeOdoo()
	fake.Users["staging"] = map[string]testutil.FakeUser{}
	fake.Start()
	defer fake.Stop()

	assert.Equal(t, []string{"prod", "staging"}, newConn(t, fake).ListDatabases(context.Background()))
}

func TestListDatabases_FallsBackToJSONRPC(t *testing.T) {
	fake := testutil.NewFakeOdoo()
	fake.DBListDisabled = true
	fake.Start()
	defer fake.Stop()

	assert.Equal(t, []string{"prod"}, newConn(t, fake).ListDatabases(context.Background()))
}

func TestListDatabases_BothFailReturnsEmpty(t *testing.T) {
	fake := testutil.NewFakeOdoo()
	fake.DBListDisabled = true
	fake.JSONListDisabled = true
	fake.Start()
	defer fake.Stop()

	dbs := newConn(t, fake).ListDatabases(context.Background())
	assert.NotNil(t, dbs)
	assert.Empty(t, dbs)
}

func TestAuthenticate(t *testing.T) {
	fake := testutil.NewFakeOdoo().Start()
	defer fake.Stop()
	conn := newConn(t, fake)

	_, ok := conn.Session()
	require.False(t, ok)

	res := conn.Authenticate(context.Background(), "prod", "admin", "admin")
	require.Equal(t, domain.AttemptSuccess, res.Outcome)
	assert.Equal(t, 2, res.UID)

	sess, ok := conn.Session()
	require.True(t, ok)
	assert.Equal(t, "prod", sess.Database)
	assert.Equal(t, 2, sess.UID)
	assert.Equal(t, "admin", sess.Password)
}

func TestAuthenticate_Rejected(t *testing.T) {
	fake := testutil.NewFakeOdoo().Start()
	defer fake.Stop()
	conn := newConn(t, fake)

	res := conn.Authenticate(context.Background(), "prod", "admin", "wrong")
	assert.Equal(t, domain.AttemptRejected, res.Outcome)
	_, ok := conn.Session()
	assert.False(t, ok)
}

func TestAuthenticate_MissingDatabaseIsTransient(t *testing.T) {
	for _, stringCodes := range []bool{false, true} {
		fake := testutil.NewFakeOdoo()
		fake.StringFaultCodes = stringCodes
		fake.Start()

		res := newConn(t, fake).Authenticate(context.Background(), "ghost", "admin", "admin")
		assert.Equal(t, domain.AttemptTransient, res.Outcome, "string fault codes: %v", stringCodes)
		assert.Contains(t, res.Reason, "ghost")
		fake.Stop()
	}
}

func TestAuthenticate_UnreachableIsError(t *testing.T) {
	fake := testutil.NewFakeOdoo().Start()
	conn := newConn(t, fake)
	fake.Stop()

	res := conn.Authenticate(context.Background(), "prod", "admin", "admin")
	assert.Equal(t, domain.AttemptError, res.Outcome)
	assert.NotEmpty(t, res.Reason)
}

func TestAuthenticate_ReplacesSession(t *testing.T) {
	fake := testutil.NewFakeOdoo()
	fake.Users["prod"]["demo"] = testutil.FakeUser{UID: 6, Password: "demo"}
	fake.Start()
	defer fake.Stop()
	conn := newConn(t, fake)

	require.True(t, conn.Authenticate(context.Background(), "prod", "admin", "admin").Succeeded())
	require.True(t, conn.Authenticate(context.Background(), "prod", "demo", "demo").Succeeded())

	sess, _ := conn.Session()
	assert.Equal(t, 6, sess.UID)
	assert.Equal(t, "demo", sess.Username)
}

func TestCall_RequiresSession(t *testing.T) {
	fake := testutil.NewFakeOdoo().Start()
	defer fake.Stop()

	_, err := newConn(t, fake).Call(context.Background(), "res.partner", "search", nil, nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, fake.Calls())
}

func TestCall_ForwardsToObjectEndpoint(t *testing.T) {
	fake := testutil.NewFakeOdoo()
	fake.Models["res.partner"] = &testutil.FakeModel{Records: []map[string]any{
		{"id": 1, "name": "Azure Interior"},
		{"id": 2, "name": "Deco Addict"},
	}}
	fake.Start()
	defer fake.Stop()
	conn := newConn(t, fake)
	require.True(t, conn.Authenticate(context.Background(), "prod", "admin", "admin").Succeeded())

	reply, err := conn.Call(context.Background(), "res.partner", "search_read", []any{[]any{}}, map[string]any{
		"fields": []any{"name"},
		"limit":  1,
	})
	require.NoError(t, err)

	records := AsRecords(reply)
	require.Len(t, records, 1)
	assert.Equal(t, "Azure Interior", AsString(records[0]["name"]))

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "res.partner", calls[0].Model)
	assert.Equal(t, "search_read", calls[0].Method)
}

func TestCall_MissingModel(t *testing.T) {
	fake := testutil.NewFakeOdoo().Start()
	defer fake.Stop()
	conn := newConn(t, fake)
	require.True(t, conn.Authenticate(context.Background(), "prod", "admin", "admin").Succeeded())

	_, err := conn.Call(context.Background(), "x.nothing", "check_access_rights", []any{"read"}, nil)
	require.Error(t, err)
	assert.True(t, IsMissingModel(err))
}

func TestNew_WithTLSParams(t *testing.T) {
	fake := testutil.NewFakeOdoo().StartTLS()
	defer fake.Stop()

	tgt, err := domain.NewTarget(fake.URL(), false)
	require.NoError(t, err)
	conn := New(tgt, WithTLSParams(map[string]any{"server_name": "erp.internal", "min_version": "TLS1.3"}))

	cfg := conn.HTTPClient().Transport.(*http.Transport).TLSClientConfig
	assert.Equal(t, "erp.internal", cfg.ServerName)
	assert.EqualValues(t, tls.VersionTLS13, cfg.MinVersion)
	assert.NotNil(t, conn.ProbeVersion(context.Background()))
}

func TestCheckMasterPassword(t *testing.T) {
	fake := testutil.NewFakeOdoo()
	fake.MasterPassword = "m4ster"
	fake.Start()
	defer fake.Stop()
	conn := newConn(t, fake)

	assert.Equal(t, domain.AttemptRejected, conn.CheckMasterPassword(context.Background(), "admin").Outcome)
	assert.Equal(t, domain.AttemptSuccess, conn.CheckMasterPassword(context.Background(), "m4ster").Outcome)

	attempts := fake.MasterAttempts()
	require.Len(t, attempts, 2)
	assert.Equal(t, attempts[0][:len(attempts[0])-len(":admin")], attempts[1][:len(attempts[1])-len(":m4ster")])
	assert.NotContains(t, attempts[0], "prod:")
}

func TestCheckMasterPassword_UnreachableIsError(t *testing.T) {
	fake := testutil.NewFakeOdoo().Start()
	conn := newConn(t, fake)
	fake.Stop()

	res := conn.CheckMasterPassword(context.Background(), "admin")
	assert.Equal(t, domain.AttemptError, res.Outcome)
}
