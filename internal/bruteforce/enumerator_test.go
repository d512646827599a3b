package bruteforce

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bytemomo/oarfish/internal/domain"
	"bytemomo/oarfish/internal/modules/dictionary"
	"bytemomo/oarfish/internal/target"
	"bytemomo/oarfish/internal/telemetry"
	"bytemomo/oarfish/internal/testutil"
)

type recordingProgress struct {
	attempts  []string
	successes []string
	errors    []string
	notices   []string
	finalized int
}

func (r *recordingProgress) RecordAttempt(label string) { r.attempts = append(r.attempts, label) }
func (r *recordingProgress) RecordSuccess(msg string)   { r.successes = append(r.successes, msg) }
func (r *recordingProgress) RecordError(msg string)     { r.errors = append(r.errors, msg) }
func (r *recordingProgress) RecordNotice(msg string)    { r.notices = append(r.notices, msg) }
func (r *recordingProgress) Finalize()                  { r.finalized++ }

func (r *recordingProgress) factory() telemetry.Factory {
	return func(string, int) telemetry.Recorder { return r }
}

type scriptedAuth struct {
	results map[string]domain.AttemptResult
	seen    []string
	cancel  func()
}

func (s *scriptedAuth) Authenticate(_ context.Context, db, user, pass string) domain.AttemptResult {
	key := db + "/" + user + ":" + pass
	s.seen = append(s.seen, key)
	if s.cancel != nil {
		s.cancel()
	}
	if r, ok := s.results[key]; ok {
		return r
	}
	return domain.AttemptResult{Outcome: domain.AttemptRejected}
}

func newConn(t *testing.T, fake *testutil.FakeOdoo) *target.Connection {
	t.Helper()
	tgt, err := domain.NewTarget(fake.URL(), false)
	require.NoError(t, err)
	return target.New(tgt)
}

func TestEnumerator_FindsValidCredential(t *testing.T) {
	fake := testutil.NewFakeOdoo().Start()
	defer fake.Stop()

	creds, err := dictionary.BuildCredentials(nil,
		dictionary.StaticSource{Values: []string{"admin"}},
		dictionary.StaticSource{Values: []string{"admin", "wrong"}})
	require.NoError(t, err)

	progress := &recordingProgress{}
	report, err := NewEnumerator(newConn(t, fake), "prod", WithProgress(progress.factory())).Run(context.Background(), creds)
	require.NoError(t, err)

	assert.True(t, report.Found())
	assert.Equal(t, []domain.Hit{{Database: "prod", Credential: domain.Credential{Username: "admin", Password: "admin"}, UID: 2}}, report.Hits)
	assert.Equal(t, 2, report.Attempts)
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, []string{"admin:admin", "admin:wrong"}, progress.attempts)
	assert.Equal(t, 1, progress.finalized)
	assert.Equal(t, []string{"prod/admin:admin", "prod/admin:wrong"}, fake.Authentications())
}

func TestEnumerator_EmptySequenceFailsFast(t *testing.T) {
	auth := &scriptedAuth{}
	progress := &recordingProgress{}

	_, err := NewEnumerator(auth, "prod", WithProgress(progress.factory())).Run(context.Background(), nil)
	require.ErrorIs(t, err, dictionary.ErrNoCredentials)
	assert.Empty(t, auth.seen)
	assert.Zero(t, progress.finalized)
}

func TestEnumerator_ClassifiesOutcomes(t *testing.T) {
	auth := &scriptedAuth{results: map[string]domain.AttemptResult{
		"db/a:1": {Outcome: domain.AttemptError, Reason: "connection refused"},
		"db/b:1": {Outcome: domain.AttemptTransient, Reason: `database "db" does not exist`},
		"db/c:1": {Outcome: domain.AttemptSuccess, UID: 7},
	}}
	progress := &recordingProgress{}
	creds := []domain.Credential{{Username: "a", Password: "1"}, {Username: "b", Password: "1"}, {Username: "c", Password: "1"}, {Username: "d", Password: "1"}}

	report, err := NewEnumerator(auth, "db", WithProgress(progress.factory())).Run(context.Background(), creds)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Attempts)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 1, report.Transient)
	assert.Equal(t, 1, report.Rejected)
	require.Len(t, report.Hits, 1)
	assert.Equal(t, 7, report.Hits[0].UID)
	assert.Equal(t, []string{"a: connection refused"}, progress.errors)
	assert.Equal(t, []string{`database "db" does not exist`}, progress.notices)
	assert.Equal(t, []string{"c:1 (uid 7)"}, progress.successes)
}

func TestEnumerator_TransientAttemptsAreNotDisplayedAsErrors(t *testing.T) {
	fake := testutil.NewFakeOdoo().Start()
	defer fake.Stop()

	var out bytes.Buffer
	display := telemetry.New(2, telemetry.WithOutput(&out))
	factory := func(string, int) telemetry.Recorder { return display }
	creds := []domain.Credential{{Username: "admin", Password: "admin"}, {Username: "admin", Password: "wrong"}}

	report, err := NewEnumerator(newConn(t, fake), "ghost", WithProgress(factory)).Run(context.Background(), creds)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Transient)
	assert.Zero(t, report.Errors)
	stats := display.Stats()
	assert.Zero(t, stats.Errors)
	assert.Equal(t, 2, stats.Notices)
	assert.Contains(t, out.String(), "0 errors")
	assert.Contains(t, out.String(), `database "ghost" does not exist`)
}

func TestEnumerator_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	auth := &scriptedAuth{cancel: cancel}
	progress := &recordingProgress{}
	creds := []domain.Credential{{Username: "a", Password: "1"}, {Username: "b", Password: "1"}}

	report, err := NewEnumerator(auth, "db", WithProgress(progress.factory())).Run(ctx, creds)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Attempts)
	assert.Len(t, auth.seen, 1)
	assert.Equal(t, 1, progress.finalized)
}

func TestEnumerator_Limiter(t *testing.T) {
	auth := &scriptedAuth{}
	creds := []domain.Credential{{Username: "a", Password: "1"}, {Username: "b", Password: "1"}}

	report, err := NewEnumerator(auth, "db", WithProgress(telemetry.Silent), WithLimiter(NewLimiter(1000))).Run(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Attempts)
	assert.Nil(t, NewLimiter(0))
}

func TestDatabaseProber(t *testing.T) {
	fake := testutil.NewFakeOdoo()
	fake.Users["staging"] = map[string]testutil.FakeUser{"demo": {UID: 6, Password: "demo"}}
	fake.Start()
	defer fake.Stop()

	report, err := NewDatabaseProber(newConn(t, fake), WithProgress(telemetry.Silent)).Run(context.Background(), []string{"prod", "staging", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, []string{"prod", "staging"}, report.Found)
	assert.Equal(t, 3, report.Probed)
	assert.Zero(t, report.Errors)
	assert.Contains(t, fake.Authentications(), "ghost/test_user:test_pass")
}

func TestDatabaseProber_TransportErrors(t *testing.T) {
	auth := &scriptedAuth{results: map[string]domain.AttemptResult{
		"x/test_user:test_pass": {Outcome: domain.AttemptError, Reason: "timeout"},
	}}
	report, err := NewDatabaseProber(auth, WithProgress(telemetry.Silent)).Run(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Empty(t, report.Found)
	assert.Equal(t, 1, report.Errors)

	_, err = NewDatabaseProber(auth, WithProgress(telemetry.Silent)).Run(context.Background(), nil)
	require.ErrorIs(t, err, dictionary.ErrNoCandidates)
}
