package bruteforce

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bytemomo/oarfish/internal/domain"
	"bytemomo/oarfish/internal/modules/dictionary"
	"bytemomo/oarfish/internal/telemetry"
	"bytemomo/oarfish/internal/testutil"
)

type scriptedMaster map[string]domain.AttemptResult

func (s scriptedMaster) CheckMasterPassword(_ context.Context, password string) domain.AttemptResult {
	if r, ok := s[password]; ok {
		return r
	}
	return domain.AttemptResult{Outcome: domain.AttemptRejected, Reason: "access denied"}
}

func TestMasterProber_FindsPassword(t *testing.T) {
	fake := testutil.NewFakeOdoo()
	fake.MasterPassword = "s3cret"
	fake.Start()
	defer fake.Stop()

	progress := &recordingProgress{}
	report, err := NewMasterProber(newConn(t, fake), WithProgress(progress.factory())).
		Run(context.Background(), []string{"admin", "s3cret", "never-tried"})
	require.NoError(t, err)
	assert.True(t, report.Found)
	assert.Equal(t, "s3cret", report.Password)
	assert.Equal(t, 2, report.Attempts)
	assert.Equal(t, 1, report.Rejected)
	assert.Zero(t, report.Errors)
	assert.Equal(t, []string{"admin", "s3cret"}, progress.attempts)
	assert.Equal(t, 1, progress.finalized)

	attempts := fake.MasterAttempts()
	require.Len(t, attempts, 2)
	for _, a := range attempts {
		db := strings.SplitN(a, ":", 2)[0]
		assert.True(t, strings.HasPrefix(db, "oarfish_"), a)
		assert.NotEqual(t, "prod", db)
	}
}

func TestMasterProber_ManagerDisabledStillConfirmsPassword(t *testing.T) {
	fake := testutil.NewFakeOdoo()
	fake.DBManagerDisabled = true
	fake.Start()
	defer fake.Stop()

	report, err := NewMasterProber(newConn(t, fake), WithProgress(telemetry.Silent)).
		Run(context.Background(), []string{"wrong", "admin"})
	require.NoError(t, err)
	assert.True(t, report.Found)
	assert.Equal(t, "admin", report.Password)
	assert.Equal(t, 1, report.Rejected)
}

func TestMasterProber_NotFound(t *testing.T) {
	fake := testutil.NewFakeOdoo().Start()
	defer fake.Stop()

	report, err := NewMasterProber(newConn(t, fake), WithProgress(telemetry.Silent)).
		Run(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.False(t, report.Found)
	assert.Empty(t, report.Password)
	assert.Equal(t, 2, report.Rejected)
}

func TestMasterProber_ErrorsAndCancel(t *testing.T) {
	checker := scriptedMaster{"x": {Outcome: domain.AttemptError, Reason: "dump: transport failure"}}
	progress := &recordingProgress{}

	report, err := NewMasterProber(checker, WithProgress(progress.factory())).Run(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, []string{"dump: transport failure"}, progress.errors)

	_, err = NewMasterProber(checker).Run(context.Background(), nil)
	require.ErrorIs(t, err, dictionary.ErrNoCandidates)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err = NewMasterProber(checker, WithProgress(telemetry.Silent)).Run(ctx, []string{"x"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Attempts)
}
