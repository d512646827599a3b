package recon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bytemomo/oarfish/internal/domain"
	"bytemomo/oarfish/internal/target"
	"bytemomo/oarfish/internal/testutil"
)

func newFake() *testutil.FakeOdoo {
	fake := testutil.NewFakeOdoo()
	fake.Pages["/web/login"] = `<html><head><title> Login | My Company </title></head><body><form><input name="login"/></form></body></html>`
	fake.Pages["/web/signup"] = `<html><body><form><input name="login"/><input name="password"/></form></body></html>`
	fake.Pages["/signup"] = `<html><body>Welcome</body></html>`
	fake.Pages["/shop"] = `<html><body>shop</body></html>`
	fake.Pages["/web"] = `<html><body>backend</body></html>`
	return fake
}

func TestSignup(t *testing.T) {
	fake := newFake().Start()
	defer fake.Stop()
	tgt, err := domain.NewTarget(fake.URL(), false)
	require.NoError(t, err)

	pages := NewProber(tgt, nil).Signup(context.Background())
	assert.Equal(t, []SignupPage{
		{URL: fake.URL() + "/web/signup", Form: true},
		{URL: fake.URL() + "/signup", Form: false},
	}, pages)
}

func TestDefaultApps(t *testing.T) {
	fake := newFake().Start()
	defer fake.Stop()
	tgt, err := domain.NewTarget(fake.URL(), false)
	require.NoError(t, err)

	apps, err := NewProber(tgt, nil).DefaultApps(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Login | My Company", apps.LoginTitle)
	require.Len(t, apps.Paths, len(AppPaths))

	available := map[string]bool{}
	for _, p := range apps.Paths {
		available[p.Path] = p.Available()
	}
	assert.True(t, available["/shop"])
	assert.True(t, available["/web"])
	assert.False(t, available["/forum"])
}

func TestDefaultApps_NoLoginPage(t *testing.T) {
	fake := testutil.NewFakeOdoo().Start()
	defer fake.Stop()
	tgt, err := domain.NewTarget(fake.URL(), false)
	require.NoError(t, err)

	_, err = NewProber(tgt, nil).DefaultApps(context.Background())
	assert.ErrorContains(t, err, "404")
}

func TestRun(t *testing.T) {
	fake := newFake().Start()
	defer fake.Stop()
	tgt, err := domain.NewTarget(fake.URL(), false)
	require.NoError(t, err)
	conn := target.New(tgt)

	report := Run(context.Background(), conn, conn.HTTPClient())
	require.NotNil(t, report.Version)
	assert.Equal(t, "14.0", report.Version.ServerVersion)
	assert.Equal(t, []string{"prod"}, report.Databases)
	assert.Len(t, report.Signup, 2)
	require.NotNil(t, report.Apps)
}
