package privesc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bytemomo/oarfish/internal/domain"
	"bytemomo/oarfish/internal/plugin"
	"bytemomo/oarfish/internal/target"
	"bytemomo/oarfish/internal/testutil"
)

func newFake(serverVersion string) *testutil.FakeOdoo {
	fake := testutil.NewFakeOdoo()
	fake.Version["server_version"] = serverVersion
	fake.Models["mail.template"] = &testutil.FakeModel{Records: []map[string]any{
		{"id": 3, "lang": "en_US", "model": "res.partner"},
	}}
	return fake
}

func newEnv(t *testing.T, fake *testutil.FakeOdoo, answer bool) (*plugin.Env, *[]string) {
	t.Helper()
	tgt, err := domain.NewTarget(fake.URL(), false)
	require.NoError(t, err)
	asked := &[]string{}
	return &plugin.Env{
		Target:   tgt,
		Database: "prod",
		Username: "admin",
		Password: "admin",
		Conn:     target.New(tgt),
		Confirm: plugin.ConfirmFunc(func(q string) bool {
			*asked = append(*asked, q)
			return answer
		}),
	}, asked
}

func methods(fake *testutil.FakeOdoo) []string {
	var out []string
	for _, c := range fake.Calls() {
		out = append(out, c.Model+"."+c.Method)
	}
	return out
}

func TestIsVulnerableVersion(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"8.0", false},
		{"9.0", false},
		{"9.1", true},
		{"12.0", true},
		{"14.0+e", true},
		{"saas~14.3", true},
		{"15.0", false},
		{"16.0-20230101", false},
	}
	for _, tc := range cases {
		got, _, err := IsVulnerableVersion(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}

	_, _, err := IsVulnerableVersion("unknown")
	assert.Error(t, err)
}

func TestRun_EscalatesAndRestoresTemplate(t *testing.T) {
	fake := newFake("14.0")
	var rendered []any
	fake.Hooks["mail.template.generate_email"] = func(args []any, _ map[string]any) (any, error) {
		rec := fake.Record("mail.template", 3)
		if rec["lang"] != payload || rec["model"] != hijackModel {
			return nil, errors.New("payload not stored")
		}
		rendered = args
		return map[string]any{"lang": "en_US"}, nil
	}
	fake.Start()
	defer fake.Stop()

	env, asked := newEnv(t, fake, true)
	p, err := New()
	require.NoError(t, err)

	res := plugin.Dispatch(context.Background(), p, env)
	require.Equal(t, domain.OutcomeSuccess, res.Outcome, res.Detail)
	assert.Len(t, *asked, 1)
	assert.Equal(t, []any{3, 2, []any{"lang"}}, rendered)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, ID, res.Findings[0].Source)

	rec := fake.Record("mail.template", 3)
	assert.Equal(t, "en_US", rec["lang"])
	assert.Equal(t, "res.partner", rec["model"])
}

func TestRun_RestoresTemplateWhenRenderFails(t *testing.T) {
	fake := newFake("12.0")
	fake.Hooks["mail.template.generate_email"] = func([]any, map[string]any) (any, error) {
		return nil, errors.New("QWebException: rendering failed")
	}
	fake.Start()
	defer fake.Stop()

	env, _ := newEnv(t, fake, true)
	p, _ := New()

	res := plugin.Dispatch(context.Background(), p, env)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Detail, "render payload")

	rec := fake.Record("mail.template", 3)
	assert.Equal(t, "en_US", rec["lang"])
	assert.Equal(t, "res.partner", rec["model"])

	calls := methods(fake)
	assert.Equal(t, "mail.template.write", calls[len(calls)-1])
}

func TestRun_NotVulnerableVersion(t *testing.T) {
	fake := newFake("16.0").Start()
	defer fake.Stop()

	env, asked := newEnv(t, fake, true)
	p, _ := New()

	res := plugin.Dispatch(context.Background(), p, env)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Detail, "16.0")
	assert.Empty(t, *asked)
	assert.NotContains(t, methods(fake), "mail.template.write")
}

func TestRun_MailModuleMissing(t *testing.T) {
	fake := newFake("14.0")
	delete(fake.Models, "mail.template")
	fake.Start()
	defer fake.Stop()

	env, asked := newEnv(t, fake, true)
	p, _ := New()

	res := plugin.Dispatch(context.Background(), p, env)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Detail, "mail module")
	assert.Empty(t, *asked)
}

func TestRun_UnknownVersionAsksAndAborts(t *testing.T) {
	fake := newFake("")
	fake.Start()
	defer fake.Stop()

	env, asked := newEnv(t, fake, false)
	p, _ := New()

	res := plugin.Dispatch(context.Background(), p, env)
	assert.Equal(t, domain.OutcomeAborted, res.Outcome)
	require.Len(t, *asked, 1)
	assert.Contains(t, (*asked)[0], "unknown")
	assert.NotContains(t, methods(fake), "mail.template.write")
}

func TestRun_BadCredentials(t *testing.T) {
	fake := newFake("14.0").Start()
	defer fake.Stop()

	env, asked := newEnv(t, fake, true)
	env.Password = "wrong"
	p, _ := New()

	res := plugin.Dispatch(context.Background(), p, env)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Detail, "authentication failed")
	assert.Empty(t, *asked)
}

func TestRun_RequiresAuth(t *testing.T) {
	p, _ := New()
	res := plugin.Dispatch(context.Background(), p, &plugin.Env{})
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
}

func TestRun_NoTemplate(t *testing.T) {
	fake := newFake("14.0")
	fake.Models["mail.template"].Records = nil
	fake.Start()
	defer fake.Stop()

	env, _ := newEnv(t, fake, true)
	p, _ := New()

	res := plugin.Dispatch(context.Background(), p, env)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Detail, "no mail template")
	assert.NotContains(t, methods(fake), "mail.template.write")
}
