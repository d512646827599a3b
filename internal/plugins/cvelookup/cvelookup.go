// Package cvelookup lists published CVEs matching the detected server
// version.
package cvelookup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"bytemomo/oarfish/internal/domain"
	"bytemomo/oarfish/internal/plugin"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
)

// ID is the registry name of the plugin.
const ID = "cve-lookup"

// DefaultVersion is searched when the target does not report one.
const DefaultVersion = "15"

// Plugin queries the NVD.
type Plugin struct {
	Endpoint string
	Client   *http.Client
}

// New returns a plugin bound to the public NVD API.
func New() (plugin.Plugin, error) {
	return &Plugin{Endpoint: DefaultEndpoint, Client: &http.Client{Timeout: 15 * time.Second}}, nil
}

func (p *Plugin) Metadata() domain.Descriptor {
	return domain.Descriptor{
		ID:                   ID,
		Name:                 "CVE lookup",
		Description:          "Search the NVD for CVEs affecting the detected Odoo version",
		Author:               "oarfish",
		Version:              "1.0.0",
		Category:             domain.CategoryInformation,
		ExternalDependencies: []string{"services.nvd.nist.gov"},
	}
}

func (p *Plugin) Run(ctx context.Context, env *plugin.Env) domain.PluginResult {
	log := env.Log
	if log == nil {
		log = logrus.WithField("plugin", ID)
	}
	out := env.Out
	if out == nil {
		out = os.Stdout
	}

	version := DefaultVersion
	if env.Conn != nil {
		if info := env.Conn.ProbeVersion(ctx); info != nil && info.ServerVersion != "" {
			version = info.ServerVersion
		} else {
			log.Warnf("could not detect server version, defaulting to %s", DefaultVersion)
		}
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	endpoint := p.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	cves, err := search(ctx, client, endpoint, "odoo "+version)
	if err != nil {
		return domain.Failed(ID, "%v", err)
	}
	if len(cves) == 0 {
		return domain.PluginResult{Plugin: ID, Outcome: domain.OutcomeSuccess, Detail: fmt.Sprintf("no CVEs found for Odoo %s", version)}
	}

	render(out, cves)

	res := domain.PluginResult{
		Plugin:  ID,
		Outcome: domain.OutcomeSuccess,
		Detail:  fmt.Sprintf("found %d CVEs for Odoo %s", len(cves), version),
	}
	now := time.Now()
	for _, c := range cves {
		res.Findings = append(res.Findings, domain.Finding{
			ID:          uuid.NewString(),
			Source:      ID,
			Success:     true,
			Title:       c.ID,
			Severity:    c.Severity(),
			Description: c.Description,
			Evidence:    map[string]any{"score": c.ScoreText(), "references": c.References, "version": version},
			Timestamp:   now,
			Target:      env.Target.String(),
		})
	}
	return res
}

func render(w io.Writer, cves []CVE) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"CVE", "CVSS", "Severity", "Description", "References"})
	table.SetAutoWrapText(true)
	table.SetRowLine(true)
	for _, c := range cves {
		refs := "No references"
		if len(c.References) > 0 {
			refs = strings.Join(c.References, "\n")
		}
		table.Append([]string{c.ID, c.ScoreText(), c.Severity(), c.Description, refs})
	}
	table.Render()
}
