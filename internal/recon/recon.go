package recon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"bytemomo/oarfish/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// SignupPaths are the routes that expose anonymous account creation on
// common module sets.
var SignupPaths = []string{
	"/web/signup",
	"/auth_signup/sign_up",
	"/web/portal/register",
	"/web/register",
	"/website/signup",
	"/portal/signup",
	"/signup",
	"/web/login/signup",
}

// AppPaths are the public routes of frequently installed applications.
var AppPaths = []string{
	"/web", "/shop", "/forum", "/contactus",
	"/website/info", "/blog", "/events",
	"/jobs", "/slides",
}

const loginPath = "/web/login"

// SignupPage is a reachable signup route.
type SignupPage struct {
	URL string `json:"url"`
	// Form is true when the page carries a login field, meaning accounts
	// can be registered from it.
	Form bool `json:"form"`
}

// PathStatus is the answer for one application route.
type PathStatus struct {
	Path   string `json:"path"`
	URL    string `json:"url"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Available reports a 200 answer.
func (p PathStatus) Available() bool { return p.Status == http.StatusOK }

// Apps is the result of the default-application check.
type Apps struct {
	LoginTitle string       `json:"login_title"`
	Paths      []PathStatus `json:"paths"`
}

// Report gathers everything recon found.
type Report struct {
	Target    string              `json:"target"`
	Version   *domain.VersionInfo `json:"version,omitempty"`
	Databases []string            `json:"databases"`
	Signup    []SignupPage        `json:"signup"`
	Apps      *Apps               `json:"apps,omitempty"`
}

// Prober issues plain web requests against a target.
type Prober struct {
	target domain.Target
	client *http.Client
	log    *logrus.Entry
}

// NewProber builds a Prober sharing client with the RPC connection.
func NewProber(t domain.Target, client *http.Client) *Prober {
	if client == nil {
		client = http.DefaultClient
	}
	return &Prober{target: t, client: client, log: logrus.WithFields(logrus.Fields{"module": "recon", "target": t.String()})}
}

// Run performs the full reconnaissance pass.
func Run(ctx context.Context, conn domain.TargetClient, client *http.Client) Report {
	p := NewProber(conn.Target(), client)
	report := Report{
		Target:    conn.Target().String(),
		Version:   conn.ProbeVersion(ctx),
		Databases: conn.ListDatabases(ctx),
		Signup:    p.Signup(ctx),
	}
	apps, err := p.DefaultApps(ctx)
	if err != nil {
		p.log.WithError(err).Info("default application check failed")
	} else {
		report.Apps = apps
	}
	return report
}

// Signup requests every path in SignupPaths and keeps the ones answering 200.
func (p *Prober) Signup(ctx context.Context) []SignupPage {
	found := []SignupPage{}
	for _, path := range SignupPaths {
		url := p.target.Endpoint(path)
		status, doc, err := p.get(ctx, url)
		if err != nil {
			p.log.WithError(err).WithField("url", url).Debug("signup probe failed")
			continue
		}
		if status != http.StatusOK {
			continue
		}
		page := SignupPage{URL: url}
		if doc != nil && doc.Find(`input[name="login"]`).Length() > 0 {
			page.Form = true
		}
		found = append(found, page)
	}
	return found
}

// DefaultApps reads the login page title and probes AppPaths.
func (p *Prober) DefaultApps(ctx context.Context) (*Apps, error) {
	url := p.target.Endpoint(loginPath)
	status, doc, err := p.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("login page answered %d", status)
	}

	apps := &Apps{Paths: make([]PathStatus, 0, len(AppPaths))}
	if doc != nil {
		apps.LoginTitle = strings.TrimSpace(doc.Find("title").First().Text())
	}
	for _, path := range AppPaths {
		ps := PathStatus{Path: path, URL: p.target.Endpoint(path)}
		if ps.Status, _, err = p.get(ctx, ps.URL); err != nil {
			ps.Error = err.Error()
		}
		apps.Paths = append(apps.Paths, ps)
	}
	return apps, nil
}

func (p *Prober) get(ctx context.Context, url string) (int, *goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return resp.StatusCode, nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return resp.StatusCode, nil, nil
	}
	return resp.StatusCode, doc, nil
}
