package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Target is the remote server under assessment.
type Target struct {
	URL       string
	VerifyTLS bool
}

// NewTarget normalises raw into a Target. Hosts given without a scheme are
// assumed to speak https.
func NewTarget(raw string, verifyTLS bool) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, fmt.Errorf("target url is required")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("parse target url: %w", err)
	}
	if u.Host == "" {
		return Target{}, fmt.Errorf("target url %q has no host", raw)
	}

	return Target{
		URL:       strings.TrimRight(u.String(), "/"),
		VerifyTLS: verifyTLS,
	}, nil
}

// Endpoint joins path onto the target URL.
func (t Target) Endpoint(path string) string {
	return t.URL + "/" + strings.TrimLeft(path, "/")
}

// Base returns the same target reduced to scheme://host, and whether it
// differs from t.
func (t Target) Base() (Target, bool) {
	u, err := url.Parse(t.URL)
	if err != nil {
		return t, false
	}
	base := Target{URL: u.Scheme + "://" + u.Host, VerifyTLS: t.VerifyTLS}
	return base, base.URL != t.URL
}

func (t Target) String() string { return t.URL }
