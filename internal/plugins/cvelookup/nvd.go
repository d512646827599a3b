package cvelookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultEndpoint is the NVD CVE API 2.0.
const DefaultEndpoint = "https://services.nvd.nist.gov/rest/json/cves/2.0"

type nvdResponse struct {
	TotalResults    int `json:"totalResults"`
	Vulnerabilities []struct {
		CVE nvdCVE `json:"cve"`
	} `json:"vulnerabilities"`
}

type nvdCVE struct {
	ID           string `json:"id"`
	Descriptions []struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	} `json:"descriptions"`
	Metrics    map[string][]nvdMetric `json:"metrics"`
	References []struct {
		URL string `json:"url"`
	} `json:"references"`
}

type nvdMetric struct {
	CVSSData struct {
		BaseScore float64 `json:"baseScore"`
	} `json:"cvssData"`
}

// CVE is the condensed view of one NVD entry.
type CVE struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Score       *float64 `json:"score,omitempty"`
	References  []string `json:"references"`
}

// ScoreText renders the score or N/A.
func (c CVE) ScoreText() string {
	if c.Score == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*c.Score, 'f', 1, 64)
}

// Severity buckets the CVSS base score.
func (c CVE) Severity() string {
	switch {
	case c.Score == nil:
		return "unknown"
	case *c.Score >= 9:
		return "critical"
	case *c.Score >= 7:
		return "high"
	case *c.Score >= 4:
		return "medium"
	default:
		return "low"
	}
}

var metricPreference = []string{"cvssMetricV31", "cvssMetricV30", "cvssMetricV2"}

const maxReferences = 2

func search(ctx context.Context, client *http.Client, endpoint, keyword string) ([]CVE, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("keywordSearch", keyword)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query NVD: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("query NVD: unexpected status %s", resp.Status)
	}

	var body nvdResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 32<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode NVD response: %w", err)
	}

	out := make([]CVE, 0, len(body.Vulnerabilities))
	for _, v := range body.Vulnerabilities {
		out = append(out, condense(v.CVE))
	}
	return out, nil
}

func condense(raw nvdCVE) CVE {
	c := CVE{ID: raw.ID, References: []string{}}
	for _, d := range raw.Descriptions {
		if d.Lang == "en" || c.Description == "" {
			c.Description = d.Value
		}
		if d.Lang == "en" {
			break
		}
	}
	for _, key := range metricPreference {
		if m := raw.Metrics[key]; len(m) > 0 {
			score := m[0].CVSSData.BaseScore
			c.Score = &score
			break
		}
	}
	for _, r := range raw.References {
		if len(c.References) == maxReferences {
			break
		}
		c.References = append(c.References, r.URL)
	}
	return c
}
