package transport

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"sort"
	"strings"
	"time"

	"bytemomo/oarfish/internal/domain"
)

const DefaultTimeout = 30 * time.Second

// Keys understood in a TLS parameter map.
const (
	TLSServerName = "server_name"
	TLSMinVersion = "min_version"
)

var tlsVersions = map[string]uint16{
	"TLS1.0": tls.VersionTLS10,
	"TLS1.1": tls.VersionTLS11,
	"TLS1.2": tls.VersionTLS12,
	"TLS1.3": tls.VersionTLS13,
}

// ParseTLSVersion accepts "TLS1.2", "tls12" and "1.2" style names.
func ParseTLSVersion(name string) (uint16, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	key = strings.TrimPrefix(key, "TLS")
	if len(key) == 2 && !strings.Contains(key, ".") {
		key = key[:1] + "." + key[1:]
	}
	if v, ok := tlsVersions["TLS"+key]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("unsupported TLS version %q", name)
}

// CheckTLSParams rejects unknown keys, non-string values and unsupported
// versions.
func CheckTLSParams(params map[string]any) error {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s, ok := params[k].(string)
		if !ok {
			return fmt.Errorf("tls.%s must be a string", k)
		}
		switch k {
		case TLSServerName:
		case TLSMinVersion:
			if _, err := ParseTLSVersion(s); err != nil {
				return fmt.Errorf("tls.%s: %w", k, err)
			}
		default:
			return fmt.Errorf("unknown tls parameter %q", k)
		}
	}
	return nil
}

// BuildTLSConfig builds a TLS config from the target's trust flag and an
// optional map of overrides. Invalid overrides are skipped; CheckTLSParams
// reports them.
func BuildTLSConfig(verify bool, params map[string]any) *tls.Config {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !verify,
	}
	if serverName, ok := params[TLSServerName].(string); ok && serverName != "" {
		cfg.ServerName = serverName
	}
	if name, ok := params[TLSMinVersion].(string); ok && name != "" {
		if v, err := ParseTLSVersion(name); err == nil {
			cfg.MinVersion = v
		}
	}
	return cfg
}

// NewHTTPClient returns a client honouring the target's trust flag and the
// TLS overrides. The client keeps cookies so that web endpoints behave like
// a browser session.
func NewHTTPClient(target domain.Target, timeout time.Duration, tlsParams map[string]any) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = BuildTLSConfig(target.VerifyTLS, tlsParams)

	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
		Jar:       jar,
	}
}
