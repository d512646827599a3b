package transport

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// Fault is an RPC-level error returned by the target. Code is kept as text
// because some server versions send string fault codes.
type Fault struct {
	Code    string
	Message string
}

func (f *Fault) Error() string {
	if f.Code == "" {
		return "fault: " + firstLine(f.Message)
	}
	return fmt.Sprintf("fault %s: %s", f.Code, firstLine(f.Message))
}

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return "unexpected http status: " + e.Status
}

var faultStringRx = regexp.MustCompile(`(?s)<name>\s*faultString\s*</name>\s*<value>\s*(?:<string>)?(.*?)(?:</string>)?\s*</value>`)

func faultStringFromBody(body []byte) string {
	m := faultStringRx.FindSubmatch(body)
	if m == nil {
		return strings.TrimSpace(string(body))
	}
	return html.UnescapeString(string(m[1]))
}

// firstLine keeps error strings short; server tracebacks span many lines.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if len(lines) > 1 && last != "" {
		return last
	}
	return strings.TrimSpace(lines[0])
}
