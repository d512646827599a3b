package domain

import "fmt"

// Session is the authenticated context held by a connection. The password is
// kept only in memory for the lifetime of the connection.
type Session struct {
	Database string `json:"database"`
	UID      int    `json:"uid"`
	Username string `json:"username"`
	Password string `json:"-"`
}

func (s Session) String() string {
	return fmt.Sprintf("%s@%s (uid: %d)", s.Username, s.Database, s.UID)
}

// VersionInfo is what the target reports about itself on the
// unauthenticated version endpoint.
type VersionInfo struct {
	ServerVersion     string `json:"server_version"`
	ServerVersionInfo []any  `json:"server_version_info,omitempty"`
	ServerSerie       string `json:"server_serie,omitempty"`
	ProtocolVersion   int    `json:"protocol_version,omitempty"`
}

func (v VersionInfo) String() string {
	if v.ServerSerie != "" && v.ServerSerie != v.ServerVersion {
		return fmt.Sprintf("%s (serie %s)", v.ServerVersion, v.ServerSerie)
	}
	return v.ServerVersion
}
