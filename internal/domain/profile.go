package domain

import "time"

// TaskKind names one action of an engagement profile.
type TaskKind string

const (
	TaskRecon       TaskKind = "recon"
	TaskDatabases   TaskKind = "databases"
	TaskLogin       TaskKind = "login"
	TaskModels      TaskKind = "models"
	TaskModelsBrute TaskKind = "models-brute"
	TaskPermissions TaskKind = "permissions"
	TaskDump        TaskKind = "dump"
	TaskMasterBrute TaskKind = "master-brute"
	TaskPlugin      TaskKind = "plugin"
)

// Profile is a reusable engagement description run by `oarfish run`.
type Profile struct {
	ID      string        `yaml:"id"`
	Target  TargetConfig  `yaml:"target"`
	Auth    AuthConfig    `yaml:"auth,omitempty"`
	Runtime RuntimeConfig `yaml:"runtime,omitempty"`
	Tasks   []*Task       `yaml:"tasks"`
}

type TargetConfig struct {
	URL       string `yaml:"url"`
	VerifyTLS bool   `yaml:"verify_tls,omitempty"`
	// TLS holds server_name and min_version overrides.
	TLS map[string]any `yaml:"tls,omitempty"`
}

type AuthConfig struct {
	Database string `yaml:"database,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

type RuntimeConfig struct {
	Timeout time.Duration `yaml:"timeout,omitempty"`
	Rate    float64       `yaml:"rate,omitempty"`
	OutDir  string        `yaml:"out_dir,omitempty"`
}

// Task is one step of a profile. Params are interpreted per kind.
type Task struct {
	Kind   TaskKind       `yaml:"kind"`
	Plugin string         `yaml:"plugin,omitempty"`
	Params map[string]any `yaml:"params,omitempty"`
}

// String returns a param or "".
func (t *Task) String(key string) string {
	if t == nil || t.Params == nil {
		return ""
	}
	s, _ := t.Params[key].(string)
	return s
}

// Int returns an integer param or def.
func (t *Task) Int(key string, def int) int {
	if t == nil || t.Params == nil {
		return def
	}
	switch v := t.Params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

// Bool returns a boolean param or false.
func (t *Task) Bool(key string) bool {
	if t == nil || t.Params == nil {
		return false
	}
	b, _ := t.Params[key].(bool)
	return b
}
