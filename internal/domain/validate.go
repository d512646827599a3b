package domain

import "fmt"

// Validate checks that a profile can be executed.
func (p *Profile) Validate() error {
	if p.Target.URL == "" {
		return fmt.Errorf("target.url is required")
	}
	if len(p.Tasks) == 0 {
		return fmt.Errorf("profile must declare at least one task")
	}
	if p.Runtime.Rate < 0 {
		return fmt.Errorf("runtime.rate must not be negative")
	}
	for i, t := range p.Tasks {
		if t == nil {
			return fmt.Errorf("task %d is nil", i)
		}
		if err := t.Validate(p.Auth); err != nil {
			return fmt.Errorf("task %d (%s): %w", i, t.Kind, err)
		}
	}
	return nil
}

// Validate checks the task against the profile's credentials.
func (t *Task) Validate(auth AuthConfig) error {
	switch t.Kind {
	case TaskRecon, TaskDatabases, TaskMasterBrute:
	case TaskLogin:
		if auth.Database == "" {
			return fmt.Errorf("auth.database is required")
		}
	case TaskModels, TaskModelsBrute, TaskPermissions, TaskDump:
		if auth.Database == "" || auth.Username == "" || auth.Password == "" {
			return fmt.Errorf("auth.database, auth.username and auth.password are required")
		}
		if (t.Kind == TaskDump || t.Kind == TaskPermissions) && t.String("models") == "" {
			return fmt.Errorf("params.models is required")
		}
	case TaskPlugin:
		if t.Plugin == "" {
			return fmt.Errorf("plugin is required")
		}
	default:
		return fmt.Errorf("unknown task kind %q", t.Kind)
	}
	return nil
}
