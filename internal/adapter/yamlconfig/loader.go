package yamlconfig

import (
	"fmt"
	"os"

	"bytemomo/oarfish/internal/domain"
	"bytemomo/oarfish/internal/transport"

	"gopkg.in/yaml.v3"
)

// LoadProfile reads and validates an engagement profile.
func LoadProfile(path string) (*domain.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var profile domain.Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	if profile.ID == "" {
		profile.ID = path
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	if err := transport.CheckTLSParams(profile.Target.TLS); err != nil {
		return nil, fmt.Errorf("invalid profile %s: target: %w", path, err)
	}
	return &profile, nil
}
