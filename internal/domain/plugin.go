package domain

import "fmt"

// PluginCategory groups plugins for listing.
type PluginCategory string

const (
	CategorySecurity     PluginCategory = "security"
	CategoryEnumeration  PluginCategory = "enumeration"
	CategoryExploitation PluginCategory = "exploitation"
	CategoryInformation  PluginCategory = "information"
	CategoryReporting    PluginCategory = "reporting"
	CategoryUnknown      PluginCategory = "unknown"
)

// Descriptor is the declared metadata of a plugin. Error is set instead of
// the metadata fields when the plugin could not be instantiated.
type Descriptor struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Description          string         `json:"description"`
	Author               string         `json:"author"`
	Version              string         `json:"version"`
	Category             PluginCategory `json:"category"`
	RequiresAuth         bool           `json:"requires_auth"`
	RequiresConnection   bool           `json:"requires_connection"`
	ExternalDependencies []string       `json:"external_dependencies,omitempty"`
	Error                string         `json:"error,omitempty"`
}

// VulnerabilityStatus is the verdict of a plugin's check phase.
type VulnerabilityStatus int

const (
	Vulnerable VulnerabilityStatus = iota + 1
	Unknown
	NotVulnerable
)

func (s VulnerabilityStatus) String() string {
	switch s {
	case Vulnerable:
		return "vulnerable"
	case Unknown:
		return "unknown"
	case NotVulnerable:
		return "not vulnerable"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// PluginOutcome is the terminal state of a plugin run.
type PluginOutcome string

const (
	OutcomeSuccess PluginOutcome = "Success"
	OutcomeAborted PluginOutcome = "Aborted"
	OutcomeFailed  PluginOutcome = "Failed"
)

// PluginResult is what a plugin run hands back to the dispatcher.
type PluginResult struct {
	Plugin   string        `json:"plugin"`
	Outcome  PluginOutcome `json:"outcome"`
	Detail   string        `json:"detail"`
	Findings []Finding     `json:"findings,omitempty"`
	Logs     []string      `json:"logs,omitempty"`
}

// Failed builds a failed result.
func Failed(plugin, format string, args ...any) PluginResult {
	return PluginResult{Plugin: plugin, Outcome: OutcomeFailed, Detail: fmt.Sprintf(format, args...)}
}
