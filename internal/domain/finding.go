package domain

import "time"

// Finding is a security finding that has been identified during a run.
type Finding struct {
	ID          string         `json:"id"`
	Source      string         `json:"source"`
	Success     bool           `json:"success"`
	Title       string         `json:"title"`
	Severity    string         `json:"severity"`
	Description string         `json:"description"`
	Evidence    map[string]any `json:"evidence,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Target      string         `json:"target"`
}
