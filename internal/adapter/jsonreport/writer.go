package jsonreport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bytemomo/oarfish/internal/domain"

	"github.com/google/uuid"
)

// Writer stores JSON artefacts under OutDir.
type Writer struct {
	OutDir string // e.g., ./output
	RunID  string
}

var _ domain.ReportWriter = (*Writer)(nil)

// New returns a writer with a fresh run id.
func New(out string) *Writer { return &Writer{OutDir: out, RunID: uuid.NewString()} }

// SaveRecords writes one model's records to <OutDir>/<model>.json.
func (w *Writer) SaveRecords(model string, records []map[string]any) (string, error) {
	if err := os.MkdirAll(w.OutDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(w.OutDir, safeName(model)+".json")
	if records == nil {
		records = []map[string]any{}
	}
	return path, writeJSON(path, records)
}

// Save writes v to <OutDir>/<name>.json.
func (w *Writer) Save(name string, v any) (string, error) {
	if err := os.MkdirAll(w.OutDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(w.OutDir, safeName(name)+".json")
	return path, writeJSON(path, v)
}

// Aggregate writes every plugin result into assessment.json.
func (w *Writer) Aggregate(all []domain.PluginResult) (string, error) {
	if err := os.MkdirAll(w.OutDir, 0o755); err != nil {
		return "", err
	}
	if all == nil {
		all = []domain.PluginResult{}
	}
	path := filepath.Join(w.OutDir, "assessment.json")
	return path, writeJSON(path, struct {
		Version     string                `json:"version"`
		RunID       string                `json:"run_id"`
		GeneratedAt time.Time             `json:"generated_at"`
		Results     []domain.PluginResult `json:"results"`
	}{
		Version:     "1.0",
		RunID:       w.RunID,
		GeneratedAt: time.Now().UTC(),
		Results:     all,
	})
}

// safeName keeps model names like "res.users" intact and replaces path
// separators.
func safeName(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(strings.TrimSpace(name))
	if name == "" {
		return "unnamed"
	}
	return name
}

func writeJSON(path string, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
