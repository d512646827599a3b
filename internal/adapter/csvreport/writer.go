package csvreport

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"bytemomo/oarfish/internal/domain"
)

var header = []string{"database", "username", "password", "uid"}

// FileName is results_<YYYYMMDD_HHMMSS>.csv for t.
func FileName(t time.Time) string {
	return "results_" + t.Format("20060102_150405") + ".csv"
}

// WriteHits writes hits to dir/FileName(now) and returns the path.
func WriteHits(dir string, hits []domain.Hit, now time.Time) (_ string, err error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, h := range hits {
		if err := w.Write([]string{h.Database, h.Credential.Username, h.Credential.Password, strconv.Itoa(h.UID)}); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
