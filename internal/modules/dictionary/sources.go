package dictionary

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"strings"

	"bytemomo/oarfish/internal/domain"
)

//go:embed data/*.txt
var embedded embed.FS

// Source yields one pool of candidate strings.
type Source interface {
	Name() string
	Load() ([]string, error)
}

// PairSource yields explicit username/password pairs.
type PairSource interface {
	Name() string
	LoadPairs() ([]domain.Credential, error)
}

// FileSource reads one candidate per line.
type FileSource struct {
	Path string
}

func (f FileSource) Name() string { return f.Path }

func (f FileSource) Load() ([]string, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read wordlist: %w", err)
	}
	defer file.Close()
	return readLines(file)
}

// StaticSource is an in-memory pool.
type StaticSource struct {
	Label  string
	Values []string
}

func (s StaticSource) Name() string { return s.Label }

func (s StaticSource) Load() ([]string, error) {
	return append([]string(nil), s.Values...), nil
}

// PairFile reads "user:pass" lines. Lines without a colon are ignored.
type PairFile struct {
	Path string
}

func (p PairFile) Name() string { return p.Path }

func (p PairFile) LoadPairs() ([]domain.Credential, error) {
	lines, err := FileSource{Path: p.Path}.Load()
	if err != nil {
		return nil, err
	}
	return ParsePairs(lines), nil
}

// StaticPairs is an in-memory list of "user:pass" entries.
type StaticPairs struct {
	Label   string
	Entries []string
}

func (s StaticPairs) Name() string { return s.Label }

func (s StaticPairs) LoadPairs() ([]domain.Credential, error) {
	return ParsePairs(s.Entries), nil
}

// ParsePairs keeps the lines that contain a colon.
func ParsePairs(lines []string) []domain.Credential {
	var creds []domain.Credential
	for _, line := range lines {
		user, pass, ok := SplitCredential(line)
		if !ok {
			continue
		}
		creds = append(creds, domain.Credential{Username: user, Password: pass})
	}
	return creds
}

// DefaultUsernames is the built-in username list.
func DefaultUsernames() Source { return embeddedSource("usernames") }

// DefaultPasswords is the built-in password list.
func DefaultPasswords() Source { return embeddedSource("passwords") }

// DefaultDatabases is the built-in database-name list.
func DefaultDatabases() Source { return embeddedSource("databases") }

// DefaultModels is the built-in model-name list.
func DefaultModels() Source { return embeddedSource("models") }

type embeddedSource string

func (e embeddedSource) Name() string { return "default " + string(e) }

func (e embeddedSource) Load() ([]string, error) {
	data, err := embedded.ReadFile("data/" + string(e) + ".txt")
	if err != nil {
		return nil, fmt.Errorf("read default %s: %w", string(e), err)
	}
	return readLines(bytes.NewReader(data))
}

// OrDefault returns a FileSource for path, or def when path is empty.
func OrDefault(path string, def Source) Source {
	if strings.TrimSpace(path) == "" {
		return def
	}
	return FileSource{Path: path}
}

// ListSource treats value as a file path when such a file exists and as a
// comma-separated list otherwise.
func ListSource(value string) Source {
	if info, err := os.Stat(value); err == nil && !info.IsDir() {
		return FileSource{Path: value}
	}
	return StaticSource{Label: "list", Values: strings.Split(value, ",")}
}

// FromFiles builds the attempt sequence from optional file paths. A
// wordlist of pairs wins; missing pools fall back to the built-in lists.
func FromFiles(wordlist, usernames, passwords string) ([]domain.Credential, error) {
	var pairs PairSource
	if strings.TrimSpace(wordlist) != "" {
		pairs = PairFile{Path: wordlist}
	}
	return BuildCredentials(pairs, OrDefault(usernames, DefaultUsernames()), OrDefault(passwords, DefaultPasswords()))
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.ToValidUTF8(scanner.Text(), ""))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan wordlist: %w", err)
	}
	return out, nil
}
