package dictionary

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"bytemomo/oarfish/internal/domain"
)

var (
	// ErrNoCredentials is returned when no credentials are available after parsing.
	ErrNoCredentials = errors.New("no credentials available for dictionary attack")
	// ErrNoPairs is returned when a user:pass wordlist holds no usable pair.
	ErrNoPairs = errors.New("no valid user:pass pairs")
	// ErrNoCandidates is returned when a candidate list is empty after sanitizing.
	ErrNoCandidates = errors.New("no candidates left after sanitizing")
)

// Sanitize keeps only printable ASCII (the RPC transport cannot carry the
// rest reliably) and trims surrounding space. Sanitize is idempotent.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == 0 || r >= utf8.RuneSelf || !unicode.IsPrint(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// Unique drops repeated values, first occurrence wins.
func Unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// UniqueCredentials drops repeated pairs, first occurrence wins.
func UniqueCredentials(creds []domain.Credential) []domain.Credential {
	seen := make(map[string]struct{}, len(creds))
	out := make([]domain.Credential, 0, len(creds))
	for _, c := range creds {
		if _, ok := seen[c.Key()]; ok {
			continue
		}
		seen[c.Key()] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Clean sanitizes, drops empties and deduplicates a candidate list.
func Clean(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = Sanitize(v); v != "" {
			out = append(out, v)
		}
	}
	return Unique(out)
}

// CleanCredentials sanitizes both fields, drops pairs with an empty side and
// deduplicates.
func CleanCredentials(creds []domain.Credential) []domain.Credential {
	out := make([]domain.Credential, 0, len(creds))
	for _, c := range creds {
		c = domain.Credential{Username: Sanitize(c.Username), Password: Sanitize(c.Password)}
		if c.Username == "" || c.Password == "" {
			continue
		}
		out = append(out, c)
	}
	return UniqueCredentials(out)
}

// CrossProduct combines usernames and passwords in username-major order.
func CrossProduct(usernames, passwords []string) []domain.Credential {
	out := make([]domain.Credential, 0, len(usernames)*len(passwords))
	for _, u := range usernames {
		for _, p := range passwords {
			out = append(out, domain.Credential{Username: u, Password: p})
		}
	}
	return out
}

// BuildCredentials produces the ordered attempt sequence. Explicit pairs,
// when given, are the whole sequence and the username and password pools
// are never read.
func BuildCredentials(pairs PairSource, usernames, passwords Source) ([]domain.Credential, error) {
	if pairs != nil {
		raw, err := pairs.LoadPairs()
		if err != nil {
			return nil, err
		}
		creds := CleanCredentials(raw)
		if len(creds) == 0 {
			return nil, fmt.Errorf("%s: %w", pairs.Name(), ErrNoPairs)
		}
		return creds, nil
	}

	if usernames == nil || passwords == nil {
		return nil, ErrNoCredentials
	}
	users, err := usernames.Load()
	if err != nil {
		return nil, err
	}
	passes, err := passwords.Load()
	if err != nil {
		return nil, err
	}

	creds := UniqueCredentials(CrossProduct(Clean(users), Clean(passes)))
	if len(creds) == 0 {
		return nil, ErrNoCredentials
	}
	return creds, nil
}

// BuildCandidates loads, cleans and deduplicates a single pool.
func BuildCandidates(src Source) ([]string, error) {
	if src == nil {
		return nil, ErrNoCandidates
	}
	raw, err := src.Load()
	if err != nil {
		return nil, err
	}
	out := Clean(raw)
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", src.Name(), ErrNoCandidates)
	}
	return out, nil
}

// SplitCredential splits on the first colon. ok is false for lines without one.
func SplitCredential(entry string) (user, pass string, ok bool) {
	user, pass, ok = strings.Cut(entry, ":")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(user), strings.TrimSpace(pass), true
}
