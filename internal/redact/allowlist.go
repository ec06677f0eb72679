package redact

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"

	"github.com/BurntSushi/toml"
)

// Allowlist holds content patterns that are never redacted.
type Allowlist struct {
	Regexes []string

	compiled []*regexp.Regexp
}

// LoadAllowlist reads a gitleaks-style TOML file:
//
//	[allowlist]
//	regexes = ['''example-key-\d+''']
//
// A missing file yields an empty allowlist.
func LoadAllowlist(path string) (*Allowlist, error) {
	al := &Allowlist{}
	if path == "" {
		return al, nil
	}

	var doc struct {
		Allowlist struct {
			Regexes []string
		}
	}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return al, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, path, err)
	}

	for _, pattern := range doc.Allowlist.Regexes {
		if err := al.add(pattern); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return al, nil
}

func (a *Allowlist) add(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("%w: '%s': %v", ErrInvalidRegex, pattern, err)
	}
	a.Regexes = append(a.Regexes, pattern)
	a.compiled = append(a.compiled, re)
	return nil
}

// Allows reports whether secret matches any allowlist pattern.
func (a *Allowlist) Allows(secret string) bool {
	if a == nil {
		return false
	}
	for _, re := range a.compiled {
		if re.MatchString(secret) {
			return true
		}
	}
	return false
}
