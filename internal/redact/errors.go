// Package redact scrubs secrets from free text before it leaves the
// process. Detection uses the gitleaks default rule set plus a few rules
// for credentials gitleaks does not know about.
package redact

import "errors"

var (
	// ErrInvalidRegex indicates an allowlist pattern failed to compile.
	ErrInvalidRegex = errors.New("invalid regex pattern")

	// ErrInvalidTOML indicates the allowlist file could not be parsed.
	ErrInvalidTOML = errors.New("invalid TOML format")
)
