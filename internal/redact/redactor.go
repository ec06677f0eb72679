package redact

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sprintai/internal/config"
)

// extraRule covers a credential format the gitleaks defaults miss.
type extraRule struct {
	id      string
	pattern *regexp.Regexp
}

var extraRules = []extraRule{
	{id: "groq-api-key", pattern: regexp.MustCompile(`gsk_[A-Za-z0-9]{20,}`)},
	{id: "bearer-token", pattern: regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]{20,}=*`)},
}

// Finding is one detected secret. The secret value itself is not kept.
type Finding struct {
	RuleID string
	Length int
}

// Result is the outcome of a Redact call.
type Result struct {
	Content  string
	Findings []Finding
}

// Redactor replaces detected secrets with [REDACTED:rule-id] markers.
// A nil or disabled Redactor returns text unchanged.
type Redactor struct {
	enabled   bool
	base      gitleaksConfig.Config
	allowlist *Allowlist
	logger    *zap.Logger
}

// Options configures New.
type Options struct {
	Enabled       bool
	AllowlistPath string
}

// FromSettings maps the redact section of the application config.
func FromSettings(c config.RedactConfig) Options {
	return Options{Enabled: c.Enabled, AllowlistPath: c.AllowlistPath}
}

// New loads the gitleaks default rules and the optional allowlist.
func New(opts Options, logger *zap.Logger) (*Redactor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Redactor{enabled: opts.Enabled, logger: logger}
	if !opts.Enabled {
		return r, nil
	}

	path, err := config.ExpandHome(opts.AllowlistPath)
	if err != nil {
		return nil, fmt.Errorf("resolve allowlist path: %w", err)
	}
	r.allowlist, err = LoadAllowlist(path)
	if err != nil {
		return nil, fmt.Errorf("loading allowlist: %w", err)
	}

	// Parse the embedded gitleaks config once and build a fresh detector
	// per call from it.
	d, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("loading gitleaks rules: %w", err)
	}
	r.base = d.Config
	return r, nil
}

// Enabled reports whether redaction is active.
func (r *Redactor) Enabled() bool {
	return r != nil && r.enabled
}

// Scrub returns content with secrets replaced.
func (r *Redactor) Scrub(content string) string {
	return r.Redact(content).Content
}

// Redact detects secrets in content and replaces every occurrence.
func (r *Redactor) Redact(content string) Result {
	if !r.Enabled() || content == "" {
		return Result{Content: content}
	}

	secrets := make(map[string]string)
	for _, f := range detect.NewDetector(r.base).DetectString(content) {
		if f.Secret != "" && !r.allowlist.Allows(f.Secret) {
			secrets[f.Secret] = f.RuleID
		}
	}
	for _, rule := range extraRules {
		for _, m := range rule.pattern.FindAllString(content, -1) {
			if _, seen := secrets[m]; !seen && !r.allowlist.Allows(m) {
				secrets[m] = rule.id
			}
		}
	}
	if len(secrets) == 0 {
		return Result{Content: content}
	}

	// Longest first so a secret embedded in a longer one is not split.
	keys := make([]string, 0, len(secrets))
	for k := range secrets {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})

	out := content
	findings := make([]Finding, 0, len(keys))
	for _, k := range keys {
		if !strings.Contains(out, k) {
			continue
		}
		out = strings.ReplaceAll(out, k, "[REDACTED:"+secrets[k]+"]")
		findings = append(findings, Finding{RuleID: secrets[k], Length: len(k)})
	}

	r.logger.Debug("secrets redacted", zap.Int("count", len(findings)))
	return Result{Content: out, Findings: findings}
}
