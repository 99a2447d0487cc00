package usecase

import (
	"log/slog"
	"net/url"
	"strings"

	"mentora/internal/logger"
)

const (
	originWildcard = "*"

	ruleAbsent    = "absent"
	ruleExact     = "exact"
	ruleWildcard  = "wildcard"
	rulePreview   = "preview"
	ruleLoopback  = "loopback"
	ruleNone      = "none"
	ruleMalformed = "malformed"
	rulePanic     = "panic"
	ruleAudit     = "audit_failed"
)

// OriginPolicy is the allow-list configuration. It is built once at startup
// and never mutated.
type OriginPolicy struct {
	AllowedOrigins []string
	// PreviewDomain is the hosting provider's wildcard domain, e.g. "vercel.app".
	PreviewDomain string
	// ProjectToken must appear in a preview subdomain for it to be trusted.
	ProjectToken string
}

// OriginAuthorizer decides whether an Origin may receive a cross-origin
// response. Allowed is safe for concurrent use.
type OriginAuthorizer struct {
	exact         map[string]struct{}
	allowed       []string
	wildcard      bool
	previewSuffix string
	projectToken  string
	logger        *slog.Logger
}

func NewOriginAuthorizer(policy OriginPolicy, log *slog.Logger) *OriginAuthorizer {
	a := &OriginAuthorizer{
		exact:        make(map[string]struct{}, len(policy.AllowedOrigins)),
		allowed:      make([]string, 0, len(policy.AllowedOrigins)),
		projectToken: strings.ToLower(strings.TrimSpace(policy.ProjectToken)),
		logger:       logger.OrDefault(log),
	}
	for _, origin := range policy.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == originWildcard {
			a.wildcard = true
		}
		a.exact[origin] = struct{}{}
		a.allowed = append(a.allowed, origin)
	}
	if domain := strings.Trim(strings.ToLower(strings.TrimSpace(policy.PreviewDomain)), "."); domain != "" {
		a.previewSuffix = "." + domain
	}
	return a
}

// AllowedOrigins returns a copy of the configured exact allow-list.
func (a *OriginAuthorizer) AllowedOrigins() []string {
	return append([]string(nil), a.allowed...)
}

// Allowed applies the rules in order and returns the first match. Anything
// that goes wrong while evaluating resolves to deny, and a permit that must be
// audited is withdrawn when the audit record cannot be written.
func (a *OriginAuthorizer) Allowed(origin string) (allowed bool) {
	rule := ruleNone
	defer func() {
		if r := recover(); r != nil {
			allowed, rule = false, rulePanic
		}
		if !a.audit(origin, rule, allowed) && allowed {
			allowed = false
			a.audit(origin, ruleAudit, false)
		}
	}()
	allowed, rule = a.evaluate(origin)
	return allowed
}

func (a *OriginAuthorizer) evaluate(origin string) (bool, string) {
	if origin == "" {
		return true, ruleAbsent
	}
	if _, ok := a.exact[origin]; ok {
		return true, ruleExact
	}
	if a.wildcard {
		return true, ruleWildcard
	}

	u, ok := parseOrigin(origin)
	if !ok {
		return false, ruleMalformed
	}
	host := strings.ToLower(u.Hostname())

	if a.previewSuffix != "" && a.projectToken != "" && u.Scheme == "https" && strings.HasSuffix(host, a.previewSuffix) {
		subdomain := strings.TrimSuffix(host, a.previewSuffix)
		if subdomain != "" && strings.Contains(subdomain, a.projectToken) {
			return true, rulePreview
		}
	}

	if u.Scheme == "http" && (host == "localhost" || host == "127.0.0.1") {
		return true, ruleLoopback
	}
	return false, ruleNone
}

// parseOrigin accepts scheme://host[:port] with nothing else attached.
func parseOrigin(origin string) (*url.URL, bool) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, false
	}
	if u.Scheme == "" || u.Host == "" || u.Hostname() == "" || u.User != nil {
		return nil, false
	}
	if u.Path != "" && u.Path != "/" {
		return nil, false
	}
	if u.RawQuery != "" || u.Fragment != "" || u.Opaque != "" {
		return nil, false
	}
	if port := u.Port(); port != "" && !isDigits(port) {
		return nil, false
	}
	return u, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// audit reports false when the record could not be written. A panicking log
// sink is contained here.
func (a *OriginAuthorizer) audit(origin, rule string, allowed bool) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	switch {
	case !allowed:
		a.logger.Warn("cors origin denied", "origin", origin, "rule", rule, "allowed_origins", a.allowed)
	case rule == rulePreview:
		a.logger.Info("cors origin allowed by preview rule", "origin", origin, "allowed_origins", a.allowed)
	}
	return true
}
