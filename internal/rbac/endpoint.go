package rbac

import (
	"fmt"
	"strings"
)

// MatchKind distinguishes exact endpoint rules from prefix rules.
type MatchKind int

const (
	MatchExact MatchKind = iota
	MatchPrefix
)

func (k MatchKind) String() string {
	if k == MatchPrefix {
		return "prefix"
	}
	return "exact"
}

// EndpointRule is a parsed endpoint pattern. "/api/v1/monitoring/*" becomes a prefix rule on
// "/api/v1/monitoring"; anything without the "/*" suffix is matched exactly.
type EndpointRule struct {
	Kind MatchKind
	Path string
}

// ParseEndpointRule validates and parses a pattern.
func ParseEndpointRule(pattern string) (EndpointRule, error) {
	p := strings.TrimSpace(pattern)
	if !strings.HasPrefix(p, "/") {
		return EndpointRule{}, fmt.Errorf("endpoint pattern %q must start with /", pattern)
	}
	if strings.HasSuffix(p, "/*") {
		prefix := strings.TrimSuffix(p, "/*")
		if strings.Contains(prefix, "*") {
			return EndpointRule{}, fmt.Errorf("endpoint pattern %q: * is only allowed as a trailing /*", pattern)
		}
		return EndpointRule{Kind: MatchPrefix, Path: prefix}, nil
	}
	if strings.Contains(p, "*") {
		return EndpointRule{}, fmt.Errorf("endpoint pattern %q: * is only allowed as a trailing /*", pattern)
	}
	return EndpointRule{Kind: MatchExact, Path: p}, nil
}

// Matches reports whether path is covered by the rule. A prefix rule matches any path that
// starts with its prefix, so "/api/v1/monitoring/*" also covers "/api/v1/monitoringx".
func (r EndpointRule) Matches(path string) bool {
	if r.Kind == MatchExact {
		return path == r.Path
	}
	return strings.HasPrefix(path, r.Path)
}

func (r EndpointRule) String() string {
	if r.Kind == MatchPrefix {
		return r.Path + "/*"
	}
	return r.Path
}

func parseEndpointRules(patterns []string) ([]EndpointRule, error) {
	rules := make([]EndpointRule, 0, len(patterns))
	for _, p := range patterns {
		rule, err := ParseEndpointRule(p)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func matchAny(rules []EndpointRule, path string) bool {
	for _, rule := range rules {
		if rule.Matches(path) {
			return true
		}
	}
	return false
}
