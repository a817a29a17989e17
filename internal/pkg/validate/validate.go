// Package validate checks request parameters and operator-supplied policy files.
package validate

import (
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// UsernameMaxLen bounds usernames accepted in paths and filters.
const UsernameMaxLen = 64

// PasswordMaxBytes is the longest password bcrypt can hash.
const PasswordMaxBytes = 72

// Username validates an account name from a path or query: 1-UsernameMaxLen characters of
// letters, digits, '-', '_' or '.'.
func Username(name string) bool {
	if name == "" || len(name) > UsernameMaxLen {
		return false
	}
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			continue
		}
		return false
	}
	return true
}

// Password validates a login password: non-empty and within the bcrypt input limit.
func Password(pw string) bool {
	return pw != "" && len(pw) <= PasswordMaxBytes
}

// EventType validates an audit event type filter: lowercase letters and '_', 1-64 chars.
func EventType(t string) bool {
	if t == "" || len(t) > 64 {
		return false
	}
	for _, r := range t {
		if (r >= 'a' && r <= 'z') || r == '_' {
			continue
		}
		return false
	}
	return true
}

// privilegedActions should normally be granted to admin only.
var privilegedActions = map[string]bool{
	"shutdown":        true,
	"change_ip":       true,
	"manage_users":    true,
	"manage_sessions": true,
	"view_audit":      true,
}

// PolicyWarnings parses a policy YAML document and returns warnings for risky grants:
// public endpoints, catch-all endpoint patterns and privileged actions on non-admin roles.
// Invalid YAML yields no warnings; the policy loader reports it.
func PolicyWarnings(yamlContent string) []string {
	var doc map[string]interface{}
	if err := yaml.Unmarshal([]byte(yamlContent), &doc); err != nil {
		return nil
	}
	var warnings []string
	for _, p := range toStrings(doc["public_endpoints"]) {
		warnings = append(warnings, "public_endpoints: "+p+" is reachable without authentication")
	}
	roles, _ := doc["roles"].(map[string]interface{})
	names := make([]string, 0, len(roles))
	for name := range roles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == "admin" {
			continue
		}
		spec, _ := roles[name].(map[string]interface{})
		for _, e := range toStrings(spec["endpoints"]) {
			if e == "/*" || e == "/api/*" || e == "/api/v1/*" {
				warnings = append(warnings, "roles/"+name+"/endpoints: "+e+" grants the whole API")
			}
		}
		for _, a := range toStrings(spec["actions"]) {
			if privilegedActions[strings.TrimSpace(a)] {
				warnings = append(warnings, "roles/"+name+"/actions: "+a+" is normally admin only")
			}
		}
	}
	return warnings
}

func toStrings(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
