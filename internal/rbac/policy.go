package rbac

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicyYAML []byte

type policyFile struct {
	PublicEndpoints []string             `yaml:"public_endpoints"`
	ActionEndpoints []actionEndpointSpec `yaml:"action_endpoints"`
	Roles           map[string]roleSpec  `yaml:"roles"`
}

type actionEndpointSpec struct {
	Method string `yaml:"method"`
	Path   string `yaml:"path"`
	Action string `yaml:"action"`
}

type roleSpec struct {
	Pages     []string `yaml:"pages"`
	Actions   []string `yaml:"actions"`
	Endpoints []string `yaml:"endpoints"`
	Menu      Menu     `yaml:"menu"`
}

type roleTable struct {
	pages     map[string]struct{}
	actions   map[string]struct{}
	endpoints []EndpointRule
	menu      Menu
	menuTree  *menuNode
}

type actionRoute struct {
	method string
	rule   EndpointRule
	action string
}

// Policy is the immutable permission model. All methods are safe for concurrent use.
type Policy struct {
	roles        map[Role]*roleTable
	public       []EndpointRule
	actionRoutes []actionRoute
}

// Default returns the embedded policy.
func Default() *Policy {
	p, err := Load(bytes.NewReader(defaultPolicyYAML))
	if err != nil {
		panic(fmt.Sprintf("rbac: embedded policy is invalid: %v", err))
	}
	return p
}

// LoadFile reads a policy from path.
func LoadFile(path string) (*Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open policy: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a YAML policy. Unknown keys, unknown roles, pages or actions, and malformed
// endpoint patterns are rejected.
func Load(r io.Reader) (*Policy, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var pf policyFile
	if err := dec.Decode(&pf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("policy is empty")
		}
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	return build(pf)
}

func build(pf policyFile) (*Policy, error) {
	p := &Policy{roles: make(map[Role]*roleTable, len(AllRoles))}

	for name, spec := range pf.Roles {
		role, err := ParseRole(name)
		if err != nil {
			return nil, err
		}
		t, err := buildRoleTable(role, spec)
		if err != nil {
			return nil, err
		}
		p.roles[role] = t
	}
	for _, role := range AllRoles {
		if _, ok := p.roles[role]; !ok {
			return nil, fmt.Errorf("policy: role %q is not defined", role)
		}
	}

	public, err := parseEndpointRules(pf.PublicEndpoints)
	if err != nil {
		return nil, fmt.Errorf("policy: public_endpoints: %w", err)
	}
	p.public = public

	for _, ae := range pf.ActionEndpoints {
		method := strings.ToUpper(strings.TrimSpace(ae.Method))
		switch method {
		case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			return nil, fmt.Errorf("policy: action endpoint %q: unsupported method %q", ae.Path, ae.Method)
		}
		rule, err := ParseEndpointRule(ae.Path)
		if err != nil {
			return nil, fmt.Errorf("policy: action_endpoints: %w", err)
		}
		if _, ok := knownActions[ae.Action]; !ok {
			return nil, fmt.Errorf("policy: action endpoint %s %s: unknown action %q", method, ae.Path, ae.Action)
		}
		p.actionRoutes = append(p.actionRoutes, actionRoute{method: method, rule: rule, action: ae.Action})
	}
	return p, nil
}

func buildRoleTable(role Role, spec roleSpec) (*roleTable, error) {
	t := &roleTable{
		pages:    make(map[string]struct{}, len(spec.Pages)),
		actions:  make(map[string]struct{}, len(spec.Actions)),
		menu:     spec.Menu,
		menuTree: spec.Menu.tree(),
	}
	for _, page := range spec.Pages {
		if _, ok := knownPages[page]; !ok {
			return nil, fmt.Errorf("policy: role %s: unknown page %q", role, page)
		}
		t.pages[page] = struct{}{}
	}
	for _, action := range spec.Actions {
		if _, ok := knownActions[action]; !ok {
			return nil, fmt.Errorf("policy: role %s: unknown action %q", role, action)
		}
		t.actions[action] = struct{}{}
	}
	rules, err := parseEndpointRules(spec.Endpoints)
	if err != nil {
		return nil, fmt.Errorf("policy: role %s: %w", role, err)
	}
	t.endpoints = rules
	return t, nil
}

func (p *Policy) table(role Role) *roleTable {
	if p == nil {
		return nil
	}
	return p.roles[role]
}

// CanAccessPage reports whether role may open pageID. Unknown roles get false.
func (p *Policy) CanAccessPage(role Role, pageID string) bool {
	t := p.table(role)
	if t == nil {
		return false
	}
	_, ok := t.pages[pageID]
	return ok
}

// CanPerformAction reports whether role may perform actionID.
func (p *Policy) CanPerformAction(role Role, actionID string) bool {
	t := p.table(role)
	if t == nil {
		return false
	}
	_, ok := t.actions[actionID]
	return ok
}

// CanAccessEndpoint reports whether any endpoint rule of role matches path.
func (p *Policy) CanAccessEndpoint(role Role, path string) bool {
	t := p.table(role)
	if t == nil {
		return false
	}
	return matchAny(t.endpoints, path)
}

// MenuVisible resolves a dotted menu path such as "services.mqtt".
func (p *Policy) MenuVisible(role Role, dotPath string) bool {
	t := p.table(role)
	if t == nil {
		return false
	}
	return t.menuTree.lookup(dotPath)
}

// Menu returns the menu of role and whether the role is known.
func (p *Policy) Menu(role Role) (Menu, bool) {
	t := p.table(role)
	if t == nil {
		return Menu{}, false
	}
	return t.menu, true
}

// Pages returns the sorted page ids granted to role.
func (p *Policy) Pages(role Role) []string {
	return sortedKeys(p.table(role), func(t *roleTable) map[string]struct{} { return t.pages })
}

// Actions returns the sorted action ids granted to role.
func (p *Policy) Actions(role Role) []string {
	return sortedKeys(p.table(role), func(t *roleTable) map[string]struct{} { return t.actions })
}

// Endpoints returns the endpoint rules of role in declaration order.
func (p *Policy) Endpoints(role Role) []EndpointRule {
	t := p.table(role)
	if t == nil {
		return nil
	}
	out := make([]EndpointRule, len(t.endpoints))
	copy(out, t.endpoints)
	return out
}

// IsPublicEndpoint reports whether path needs no authentication.
func (p *Policy) IsPublicEndpoint(path string) bool {
	if p == nil {
		return false
	}
	return matchAny(p.public, path)
}

// ActionFor returns the action a method and path additionally require, if any. An exact route
// beats any prefix route; among prefix routes the longest prefix wins.
func (p *Policy) ActionFor(method, path string) (string, bool) {
	if p == nil {
		return "", false
	}
	method = strings.ToUpper(method)
	var best *actionRoute
	for i := range p.actionRoutes {
		ar := &p.actionRoutes[i]
		if ar.method != method || !ar.rule.Matches(path) {
			continue
		}
		if ar.rule.Kind == MatchExact {
			return ar.action, true
		}
		if best == nil || len(ar.rule.Path) > len(best.rule.Path) {
			best = ar
		}
	}
	if best == nil {
		return "", false
	}
	return best.action, true
}

func sortedKeys(t *roleTable, pick func(*roleTable) map[string]struct{}) []string {
	if t == nil {
		return nil
	}
	m := pick(t)
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
