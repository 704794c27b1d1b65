package guard

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jrsteele09/lingo-web/users"
	"gopkg.in/yaml.v3"
)

//go:embed default_policy.yaml
var defaultPolicy []byte

// Route binds a path prefix to a Requirement.
type Route struct {
	Path        string `yaml:"path"`
	Requirement `yaml:",inline"`
}

// UnmarshalYAML treats a route without requireAuth as requiring sign in, so
// only an explicit requireAuth: false makes a path public.
func (r *Route) UnmarshalYAML(value *yaml.Node) error {
	type plain Route
	p := plain{Requirement: Authenticated()}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*r = Route(p)
	return nil
}

// Policy maps request paths to requirements by longest matching prefix.
// Paths not covered by any route require a signed in user.
type Policy struct {
	routes []Route
}

type policyFile struct {
	Routes []Route `yaml:"routes"`
}

// LoadPolicy reads a YAML route table and rejects unknown roles.
func LoadPolicy(r io.Reader) (*Policy, error) {
	var pf policyFile
	if err := yaml.NewDecoder(r).Decode(&pf); err != nil {
		return nil, fmt.Errorf("[guard LoadPolicy] decoding: %w", err)
	}
	for _, route := range pf.Routes {
		if !strings.HasPrefix(route.Path, "/") {
			return nil, fmt.Errorf("[guard LoadPolicy] path %q must start with /", route.Path)
		}
		for _, role := range route.AllowedRoles {
			if _, err := users.ParseRole(string(role)); err != nil {
				return nil, fmt.Errorf("[guard LoadPolicy] route %s: %w", route.Path, err)
			}
		}
	}

	routes := append([]Route(nil), pf.Routes...)
	sort.SliceStable(routes, func(i, j int) bool {
		return len(routes[i].Path) > len(routes[j].Path)
	})
	return &Policy{routes: routes}, nil
}

// DefaultPolicy is the route table compiled into the binary.
func DefaultPolicy() *Policy {
	p, err := LoadPolicy(strings.NewReader(string(defaultPolicy)))
	if err != nil {
		panic("Failed to load default route policy: " + err.Error())
	}
	return p
}

// LoadPolicyFile overrides the default table; an empty path keeps the default.
func LoadPolicyFile(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("[guard LoadPolicyFile] %w", err)
	}
	defer f.Close()
	return LoadPolicy(f)
}

// For returns the requirement of the most specific route covering path.
func (p *Policy) For(path string) Requirement {
	for _, route := range p.routes {
		if matches(route.Path, path) {
			return route.Requirement
		}
	}
	return Authenticated()
}

func matches(prefix, path string) bool {
	if prefix == "/" {
		return path == "/"
	}
	return path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/")
}
