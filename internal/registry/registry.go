// Package registry is the static, read-only table mapping a logical
// service name to the provider that serves it. Loaded once at startup
// from YAML; ${VAR} references in the file are expanded against the
// process environment so endpoint URLs can carry secrets without those
// secrets landing in the file literally.
package registry

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
)

// file is the on-disk shape of providers.yaml.
type file struct {
	Providers []gatewaytypes.Provider `yaml:"providers"`
}

// Registry resolves a logical service name to its Provider. It is built
// once at startup and never mutated afterward.
type Registry struct {
	byAlias map[string]gatewaytypes.Provider
	byChain map[uint64][]string // chain id -> ordered aliases, the "supported providers for a network" list
	order   []string            // alias declaration order, preserved for default selection
}

// Load reads a providers.yaml file, expanding ${VAR} references against
// the process environment before parsing, and validates every entry.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: reading %s: %w", path, err)
	}

	var f file
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &f); err != nil {
		return nil, fmt.Errorf("registry: parsing %s: %w", path, err)
	}

	return build(f.Providers)
}

func build(providers []gatewaytypes.Provider) (*Registry, error) {
	r := &Registry{
		byAlias: make(map[string]gatewaytypes.Provider, len(providers)),
		byChain: make(map[uint64][]string),
	}

	seenIDs := make(map[uint64]bool, len(providers))
	for _, p := range providers {
		p.Auth = parseAuthKind(p.AuthName)
		p.Hostname = deriveHostname(p)

		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("registry: %w", err)
		}
		if seenIDs[p.ProviderID] {
			return nil, fmt.Errorf("registry: duplicate provider_id %d", p.ProviderID)
		}
		if _, exists := r.byAlias[p.Alias]; exists {
			return nil, fmt.Errorf("registry: duplicate alias %q", p.Alias)
		}
		seenIDs[p.ProviderID] = true
		r.byAlias[p.Alias] = p
		r.byChain[p.ChainID] = append(r.byChain[p.ChainID], p.Alias)
		r.order = append(r.order, p.Alias)
	}

	return r, nil
}

func parseAuthKind(name string) gatewaytypes.AuthKind {
	switch strings.ToLower(name) {
	case "bearer":
		return gatewaytypes.AuthBearerToken
	case "url_param":
		return gatewaytypes.AuthURLParameter
	default:
		return gatewaytypes.AuthUnauthenticated
	}
}

func deriveHostname(p gatewaytypes.Provider) string {
	raw := p.URLTemplate
	if raw == "" {
		raw = p.PublicURL
	}
	raw = strings.TrimPrefix(raw, "https://")
	raw = strings.TrimPrefix(raw, "http://")
	if i := strings.IndexByte(raw, '/'); i >= 0 {
		raw = raw[:i]
	}
	return raw
}

// Resolve returns the provider serving the given logical service, or
// MissingRequiredProviderError when the alias is unknown.
func (r *Registry) Resolve(service string) (gatewaytypes.Provider, error) {
	p, ok := r.byAlias[service]
	if !ok {
		return gatewaytypes.Provider{}, &gatewaytypes.MissingRequiredProviderError{Service: service}
	}
	return p, nil
}

// SupportedServices returns the logical services declared for a chain, in
// the order they were declared. This is the default provider list the
// selection package ranks and trims.
func (r *Registry) SupportedServices(chainID uint64) []string {
	services := r.byChain[chainID]
	out := make([]string, len(services))
	copy(out, services)
	return out
}

// AllProviders returns every registered provider in declaration order,
// backing the admin get_providers query.
func (r *Registry) AllProviders() []gatewaytypes.Provider {
	out := make([]gatewaytypes.Provider, 0, len(r.order))
	for _, alias := range r.order {
		out = append(out, r.byAlias[alias])
	}
	return out
}
