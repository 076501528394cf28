// Package gatewaytypes holds the data model shared by every gateway
// component: providers, consensus strategies, the on-the-wire JSON-RPC
// envelope, and the error taxonomy components surface to callers.
package gatewaytypes

import (
	"fmt"
	"strings"
)

// AuthKind tags how a Provider authenticates outbound requests.
type AuthKind int

const (
	// AuthUnauthenticated providers are reached through PublicURL with no
	// credentials attached.
	AuthUnauthenticated AuthKind = iota
	// AuthBearerToken providers receive an `Authorization: Bearer <key>` header.
	AuthBearerToken
	// AuthURLParameter providers have the key substituted into URLTemplate
	// at the "{API_KEY}" placeholder.
	AuthURLParameter
)

// Provider is one upstream JSON-RPC endpoint. Providers are immutable at
// runtime: the registry loads them once at startup and never mutates them.
type Provider struct {
	ProviderID  uint64   `yaml:"provider_id"`
	ChainID     uint64   `yaml:"chain_id"`
	Alias       string   `yaml:"alias"` // logical service tag, e.g. "EthMainnet::Ankr"
	Auth        AuthKind `yaml:"-"`
	AuthName    string   `yaml:"auth"` // "none" | "bearer" | "url_param"
	URLTemplate string   `yaml:"url_template,omitempty"`
	PublicURL   string   `yaml:"public_url,omitempty"`
	Hostname    string   `yaml:"-"` // derived from URLTemplate or PublicURL
}

// Validate checks a Provider declaration's invariants: URL-parameter
// providers must carry the "{API_KEY}" placeholder, bearer providers must
// not.
func (p Provider) Validate() error {
	const placeholder = "{API_KEY}"
	switch p.Auth {
	case AuthURLParameter:
		if !strings.Contains(p.URLTemplate, placeholder) {
			return fmt.Errorf("provider %s: url_param auth requires %s in url_template", p.Alias, placeholder)
		}
	case AuthBearerToken:
		if strings.Contains(p.URLTemplate, placeholder) {
			return fmt.Errorf("provider %s: bearer auth must not embed %s", p.Alias, placeholder)
		}
	}
	return nil
}
