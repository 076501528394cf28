// Package reqbuilder turns a typed JSON-RPC request and a resolved
// provider into concrete HTTP call parameters: body serialization, auth
// substitution, the URL override, and header validation.
package reqbuilder

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
	"github.com/dmagro/eth-rpc-gateway/internal/override"
)

// Input bundles everything Build needs beyond the typed request and
// provider: the caller's API key (if any), the response size budget and
// transform tag for this attempt, and an optional URL override.
type Input struct {
	Request          gatewaytypes.Request
	Provider         gatewaytypes.Provider
	APIKey           *string
	MaxResponseBytes uint64
	Transform        gatewaytypes.TransformTag
	Headers          map[string]string // extra caller-supplied headers, merged before validation
	Override         *override.Override
}

// Build produces the HTTP call parameters for one outbound request.
func Build(in Input) (gatewaytypes.HTTPCallParams, error) {
	body, err := json.Marshal(in.Request)
	if err != nil {
		return gatewaytypes.HTTPCallParams{}, fmt.Errorf("reqbuilder: marshaling request: %w", err)
	}

	headers := make(map[string]string, len(in.Headers)+2)
	for k, v := range in.Headers {
		headers[k] = v
	}
	if !hasHeaderCaseInsensitive(headers, "Content-Type") {
		headers["Content-Type"] = "application/json"
	}

	url, err := applyAuth(in, headers)
	if err != nil {
		return gatewaytypes.HTTPCallParams{}, err
	}

	url, headers = applyOverride(in.Override, url, headers)

	if err := validateHeaders(headers); err != nil {
		return gatewaytypes.HTTPCallParams{}, err
	}

	return gatewaytypes.HTTPCallParams{
		URL:              url,
		Method:           gatewaytypes.MethodPOST,
		Headers:          headers,
		Body:             body,
		MaxResponseBytes: in.MaxResponseBytes,
		Transform:        in.Transform,
	}, nil
}

func applyAuth(in Input, headers map[string]string) (string, error) {
	p := in.Provider

	switch p.Auth {
	case gatewaytypes.AuthURLParameter:
		if in.APIKey != nil {
			return strings.ReplaceAll(p.URLTemplate, "{API_KEY}", *in.APIKey), nil
		}
		if p.PublicURL != "" {
			return p.PublicURL, nil
		}
		return "", &gatewaytypes.NoApiKeyError{Provider: p.Alias}

	case gatewaytypes.AuthBearerToken:
		if in.APIKey != nil {
			headers["Authorization"] = "Bearer " + *in.APIKey
			return p.URLTemplate, nil
		}
		if p.PublicURL != "" {
			return p.PublicURL, nil
		}
		return "", &gatewaytypes.NoApiKeyError{Provider: p.Alias}

	default: // AuthUnauthenticated
		return p.PublicURL, nil
	}
}

func applyOverride(ov *override.Override, url string, headers map[string]string) (string, map[string]string) {
	newURL, newHeaders := ov.Apply(url, headers)
	return newURL, newHeaders
}

func hasHeaderCaseInsensitive(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// validateHeaders enforces RFC 7230 field-value restrictions: printable
// US-ASCII, no control characters other than a tab inside a value.
func validateHeaders(headers map[string]string) error {
	for name, value := range headers {
		if !isValidHeaderToken(name) {
			return &gatewaytypes.InvalidHttpHeaderError{Name: name, Reason: "header name is not valid US-ASCII"}
		}
		if !isValidHeaderValue(value) {
			return &gatewaytypes.InvalidHttpHeaderError{Name: name, Reason: "header value is not valid US-ASCII"}
		}
	}
	return nil
}

func isValidHeaderToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r <= 32 || r >= 127 {
			return false
		}
	}
	return true
}

func isValidHeaderValue(s string) bool {
	for _, r := range s {
		if (r < 32 && r != '\t') || r >= 127 {
			return false
		}
	}
	return true
}
