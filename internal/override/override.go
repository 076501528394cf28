// Package override applies a single regex substitution to the final
// outbound URL, used to redirect integration tests to localhost or to
// rewrite a production hostname without touching provider declarations.
package override

import "regexp"

// Override holds one compiled pattern/replacement pair.
type Override struct {
	pattern     *regexp.Regexp
	replacement string
}

// New compiles pattern. An empty pattern means "no override configured".
func New(pattern, replacement string) (*Override, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Override{pattern: re, replacement: replacement}, nil
}

// Apply rewrites url when an override is configured; a nil Override is the
// identity transform. When an override is configured the returned headers
// are nil: outbound headers are dropped because they may carry auth for a
// host that no longer matches after the rewrite.
func (o *Override) Apply(url string, headers map[string]string) (newURL string, strippedHeaders map[string]string) {
	if o == nil {
		return url, headers
	}
	return o.pattern.ReplaceAllString(url, o.replacement), nil
}
