package gatewaytypes

import "fmt"

// Every failure class the gateway surfaces is its own exported type so
// callers can discriminate with errors.As instead of string matching.

// NoPermissionError: caller lacks admin permission.
type NoPermissionError struct{ Principal string }

func (e *NoPermissionError) Error() string {
	return fmt.Sprintf("principal %q has no permission to manage API keys", e.Principal)
}

// TooFewCyclesError: the cost pre-check failed; no HTTP traffic was generated.
type TooFewCyclesError struct{ Expected, Received uint64 }

func (e *TooFewCyclesError) Error() string {
	return fmt.Sprintf("too few cycles: expected %d, received %d", e.Expected, e.Received)
}

// ProviderNotFoundError: the user hint names an unknown service, or an
// empty provider list was supplied.
type ProviderNotFoundError struct{ Service string }

func (e *ProviderNotFoundError) Error() string {
	if e.Service == "" {
		return "provider set is empty"
	}
	return fmt.Sprintf("unknown logical service %q", e.Service)
}

// MissingRequiredProviderError: Provider Registry lookup failed.
type MissingRequiredProviderError struct{ Service string }

func (e *MissingRequiredProviderError) Error() string {
	return fmt.Sprintf("no provider registered for service %q", e.Service)
}

// InvalidRpcConfigError: Threshold strategy validation failed.
type InvalidRpcConfigError struct{ Reason string }

func (e *InvalidRpcConfigError) Error() string { return "invalid rpc config: " + e.Reason }

// IcErrorCode enumerates the transport-layer failure classes.
type IcErrorCode int

const (
	CodeSysFatal IcErrorCode = iota
	CodeSysTransient
	CodeDestinationInvalid
	CodeCanisterReject
	CodeCanisterError
	CodeUnknown
)

// IcError: the outbound transport failed. Retryable marks an error whose
// message matched the oversize pattern ("size limit" / "length limit").
type IcError struct {
	Code      IcErrorCode
	Message   string
	Retryable bool
}

func (e *IcError) Error() string { return fmt.Sprintf("transport error (%d): %s", e.Code, e.Message) }

// InvalidHttpJsonRpcResponseError: non-2xx status, malformed body, or an
// id/jsonrpc mismatch between request and response.
type InvalidHttpJsonRpcResponseError struct {
	Status       int
	Body         string
	ParsingError string
}

func (e *InvalidHttpJsonRpcResponseError) Error() string {
	if e.ParsingError != "" {
		return fmt.Sprintf("invalid json-rpc response (status %d): %s", e.Status, e.ParsingError)
	}
	return fmt.Sprintf("invalid json-rpc response: status %d", e.Status)
}

// JsonRpcError: the upstream returned a well-formed `error` envelope.
type JsonRpcError struct {
	Code    int64
	Message string
}

func (e *JsonRpcError) Error() string { return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message) }

// ValidationError: input failed validation before any HTTP traffic left
// the system (e.g. a get_logs block range that exceeds the configured max).
type ValidationError struct{ Reason string }

func (e *ValidationError) Error() string { return "validation error: " + e.Reason }

// NoApiKeyError: authentication required a key, none was configured, and
// no public fallback URL exists for the provider.
type NoApiKeyError struct{ Provider string }

func (e *NoApiKeyError) Error() string {
	return fmt.Sprintf("no api key configured for provider %q and no public fallback", e.Provider)
}

// UnsupportedHttpMethodError: the request builder was asked for a method
// outside {GET, POST, HEAD}.
type UnsupportedHttpMethodError struct{ Method string }

func (e *UnsupportedHttpMethodError) Error() string {
	return fmt.Sprintf("unsupported http method %q", e.Method)
}

// InvalidHttpHeaderError: a header name or value was not valid US-ASCII
// per RFC 7230.
type InvalidHttpHeaderError struct{ Name, Reason string }

func (e *InvalidHttpHeaderError) Error() string {
	return fmt.Sprintf("invalid header %q: %s", e.Name, e.Reason)
}
