// Package transport is the concrete outbound HTTP layer the call package
// submits through. It enforces the per-attempt response-size ceiling,
// classifies failures into the transport error taxonomy, and guards each
// provider host with its own circuit breaker and token-bucket rate
// limiter, since providers fail independently of one another.
package transport

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
)

// Transport is the submit seam the call layer depends on; tests
// substitute a fake.
type Transport interface {
	Submit(ctx context.Context, params gatewaytypes.HTTPCallParams) (*gatewaytypes.HTTPCallResult, *gatewaytypes.IcError)
}

// HTTPTransport is the production Transport, one instance shared by every
// provider, guarding each host with its own breaker and limiter.
type HTTPTransport struct {
	client *http.Client

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	limiters map[string]*rate.Limiter

	breakerConfig CircuitBreakerConfig
	ratePerSecond float64
	rateBurst     int
}

// Option configures an HTTPTransport.
type Option func(*HTTPTransport)

func WithTimeout(d time.Duration) Option {
	return func(t *HTTPTransport) { t.client.Timeout = d }
}

func WithRateLimit(perSecond float64, burst int) Option {
	return func(t *HTTPTransport) { t.ratePerSecond = perSecond; t.rateBurst = burst }
}

func WithCircuitBreaker(cfg CircuitBreakerConfig) Option {
	return func(t *HTTPTransport) { t.breakerConfig = cfg }
}

// New builds an HTTPTransport with the default timeout, per-host rate
// limit, and circuit breaker settings.
func New(opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		client:        &http.Client{Timeout: 10 * time.Second},
		breakers:      make(map[string]*CircuitBreaker),
		limiters:      make(map[string]*rate.Limiter),
		breakerConfig: DefaultCircuitBreakerConfig(),
		ratePerSecond: 10,
		rateBurst:     20,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *HTTPTransport) breakerFor(host string) *CircuitBreaker {
	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok := t.breakers[host]; ok {
		return b
	}
	b := NewCircuitBreaker(t.breakerConfig)
	t.breakers[host] = b
	return b
}

func (t *HTTPTransport) limiterFor(host string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	if l, ok := t.limiters[host]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(t.ratePerSecond), t.rateBurst)
	t.limiters[host] = l
	return l
}

// Submit performs one HTTP round-trip, enforcing the circuit breaker, rate
// limiter, and response-size ceiling before classifying the outcome.
func (t *HTTPTransport) Submit(ctx context.Context, params gatewaytypes.HTTPCallParams) (*gatewaytypes.HTTPCallResult, *gatewaytypes.IcError) {
	host := hostOf(params.URL)
	breaker := t.breakerFor(host)
	limiter := t.limiterFor(host)

	if !breaker.Allow() {
		return nil, &gatewaytypes.IcError{Code: gatewaytypes.CodeSysTransient, Message: "circuit breaker open for " + host}
	}
	if err := limiter.Wait(ctx); err != nil {
		return nil, &gatewaytypes.IcError{Code: gatewaytypes.CodeSysTransient, Message: "rate limit wait: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, string(params.Method), params.URL, bytes.NewReader(params.Body))
	if err != nil {
		breaker.RecordFailure()
		return nil, &gatewaytypes.IcError{Code: gatewaytypes.CodeDestinationInvalid, Message: err.Error()}
	}
	for name, value := range params.Headers {
		req.Header.Set(name, value)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		breaker.RecordFailure()
		return nil, classifyNetworkError(err)
	}
	defer resp.Body.Close()

	limit := int64(params.MaxResponseBytes)
	if limit <= 0 || limit > gatewaytypes.MaxResponseBytesCeiling {
		limit = gatewaytypes.MaxResponseBytesCeiling
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		breaker.RecordFailure()
		return nil, &gatewaytypes.IcError{Code: gatewaytypes.CodeSysTransient, Message: err.Error()}
	}
	if int64(len(body)) > limit {
		breaker.RecordFailure()
		return nil, &gatewaytypes.IcError{Code: gatewaytypes.CodeSysFatal, Message: "size limit exceeded", Retryable: true}
	}

	breaker.RecordSuccess()

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	return &gatewaytypes.HTTPCallResult{Status: resp.StatusCode, Headers: headers, Body: body}, nil
}

func classifyNetworkError(err error) *gatewaytypes.IcError {
	msg := err.Error()
	if strings.Contains(msg, "size limit") || strings.Contains(msg, "length limit") {
		return &gatewaytypes.IcError{Code: gatewaytypes.CodeSysFatal, Message: msg, Retryable: true}
	}
	var netErr net.Error
	if ok := isNetError(err, &netErr); ok && netErr.Timeout() {
		return &gatewaytypes.IcError{Code: gatewaytypes.CodeSysTransient, Message: msg}
	}
	return &gatewaytypes.IcError{Code: gatewaytypes.CodeUnknown, Message: msg}
}

func isNetError(err error, target *net.Error) bool {
	ne, ok := err.(net.Error)
	if !ok {
		return false
	}
	*target = ne
	return true
}

func hostOf(rawURL string) string {
	u := strings.TrimPrefix(rawURL, "https://")
	u = strings.TrimPrefix(u, "http://")
	if i := strings.IndexByte(u, '/'); i >= 0 {
		u = u[:i]
	}
	return u
}
