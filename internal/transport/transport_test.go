package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
)

func TestSubmitSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x1"}`))
	}))
	defer srv.Close()

	tr := New()
	result, icErr := tr.Submit(context.Background(), gatewaytypes.HTTPCallParams{
		URL:              srv.URL,
		Method:           gatewaytypes.MethodPOST,
		Headers:          map[string]string{"Content-Type": "application/json"},
		Body:             []byte(`{}`),
		MaxResponseBytes: 2048,
	})

	require.Nil(t, icErr)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.Contains(t, string(result.Body), `"result":"0x1"`)
}

func TestSubmitOversizeResponseIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer srv.Close()

	tr := New()
	_, icErr := tr.Submit(context.Background(), gatewaytypes.HTTPCallParams{
		URL:              srv.URL,
		Method:           gatewaytypes.MethodPOST,
		MaxResponseBytes: 1024,
	})

	require.NotNil(t, icErr)
	assert.Equal(t, gatewaytypes.CodeSysFatal, icErr.Code)
	assert.True(t, icErr.Retryable)
	assert.Contains(t, icErr.Message, "size limit")
}

func TestSubmitNon2xxIsNotATransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := New()
	result, icErr := tr.Submit(context.Background(), gatewaytypes.HTTPCallParams{
		URL:              srv.URL,
		Method:           gatewaytypes.MethodPOST,
		MaxResponseBytes: 1024,
	})

	require.Nil(t, icErr, "a 500 reached the network; the caller classifies it")
	assert.Equal(t, http.StatusInternalServerError, result.Status)
}

func TestSubmitConnectionRefused(t *testing.T) {
	tr := New()
	_, icErr := tr.Submit(context.Background(), gatewaytypes.HTTPCallParams{
		URL:              "http://127.0.0.1:1", // nothing listens here
		Method:           gatewaytypes.MethodPOST,
		MaxResponseBytes: 1024,
	})

	require.NotNil(t, icErr)
	assert.False(t, icErr.Retryable)
}

func TestBreakerShortCircuitsRepeatedFailures(t *testing.T) {
	tr := New(WithCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Minute, HalfOpenRequests: 1}))

	params := gatewaytypes.HTTPCallParams{
		URL:              "http://127.0.0.1:1",
		Method:           gatewaytypes.MethodPOST,
		MaxResponseBytes: 1024,
	}
	for i := 0; i < 2; i++ {
		_, icErr := tr.Submit(context.Background(), params)
		require.NotNil(t, icErr)
	}

	_, icErr := tr.Submit(context.Background(), params)
	require.NotNil(t, icErr)
	assert.Contains(t, icErr.Message, "circuit breaker open")
}
