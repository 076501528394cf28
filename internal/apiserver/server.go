// Package apiserver is the gateway's HTTP surface: a JSON-RPC endpoint
// exposing the typed operation table, plus an admin REST group backed by
// the persisted store. Batch and single requests share one dispatch path.
package apiserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dmagro/eth-rpc-gateway/internal/gateway"
)

// maxRequestBodyBytes caps an inbound HTTP request body.
const maxRequestBodyBytes = 2 << 20

// maxBatchSize caps how many JSON-RPC requests one batch array may carry.
const maxBatchSize = 100

// Server is the HTTP handler wrapping a Gateway.
type Server struct {
	gw  *gateway.Gateway
	log *zap.Logger
}

// New builds a Server. log defaults to a no-op logger when nil.
func New(gw *gateway.Gateway, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{gw: gw, log: log}
}

// Routes builds the full router: POST /rpc for the caller-facing typed
// operations, GET /healthz for liveness, and an /admin/* group backed by
// the persisted store.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", s.handleHealthz)
	r.Post("/rpc", s.handleRPC)

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(s.requireAdminPrincipal)
		admin.Post("/api-keys", s.handleUpdateAPIKeys)
		admin.Get("/providers", s.handleGetProviders)
		admin.Get("/service-provider-map", s.handleServiceProviderMap)
		admin.Get("/nodes-in-subnet", s.handleNodesInSubnet)
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
