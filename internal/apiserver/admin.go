package apiserver

import (
	"encoding/json"
	"net/http"

	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
)

// adminPrincipalHeader carries the caller's principal identifier. A real
// deployment would authenticate this via mTLS or a signed token; the
// header is the seam a production auth middleware would replace.
const adminPrincipalHeader = "X-Gateway-Principal"

// requireAdminPrincipal rejects any /admin/* request from a principal the
// store doesn't list as a key admin.
func (s *Server) requireAdminPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := r.Header.Get(adminPrincipalHeader)
		if principal == "" || !s.gw.Store.IsKeyAdmin(principal) {
			err := &gatewaytypes.NoPermissionError{Principal: principal}
			writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type updateAPIKeysRequest struct {
	Updates []struct {
		ProviderID uint64  `json:"provider_id"`
		Key        *string `json:"key"`
	} `json:"updates"`
}

func (s *Server) handleUpdateAPIKeys(w http.ResponseWriter, r *http.Request) {
	var req updateAPIKeysRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}

	updates := make(map[uint64]*string, len(req.Updates))
	for _, u := range req.Updates {
		updates[u.ProviderID] = u.Key
	}
	if err := s.gw.Store.UpdateAPIKeys(updates); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.gw.Registry.AllProviders())
}

// serviceProviderEntry is one row of the get_service_provider_map query:
// the logical alias paired with which chain it serves.
type serviceProviderEntry struct {
	Alias   string `json:"alias"`
	ChainID uint64 `json:"chain_id"`
}

func (s *Server) handleServiceProviderMap(w http.ResponseWriter, _ *http.Request) {
	providers := s.gw.Registry.AllProviders()
	out := make([]serviceProviderEntry, len(providers))
	for i, p := range providers {
		out[i] = serviceProviderEntry{Alias: p.Alias, ChainID: p.ChainID}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleNodesInSubnet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]uint32{"nodes_in_subnet": s.gw.Store.SubnetNodeCount()})
}
