package apiserver

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
)

// callRequest is the public JSON-RPC request envelope. An operation's
// typed params ride as the sole element of Params (the same
// object-as-one-element-array convention the gateway uses on its own
// outbound requests), with optional provider-selection and consensus
// overrides alongside them.
type callRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.Number     `json:"id"`
}

// callResponse mirrors gatewaytypes.Response but with a flexible id,
// since an HTTP caller's id need not be a core-minted uint64.
type callResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.Number     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON-RPC 2.0 reserved error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, json.Number(""), codeParseError, "request body too large or unreadable")
		return
	}
	defer r.Body.Close()

	if isBatch(body) {
		s.handleBatch(w, r, body)
		return
	}
	s.handleSingle(w, r, body)
}

// isBatch peeks at the first non-whitespace byte: '[' means a batch.
func isBatch(body []byte) bool {
	for _, b := range body {
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		return b == '['
	}
	return false
}

func (s *Server) handleSingle(w http.ResponseWriter, r *http.Request, body []byte) {
	var req callRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, json.Number(""), codeParseError, "parse error: "+err.Error())
		return
	}
	resp := s.dispatch(r, req)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request, body []byte) {
	var batch []callRequest
	if err := json.Unmarshal(body, &batch); err != nil {
		s.writeError(w, json.Number(""), codeParseError, "parse error: "+err.Error())
		return
	}
	if len(batch) == 0 {
		s.writeError(w, json.Number(""), codeInvalidRequest, "empty batch")
		return
	}
	if len(batch) > maxBatchSize {
		s.writeError(w, json.Number(""), codeInvalidRequest, "batch too large")
		return
	}

	responses := make([]callResponse, len(batch))
	for i, req := range batch {
		responses[i] = s.dispatch(r, req)
	}
	writeJSON(w, http.StatusOK, responses)
}

func (s *Server) dispatch(r *http.Request, req callRequest) callResponse {
	if req.JSONRPC != "2.0" {
		return errorResponse(req.ID, codeInvalidRequest, "invalid jsonrpc version")
	}
	handler, ok := operationTable[req.Method]
	if !ok {
		return errorResponse(req.ID, codeMethodNotFound, "unknown method "+req.Method)
	}

	result, err := handler(r.Context(), s.gw, req.Params)
	if err != nil {
		if _, isValidation := err.(*gatewaytypes.ValidationError); isValidation {
			return errorResponse(req.ID, codeInvalidParams, err.Error())
		}
		s.log.Warn("operation failed", zap.String("method", req.Method), zap.Error(err))
		return errorResponse(req.ID, codeInternalError, err.Error())
	}
	return callResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func errorResponse(id json.Number, code int, message string) callResponse {
	return callResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}}
}

func (s *Server) writeError(w http.ResponseWriter, id json.Number, code int, message string) {
	writeJSON(w, http.StatusOK, errorResponse(id, code, message))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
