package rpc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"tokenmart/native/market"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

// Server exposes the marketplace engine over JSON-RPC. Administrative
// routing and authentication beyond the optional bearer token are the
// responsibility of the outer dispatch layer.
type Server struct {
	engine    *market.Engine
	authToken string
}

// NewServer builds a server around the supplied engine. The optional
// TOKENMART_RPC_TOKEN environment variable enables bearer-token checks on
// every request.
func NewServer(engine *market.Engine) *Server {
	return &Server{
		engine:    engine,
		authToken: strings.TrimSpace(os.Getenv("TOKENMART_RPC_TOKEN")),
	}
}

// Router assembles the HTTP routes: the JSON-RPC endpoint, the prometheus
// scrape endpoint, and a liveness probe.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/", s.handle)
	return otelhttp.NewHandler(r, "tokenmart.rpc")
}

// Start serves the router on addr and blocks.
func (s *Server) Start(addr string) error {
	fmt.Printf("Starting JSON-RPC server on %s\n", addr)
	return http.ListenAndServe(addr, s.Router())
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	return header == "Bearer "+s.authToken
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, nil, codeUnauthorized, "unauthorized", nil)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	var req RPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", nil)
		return
	}
	handler, ok := s.methods()[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method), nil)
		return
	}
	handler(w, &req)
}

type handlerFunc func(http.ResponseWriter, *RPCRequest)

func (s *Server) methods() map[string]handlerFunc {
	return map[string]handlerFunc{
		"market_listItem":              s.handleListItem,
		"market_cancelItem":            s.handleCancelItem,
		"market_buyItem":               s.handleBuyItem,
		"market_makeOffer":             s.handleMakeOffer,
		"market_makeBarterOffer":       s.handleMakeBarterOffer,
		"market_cancelOffer":           s.handleCancelOffer,
		"market_acceptOffer":           s.handleAcceptOffer,
		"market_makeCollectionOffer":   s.handleMakeCollectionOffer,
		"market_cancelCollectionOffer": s.handleCancelCollectionOffer,
		"market_acceptCollectionOffer": s.handleAcceptCollectionOffer,
		"market_listBundle":            s.handleListBundle,
		"market_cancelBundleListing":   s.handleCancelBundleListing,
		"market_buyBundle":             s.handleBuyBundle,
		"market_getListing":            s.handleGetListing,
		"market_getOffer":              s.handleGetOffer,
		"market_getCollectionOffer":    s.handleGetCollectionOffer,
		"market_getBundle":             s.handleGetBundle,
		"market_activeBundles":         s.handleActiveBundles,
		"market_pendingOffers":         s.handlePendingOffers,
	}
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected a single parameter object")
	}
	return json.Unmarshal(req.Params[0], out)
}
