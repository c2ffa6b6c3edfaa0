package zksync

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// rpcServer is a minimal JSON-RPC endpoint answering from a per-method handler table.
type rpcServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]func(params []json.RawMessage) any
	calls    map[string]int
}

func newRPCServer(t *testing.T, handlers map[string]func(params []json.RawMessage) any) *rpcServer {
	t.Helper()

	s := &rpcServer{handlers: handlers, calls: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *rpcServer) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}

	s.mu.Lock()
	s.calls[req.Method]++
	if handler, ok := s.handlers[req.Method]; ok {
		resp["result"] = handler(req.Params)
	} else {
		resp["error"] = map[string]any{"code": -32601, "message": "method not found: " + req.Method}
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *rpcServer) count(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func result(v any) func([]json.RawMessage) any {
	return func([]json.RawMessage) any { return v }
}
