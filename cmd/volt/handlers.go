package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/voltkv/volt/internal/cluster"
)

// server wires the cluster facade to the HTTP edge. The edge owns
// serialization: the core stores opaque bytes, and typed JSON exists
// only on this side of the boundary.
type server struct {
	cluster *cluster.Cluster
	logger  *zap.Logger
}

// newServer creates the HTTP edge over an already-configured cluster.
func newServer(c *cluster.Cluster, logger *zap.Logger) *server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &server{cluster: c, logger: logger}
}

// routes builds the edge's request mux.
func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/kv/", s.handleKV)
	mux.HandleFunc("/json/", s.handleJSON)
	mux.Handle("/metrics", promhttp.HandlerFor(s.cluster.Gatherer(), promhttp.HandlerOpts{}))
	return mux
}

// kvRequest is the write body for both /kv and /json. For /kv the value
// is a JSON string; for /json it is any JSON value, kept raw so the
// core never parses it.
type kvRequest struct {
	Value      json.RawMessage `json:"value"`
	TTLSeconds *int64          `json:"ttl_seconds,omitempty"`
}

// kvResponse is the read body: the stored value, re-emitted raw.
type kvResponse struct {
	Value json.RawMessage `json:"value"`
}

// deleteResponse reports whether any replica held the key.
type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

// handleHealth reports 200 when the cluster can serve requests, i.e.
// it has at least one node, and 503 otherwise.
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.cluster.NumNodes() == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleKV serves string values under /kv/{key}. The stored bytes are
// the raw string contents; the JSON quoting lives entirely here.
func (s *server) handleKV(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/kv/")
	if key == "" {
		http.Error(w, "missing key", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		value, ok := s.cluster.Get(key)
		if !ok {
			http.Error(w, "key not found", http.StatusNotFound)
			return
		}
		raw, err := json.Marshal(string(value))
		if err != nil {
			http.Error(w, "encode value", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, kvResponse{Value: raw})

	case http.MethodPost:
		req, ttl, ok := s.decodeWrite(w, r)
		if !ok {
			return
		}
		var value string
		if err := json.Unmarshal(req.Value, &value); err != nil {
			http.Error(w, "value must be a string", http.StatusBadRequest)
			return
		}
		if err := s.cluster.Set(r.Context(), key, []byte(value), ttl); err != nil {
			s.writeClusterError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)

	case http.MethodDelete:
		deleted, err := s.cluster.Delete(r.Context(), key)
		if err != nil {
			s.writeClusterError(w, err)
			return
		}
		s.writeJSON(w, deleteResponse{Deleted: deleted})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJSON serves arbitrary JSON values under /json/{key}. The core
// stores the raw bytes of the value as sent; no schema is imposed.
func (s *server) handleJSON(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/json/")
	if key == "" {
		http.Error(w, "missing key", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		value, ok := s.cluster.Get(key)
		if !ok {
			http.Error(w, "key not found", http.StatusNotFound)
			return
		}
		if !json.Valid(value) {
			// The key was written through /kv; its bytes are not JSON.
			http.Error(w, "stored value is not JSON", http.StatusConflict)
			return
		}
		s.writeJSON(w, kvResponse{Value: value})

	case http.MethodPost:
		req, ttl, ok := s.decodeWrite(w, r)
		if !ok {
			return
		}
		if err := s.cluster.Set(r.Context(), key, req.Value, ttl); err != nil {
			s.writeClusterError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// decodeWrite parses a write body and validates the TTL. TTL parsing
// and range checks belong to the edge: the core accepts any
// non-negative duration and never sees ttl_seconds. Returns ok=false
// after writing an error response.
func (s *server) decodeWrite(w http.ResponseWriter, r *http.Request) (kvRequest, time.Duration, bool) {
	var req kvRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return kvRequest{}, 0, false
	}
	if len(req.Value) == 0 {
		http.Error(w, "missing value", http.StatusBadRequest)
		return kvRequest{}, 0, false
	}

	var ttl time.Duration
	if req.TTLSeconds != nil {
		if *req.TTLSeconds < 0 {
			http.Error(w, "ttl_seconds must be non-negative", http.StatusBadRequest)
			return kvRequest{}, 0, false
		}
		ttl = time.Duration(*req.TTLSeconds) * time.Second
	}
	return req, ttl, true
}

// writeJSON encodes v as the response body with a 200 status.
func (s *server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

// writeClusterError maps core errors to edge statuses: a closed
// cluster is 503, cancellation mid-fan-out is 408.
func (s *server) writeClusterError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cluster.ErrClosed):
		http.Error(w, "cluster is shutting down", http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusRequestTimeout)
	}
}
