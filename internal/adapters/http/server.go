// Package http exposes the resolved inventory over a small read-only
// HTTP API.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/strataconf/stratum/pkg/inventory"
	"github.com/strataconf/stratum/pkg/observability"
	"github.com/strataconf/stratum/pkg/paramtree"
)

// Resolver is the inventory surface served by the adapter.
type Resolver interface {
	NodeInfo(name string) (*inventory.NodeInfo, error)
	Inventory() (*inventory.Inventory, error)
}

// Server holds the handlers.
type Server struct {
	Resolver Resolver
	Metrics  *observability.Metrics
}

// NewHandler builds the HTTP handler for a resolver. A nil metrics
// disables the /metrics route.
//
// Routes:
//
//	GET /healthz          liveness probe
//	GET /inventory        the full inventory flat map
//	GET /nodes/{name}     one resolved node
//	GET /metrics          Prometheus exposition
//
// Responses are YAML by default; an Accept header containing
// "application/json" switches to JSON.
func NewHandler(resolver Resolver, metrics *observability.Metrics) http.Handler {
	s := &Server{Resolver: resolver, Metrics: metrics}
	r := chi.NewRouter()
	r.Get("/healthz", s.Health)
	r.Get("/inventory", s.GetInventory)
	r.Get("/nodes/{name}", s.GetNode)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}
	return r
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "ok")
}

// GetInventory handles GET /inventory.
func (s *Server) GetInventory(w http.ResponseWriter, r *http.Request) {
	inv, err := s.Resolver.Inventory()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeTree(w, r, inv.FlatMap())
}

// GetNode handles GET /nodes/{name}.
func (s *Server) GetNode(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	info, err := s.Resolver.NodeInfo(name)
	if err != nil {
		var notFound *inventory.NodeNotFoundError
		if errors.As(err, &notFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeTree(w, r, info.FlatMap())
}

func writeTree(w http.ResponseWriter, r *http.Request, tree *paramtree.Mapping) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		// JSON objects are unordered anyway, so the plain-map form is
		// fine here.
		_ = json.NewEncoder(w).Encode(paramtree.Map(tree).AsAny())
		return
	}
	w.Header().Set("Content-Type", "text/yaml")
	_ = yaml.NewEncoder(w).Encode(tree)
}
