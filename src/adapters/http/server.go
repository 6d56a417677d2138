package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/services/analytics"
	"github.com/Rtoony/survey-data-system-sub001/src/services/edges"
	"github.com/Rtoony/survey-data-system-sub001/src/services/sets"
	"github.com/Rtoony/survey-data-system-sub001/src/services/traversal"
	"github.com/Rtoony/survey-data-system-sub001/src/services/validation"
)

type Server struct {
	logger           *slog.Logger
	server           *http.Server
	mux              *http.ServeMux
	port             int
	edgeService      *edges.EdgeService
	traversalService *traversal.TraversalService
	ruleEngine       *validation.RuleEngine
	setService       *sets.SetService
	syncChecker      *sets.SyncChecker
	healthService    *analytics.HealthService
}

func NewServer(
	logger *slog.Logger,
	port int,
	edgeService *edges.EdgeService,
	traversalService *traversal.TraversalService,
	ruleEngine *validation.RuleEngine,
	setService *sets.SetService,
	syncChecker *sets.SyncChecker,
	healthService *analytics.HealthService,
) *Server {
	server := &Server{
		mux:              http.NewServeMux(),
		port:             port,
		logger:           logger,
		edgeService:      edgeService,
		traversalService: traversalService,
		ruleEngine:       ruleEngine,
		setService:       setService,
		syncChecker:      syncChecker,
		healthService:    healthService,
	}

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      server.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Edge store
	server.mux.HandleFunc("POST /v1/projects/{project}/edges", server.CreateEdge)
	server.mux.HandleFunc("POST /v1/projects/{project}/edges/batch", server.CreateEdgesBatch)
	server.mux.HandleFunc("GET /v1/edges/{id}", server.GetEdge)
	server.mux.HandleFunc("GET /v1/edges", server.ListEdges)
	server.mux.HandleFunc("PATCH /v1/edges/{id}", server.UpdateEdge)
	server.mux.HandleFunc("DELETE /v1/edges/{id}", server.DeleteEdge)
	server.mux.HandleFunc("POST /v1/edges/batch-delete", server.DeleteEdgesBatch)
	server.mux.HandleFunc("POST /v1/edges/validate", server.ValidateEdgeData)
	server.mux.HandleFunc("GET /v1/projects/{project}/entities/{type}/{id}/edges", server.ListEdgesTouching)

	// Traversal
	server.mux.HandleFunc("GET /v1/projects/{project}/related/{type}/{id}", server.GetRelated)
	server.mux.HandleFunc("GET /v1/projects/{project}/subgraph/{type}/{id}", server.GetSubgraph)
	server.mux.HandleFunc("GET /v1/projects/{project}/path", server.FindPath)
	server.mux.HandleFunc("GET /v1/projects/{project}/paths", server.FindAllPaths)
	server.mux.HandleFunc("GET /v1/projects/{project}/cycles", server.DetectCycles)
	server.mux.HandleFunc("GET /v1/projects/{project}/connections", server.GetConnections)
	server.mux.HandleFunc("GET /v1/projects/{project}/summary", server.GetSummary)

	// Validation rules
	server.mux.HandleFunc("POST /v1/rules", server.CreateRule)
	server.mux.HandleFunc("GET /v1/rules/{id}", server.GetRule)
	server.mux.HandleFunc("DELETE /v1/rules/{id}", server.DeactivateRule)
	server.mux.HandleFunc("POST /v1/projects/{project}/validate", server.ValidateProject)
	server.mux.HandleFunc("GET /v1/projects/{project}/compliance/{type}/{id}", server.CheckCompliance)
	server.mux.HandleFunc("GET /v1/violations", server.ListViolations)
	server.mux.HandleFunc("POST /v1/violations/{publicId}/resolve", server.ResolveViolation)

	// Relationship sets
	server.mux.HandleFunc("POST /v1/sets", server.CreateSet)
	server.mux.HandleFunc("GET /v1/sets", server.ListSets)
	server.mux.HandleFunc("GET /v1/sets/{id}", server.GetSet)
	server.mux.HandleFunc("DELETE /v1/sets/{id}", server.DeleteSet)
	server.mux.HandleFunc("POST /v1/sets/{id}/members", server.AddMember)
	server.mux.HandleFunc("GET /v1/sets/{id}/members", server.ListMembers)
	server.mux.HandleFunc("DELETE /v1/members/{id}", server.RemoveMember)
	server.mux.HandleFunc("POST /v1/sets/{id}/rules", server.AddSetRule)
	server.mux.HandleFunc("GET /v1/sets/{id}/rules", server.ListSetRules)
	server.mux.HandleFunc("POST /v1/sets/{id}/run-checks", server.RunAllChecks)
	server.mux.HandleFunc("GET /v1/sets/{id}/violations", server.ListSetViolations)
	server.mux.HandleFunc("POST /v1/set-violations/{publicId}/resolve", server.ResolveSetViolation)
	server.mux.HandleFunc("POST /v1/templates/{id}/apply", server.ApplyTemplate)

	// Analytics
	server.mux.HandleFunc("GET /v1/projects/{project}/health", server.GetProjectHealth)

	return server
}

func (s *Server) Start() error {
	s.logger.Info("Server started", "port", s.port)

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// writeJSON serializes one response body. Encoding failures are logged, the
// status line has already gone out.
func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to write JSON response", "error", err)
	}
}

// writeError maps sentinel errors to HTTP statuses; anything unrecognized is
// logged and reported as an unavailable server.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEdgeNotFound),
		errors.Is(err, domain.ErrSetNotFound),
		errors.Is(err, domain.ErrRuleNotFound),
		errors.Is(err, domain.ErrEntityNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrDuplicateEdge):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidEntityType),
		errors.Is(err, domain.ErrInvalidRelationshipType),
		errors.Is(err, domain.ErrInvalidPairing),
		errors.Is(err, domain.ErrInvalidFilterColumn):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		log.Printf("ERROR: %v", err)
		http.Error(w, domain.ErrUnavailableServer.Error(), http.StatusInternalServerError)
	}
}
