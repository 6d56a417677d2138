package http

import (
	"net/http"
	"strconv"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
)

func pathEntityRef(r *http.Request) (domain.EntityRef, bool) {
	ref := domain.EntityRef{
		EntityType: r.PathValue("type"),
		EntityID:   r.PathValue("id"),
	}
	return ref, ref.EntityType != "" && ref.EntityID != ""
}

func queryEntityRef(r *http.Request, typeParam, idParam string) (domain.EntityRef, bool) {
	ref := domain.EntityRef{
		EntityType: r.URL.Query().Get(typeParam),
		EntityID:   r.URL.Query().Get(idParam),
	}
	return ref, ref.EntityType != "" && ref.EntityID != ""
}

func (s *Server) GetRelated(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")

	ref, ok := pathEntityRef(r)
	if !ok {
		http.Error(w, "Entity type and ID are required", http.StatusBadRequest)
		return
	}

	direction := entities.EdgeDirection(r.URL.Query().Get("direction"))
	switch direction {
	case "", entities.DirectionOutgoing, entities.DirectionIncoming, entities.DirectionBoth:
	default:
		http.Error(w, "direction must be outgoing, incoming or both", http.StatusBadRequest)
		return
	}

	related, err := s.traversalService.GetRelated(r.Context(), projectID, ref, r.URL.Query().Get("relationshipType"), direction)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, related)
}

func (s *Server) GetSubgraph(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")

	ref, ok := pathEntityRef(r)
	if !ok {
		http.Error(w, "Entity type and ID are required", http.StatusBadRequest)
		return
	}

	depth, _ := strconv.Atoi(r.URL.Query().Get("depth"))

	subgraph, err := s.traversalService.GetSubgraph(r.Context(), projectID, ref, depth)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, subgraph)
}

func (s *Server) FindPath(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")

	source, ok := queryEntityRef(r, "sourceType", "sourceId")
	if !ok {
		http.Error(w, "sourceType and sourceId are required", http.StatusBadRequest)
		return
	}
	target, ok := queryEntityRef(r, "targetType", "targetId")
	if !ok {
		http.Error(w, "targetType and targetId are required", http.StatusBadRequest)
		return
	}

	maxDepth, _ := strconv.Atoi(r.URL.Query().Get("maxDepth"))

	path, err := s.traversalService.FindPath(r.Context(), projectID, source, target, maxDepth)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if path == nil {
		http.Error(w, "no path between the given entities", http.StatusNotFound)
		return
	}

	s.writeJSON(w, http.StatusOK, path)
}

func (s *Server) FindAllPaths(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")

	source, ok := queryEntityRef(r, "sourceType", "sourceId")
	if !ok {
		http.Error(w, "sourceType and sourceId are required", http.StatusBadRequest)
		return
	}
	target, ok := queryEntityRef(r, "targetType", "targetId")
	if !ok {
		http.Error(w, "targetType and targetId are required", http.StatusBadRequest)
		return
	}

	maxDepth, _ := strconv.Atoi(r.URL.Query().Get("maxDepth"))
	maxPaths, _ := strconv.Atoi(r.URL.Query().Get("maxPaths"))

	paths, err := s.traversalService.FindAllPaths(r.Context(), projectID, source, target, maxDepth, maxPaths)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, paths)
}

func (s *Server) DetectCycles(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")

	cycles, err := s.traversalService.DetectCycles(r.Context(), projectID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, cycles)
}

func (s *Server) GetConnections(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var counts []domain.ConnectionCount
	var err error

	switch r.URL.Query().Get("order") {
	case "most":
		counts, err = s.traversalService.MostConnected(r.Context(), projectID, limit)
	case "least":
		counts, err = s.traversalService.LeastConnected(r.Context(), projectID, limit)
	default:
		counts, err = s.traversalService.ConnectionCounts(r.Context(), projectID)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, counts)
}

func (s *Server) GetSummary(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")

	summary, err := s.traversalService.RelationshipSummary(r.Context(), projectID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}
